// Package app wires configuration into running services. The API server and
// the operator CLI both start from Build.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/safar/kavach-store/internal/brahma"
	"github.com/safar/kavach-store/internal/cart"
	"github.com/safar/kavach-store/internal/config"
	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/events"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/memstore"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/sarthi"
	"github.com/safar/kavach-store/internal/seed"
	"github.com/safar/kavach-store/internal/store"
)

type App struct {
	Config *config.Config
	Repos  kavach.Repositories
	Kavach *kavach.Service
	Sarthi *sarthi.Service
	Brahma *brahma.Service

	// DB is nil on the memory backend.
	DB    *sql.DB
	Store *store.Store

	closers []func() error
}

// Build opens the configured backend and the optional Redis mirror and
// AMQP publisher. The memory backend is seeded from cfg.Store.SeedFile, or
// the built-in fixture when that is empty.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	fixture, err := seed.Load(cfg.Store.SeedFile)
	if err != nil {
		return nil, err
	}

	consult := memstore.NewConsult()
	if err := fixture.ApplyExperts(ctx, consult); err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := database.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		log.Printf("Connected to database successfully")

		var opts []store.Option
		if cfg.Database.LockNoWait {
			opts = append(opts, store.WithNoWait())
		}
		a.DB = db
		a.Store = store.New(db, opts...)
		a.Repos = a.Store.Repositories()
	default:
		commerce := memstore.NewCommerce()
		a.Repos = commerce.Repositories()
		if err := fixture.Apply(ctx, a.Repos, nil); err != nil {
			return nil, err
		}
		log.Printf("Loaded %d products and %d coupons into memory", len(fixture.Products), len(fixture.Coupons))
	}

	if err := a.ensureDeliveryRule(ctx); err != nil {
		a.Close()
		return nil, err
	}

	opts := []kavach.Option{kavach.WithLowStockThreshold(cfg.Pricing.LowStockThreshold)}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		opts = append(opts, kavach.WithMirror(cart.NewRedisMirror(client, cart.WithTTL(cfg.Redis.GuestTTL))))
		log.Printf("Mirroring guest carts to redis at %s", cfg.Redis.Addr)
	}

	if cfg.AMQP.URL != "" {
		publisher, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, publisher.Close)
		opts = append(opts, kavach.WithPublisher(publisher))
		log.Printf("Publishing order events to exchange %s", cfg.AMQP.Exchange)
	}

	a.Kavach = kavach.NewService(a.Repos, opts...)
	a.Sarthi = sarthi.NewService(consult)
	a.Brahma = brahma.NewService(consult, consult, &brahma.MockGateway{
		Latency:   cfg.Payments.Latency,
		FailAbove: cfg.Payments.FailAbove,
	})

	return a, nil
}

// ensureDeliveryRule installs the configured delivery charges when the
// store has no active rule yet.
func (a *App) ensureDeliveryRule(ctx context.Context) error {
	_, err := a.Repos.Rules.ActiveDeliveryRule(ctx)
	if !errors.Is(err, database.ErrNoDeliveryRule) {
		return err
	}

	_, err = a.Repos.Rules.SetDeliveryRule(ctx, &models.DeliveryRule{
		Name:                  "default",
		BaseCharge:            a.Config.Pricing.DeliveryBaseCharge,
		FreeDeliveryThreshold: a.Config.Pricing.FreeDeliveryThreshold,
	})
	if err != nil {
		return fmt.Errorf("install default delivery rule: %w", err)
	}
	return nil
}

// Health pings the database, if there is one.
func (a *App) Health(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
