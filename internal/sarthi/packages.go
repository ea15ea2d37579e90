package sarthi

import (
	"context"
	"fmt"
	"time"

	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
	"github.com/safar/kavach-store/internal/workflow"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

var catalogue = []models.SolutionPackage{
	{
		Tier:     models.PackageQuickFix,
		Name:     "Quick Fix",
		Sessions: 1,
		Validity: 30 * day,
		Price:    decimal.NewFromInt(999),
	},
	{
		Tier:     models.PackageSustainable,
		Name:     "Sustainable Solution",
		Sessions: 4,
		Validity: 90 * day,
		Price:    decimal.NewFromInt(3499),
	},
	{
		Tier:     models.PackageTransformation,
		Name:     "Complete Transformation",
		Sessions: 12,
		Validity: 180 * day,
		Price:    decimal.NewFromInt(9999),
	},
}

// Packages returns the solution package catalogue, cheapest first.
func Packages() []models.SolutionPackage {
	return append([]models.SolutionPackage(nil), catalogue...)
}

func Package(tier models.PackageTier) (models.SolutionPackage, error) {
	for _, p := range catalogue {
		if p.Tier == tier {
			return p, nil
		}
	}
	return models.SolutionPackage{}, fmt.Errorf("%w: %q", ErrUnknownPackage, tier)
}

// Subscribe creates a pending subscription to a package. expertID may be
// empty; when set the expert must be active.
func (s *Service) Subscribe(ctx context.Context, customer string, tier models.PackageTier, expertID string) (*models.Subscription, error) {
	if customer == "" {
		return nil, fmt.Errorf("%w: customer is required", ErrInvalidInput)
	}
	pkg, err := Package(tier)
	if err != nil {
		return nil, err
	}
	if expertID != "" {
		if _, err := s.activeExpert(ctx, expertID); err != nil {
			return nil, err
		}
	}

	sub := &models.Subscription{
		ID:            s.newID(),
		Customer:      customer,
		Package:       pkg.Tier,
		Status:        workflow.Subscription.Initial(),
		ExpertID:      expertID,
		SessionsTotal: pkg.Sessions,
		Price:         pkg.Price,
		CreatedAt:     s.now(),
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

func (s *Service) ListSubscriptions(ctx context.Context, customer string) ([]models.Subscription, error) {
	return s.repo.ListSubscriptions(ctx, customer)
}

func (s *Service) fireSubscription(ctx context.Context, id string, event workflow.SubscriptionEvent, apply func(sub *models.Subscription) error) (*models.Subscription, error) {
	return s.repo.UpdateSubscription(ctx, id, func(sub *models.Subscription) error {
		next, err := workflow.Subscription.Fire(sub.Status, event)
		if err != nil {
			return err
		}
		if apply != nil {
			if err := apply(sub); err != nil {
				return err
			}
		}
		sub.Status = next
		return nil
	})
}

// ActivateSubscription starts the validity window, typically once the
// package has been paid for.
func (s *Service) ActivateSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	return s.fireSubscription(ctx, id, workflow.SubscriptionActivate, func(sub *models.Subscription) error {
		pkg, err := Package(sub.Package)
		if err != nil {
			return err
		}
		start := s.now()
		end := start.Add(pkg.Validity)
		sub.StartedAt = &start
		sub.EndsAt = &end
		return nil
	})
}

// UseSession records one consumed session. Using the last session
// completes the subscription. A subscription past its end date is expired
// instead and ErrSubscriptionExpired is returned.
func (s *Service) UseSession(ctx context.Context, id string) (*models.Subscription, error) {
	now := s.now()
	expired := false

	sub, err := s.repo.UpdateSubscription(ctx, id, func(sub *models.Subscription) error {
		if sub.EndsAt != nil && now.After(*sub.EndsAt) {
			next, err := workflow.Subscription.Fire(sub.Status, workflow.SubscriptionExpire)
			if err != nil {
				return err
			}
			sub.Status = next
			expired = true
			return nil
		}

		if !workflow.Subscription.Can(sub.Status, workflow.SubscriptionExhaust) {
			return &workflow.TransitionError{
				Machine: workflow.Subscription.Name(),
				From:    string(sub.Status),
				Event:   "use_session",
			}
		}
		sub.SessionsUsed++
		if sub.SessionsUsed >= sub.SessionsTotal {
			sub.Status, _ = workflow.Subscription.Fire(sub.Status, workflow.SubscriptionExhaust)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return sub, ErrSubscriptionExpired
	}
	return sub, nil
}

func (s *Service) PauseSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	return s.fireSubscription(ctx, id, workflow.SubscriptionPause, nil)
}

func (s *Service) ResumeSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	return s.fireSubscription(ctx, id, workflow.SubscriptionResume, nil)
}

func (s *Service) CancelSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	return s.fireSubscription(ctx, id, workflow.SubscriptionCancel, nil)
}

// ExpireDue expires every active or paused subscription of customer whose
// window has closed and returns how many it changed.
func (s *Service) ExpireDue(ctx context.Context, customer string) (int, error) {
	subs, err := s.repo.ListSubscriptions(ctx, customer)
	if err != nil {
		return 0, err
	}

	now := s.now()
	n := 0
	for _, sub := range subs {
		if sub.EndsAt == nil || !now.After(*sub.EndsAt) {
			continue
		}
		if !workflow.Subscription.Can(sub.Status, workflow.SubscriptionExpire) {
			continue
		}
		if _, err := s.fireSubscription(ctx, sub.ID, workflow.SubscriptionExpire, nil); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Progress is the share of sessions used, as a whole percent.
func Progress(sub *models.Subscription) int {
	return pricing.CompletionPercent(sub.SessionsUsed, sub.SessionsTotal)
}
