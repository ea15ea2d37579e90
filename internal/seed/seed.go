// Package seed loads demo catalogue data from YAML fixtures into a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

type Fixture struct {
	DeliveryRule *models.DeliveryRule `yaml:"delivery_rule"`
	Products     []models.Product     `yaml:"products"`
	Coupons      []models.Coupon      `yaml:"coupons"`
	Experts      []models.Expert      `yaml:"experts"`
	Addresses    []models.Address     `yaml:"addresses"`
}

func Decode(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// Load reads a fixture file. An empty path loads the built-in demo data.
func Load(path string) (*Fixture, error) {
	if path == "" {
		return Default()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

func Default() (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(defaultFixture, &f); err != nil {
		return nil, fmt.Errorf("decode default fixture: %w", err)
	}
	return &f, nil
}

type ExpertWriter interface {
	PutExpert(ctx context.Context, e *models.Expert) error
}

// Apply writes the fixture through the repositories. experts may be nil,
// in which case the fixture's experts are skipped.
func (f *Fixture) Apply(ctx context.Context, repos kavach.Repositories, experts ExpertWriter) error {
	if f.DeliveryRule != nil {
		if _, err := repos.Rules.SetDeliveryRule(ctx, f.DeliveryRule); err != nil {
			return fmt.Errorf("seed delivery rule: %w", err)
		}
	}

	for i := range f.Products {
		p := f.Products[i]
		if err := kavach.ValidateProduct(&p); err != nil {
			return fmt.Errorf("seed product %q: %w", p.Name, err)
		}
		if _, err := repos.Products.CreateProduct(ctx, &p); err != nil {
			return fmt.Errorf("seed product %q: %w", p.Name, err)
		}
	}

	for i := range f.Coupons {
		c := f.Coupons[i]
		c.Code = models.NormalizeCode(c.Code)
		if err := pricing.ValidateCoupon(&c); err != nil {
			return fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
		if _, err := repos.Coupons.CreateCoupon(ctx, &c); err != nil {
			return fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
	}

	for i := range f.Addresses {
		a := f.Addresses[i]
		if _, err := repos.Addresses.CreateAddress(ctx, &a); err != nil {
			return fmt.Errorf("seed address for %s: %w", a.Owner, err)
		}
	}

	if experts != nil {
		return f.ApplyExperts(ctx, experts)
	}
	return nil
}

// ApplyExperts writes only the fixture's experts.
func (f *Fixture) ApplyExperts(ctx context.Context, experts ExpertWriter) error {
	for i := range f.Experts {
		e := f.Experts[i]
		if err := experts.PutExpert(ctx, &e); err != nil {
			return fmt.Errorf("seed expert %s: %w", e.ID, err)
		}
	}
	return nil
}
