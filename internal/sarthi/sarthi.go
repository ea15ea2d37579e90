// Package sarthi runs problem-guidance requests: a customer describes a
// problem, an expert is assigned, a session is scheduled and completed. It
// also sells solution packages as session-counted subscriptions.
package sarthi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/workflow"
)

var (
	ErrRequestNotFound      = errors.New("sarthi request not found")
	ErrExpertNotFound       = errors.New("expert not found")
	ErrExpertInactive       = errors.New("expert is not taking requests")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrUnknownPackage       = errors.New("unknown solution package")
	ErrSubscriptionExpired  = errors.New("subscription has expired")
	ErrInvalidInput         = errors.New("invalid input")
)

type RequestFilter struct {
	Customer string
	ExpertID string
	Status   models.SarthiStatus
	// Search matches the problem text and category, case-insensitively.
	Search string
}

// Matches reports whether r passes every set field of f.
func (f RequestFilter) Matches(r *models.SarthiRequest) bool {
	if f.Customer != "" && r.Customer != f.Customer {
		return false
	}
	if f.ExpertID != "" && r.ExpertID != f.ExpertID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(r.Problem), q) ||
			strings.Contains(strings.ToLower(r.Category), q)
	}
	return true
}

// Repository stores requests, experts and subscriptions. Update methods run
// fn on the stored record under the store's lock and save it only when fn
// returns nil.
type Repository interface {
	CreateRequest(ctx context.Context, r *models.SarthiRequest) error
	GetRequest(ctx context.Context, id string) (*models.SarthiRequest, error)
	UpdateRequest(ctx context.Context, id string, fn func(*models.SarthiRequest) error) (*models.SarthiRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]models.SarthiRequest, error)

	PutExpert(ctx context.Context, e *models.Expert) error
	GetExpert(ctx context.Context, id string) (*models.Expert, error)
	ListExperts(ctx context.Context) ([]models.Expert, error)

	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, id string, fn func(*models.Subscription) error) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, customer string) ([]models.Subscription, error)
}

type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateRequest(ctx context.Context, customer, problem, category string) (*models.SarthiRequest, error) {
	if strings.TrimSpace(customer) == "" || strings.TrimSpace(problem) == "" {
		return nil, fmt.Errorf("%w: customer and problem are required", ErrInvalidInput)
	}

	now := s.now()
	r := &models.SarthiRequest{
		ID:        s.newID(),
		Customer:  customer,
		Problem:   strings.TrimSpace(problem),
		Category:  strings.TrimSpace(category),
		Status:    workflow.Sarthi.Initial(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateRequest(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) GetRequest(ctx context.Context, id string) (*models.SarthiRequest, error) {
	return s.repo.GetRequest(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) ([]models.SarthiRequest, error) {
	return s.repo.ListRequests(ctx, filter)
}

func (s *Service) activeExpert(ctx context.Context, id string) (*models.Expert, error) {
	e, err := s.repo.GetExpert(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Active {
		return nil, fmt.Errorf("%w: %s", ErrExpertInactive, e.Name)
	}
	return e, nil
}

func (s *Service) fireRequest(ctx context.Context, id string, event workflow.SarthiEvent, apply func(r *models.SarthiRequest)) (*models.SarthiRequest, error) {
	return s.repo.UpdateRequest(ctx, id, func(r *models.SarthiRequest) error {
		next, err := workflow.Sarthi.Fire(r.Status, event)
		if err != nil {
			return err
		}
		r.Status = next
		r.UpdatedAt = s.now()
		if apply != nil {
			apply(r)
		}
		return nil
	})
}

// AssignExpert assigns the request, or reassigns it if an expert already
// holds it and no session is scheduled yet.
func (s *Service) AssignExpert(ctx context.Context, id, expertID string) (*models.SarthiRequest, error) {
	if _, err := s.activeExpert(ctx, expertID); err != nil {
		return nil, err
	}

	r, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	event := workflow.SarthiAssign
	if r.Status == models.SarthiAssigned {
		event = workflow.SarthiReassign
	}

	return s.fireRequest(ctx, id, event, func(r *models.SarthiRequest) {
		r.ExpertID = expertID
	})
}

// Schedule books the session time. Calling it again on a scheduled request
// reschedules.
func (s *Service) Schedule(ctx context.Context, id string, at time.Time) (*models.SarthiRequest, error) {
	if !at.After(s.now()) {
		return nil, fmt.Errorf("%w: session must be scheduled in the future", ErrInvalidInput)
	}

	r, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	event := workflow.SarthiSchedule
	if r.Status == models.SarthiScheduled {
		event = workflow.SarthiReschedule
	}

	return s.fireRequest(ctx, id, event, func(r *models.SarthiRequest) {
		when := at
		r.ScheduledAt = &when
	})
}

func (s *Service) Complete(ctx context.Context, id, notes string) (*models.SarthiRequest, error) {
	return s.fireRequest(ctx, id, workflow.SarthiComplete, func(r *models.SarthiRequest) {
		if notes != "" {
			r.Notes = notes
		}
	})
}

func (s *Service) Cancel(ctx context.Context, id string) (*models.SarthiRequest, error) {
	return s.fireRequest(ctx, id, workflow.SarthiCancel, nil)
}

// AddExpert registers an expert, generating an id when none is given. New
// experts are active.
func (s *Service) AddExpert(ctx context.Context, e models.Expert) (*models.Expert, error) {
	if strings.TrimSpace(e.Name) == "" {
		return nil, fmt.Errorf("%w: expert name is required", ErrInvalidInput)
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	e.Active = true
	if err := s.repo.PutExpert(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) DeactivateExpert(ctx context.Context, id string) (*models.Expert, error) {
	e, err := s.repo.GetExpert(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Active = false
	if err := s.repo.PutExpert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) ListExperts(ctx context.Context, activeOnly bool) ([]models.Expert, error) {
	experts, err := s.repo.ListExperts(ctx)
	if err != nil || !activeOnly {
		return experts, err
	}
	out := experts[:0]
	for _, e := range experts {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}
