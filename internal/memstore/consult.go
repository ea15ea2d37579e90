package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/safar/kavach-store/internal/brahma"
	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/sarthi"
)

// Consult stores the Sarthi and Brahma records: requests, experts,
// subscriptions, bookings and payments.
type Consult struct {
	mu sync.RWMutex

	requests      *Collection[string, models.SarthiRequest]
	experts       *Collection[string, models.Expert]
	subscriptions *Collection[string, models.Subscription]
	bookings      *Collection[string, models.Booking]
	payments      *Collection[string, models.Payment]
}

func NewConsult() *Consult {
	return &Consult{
		requests:      NewCollection[string, models.SarthiRequest](),
		experts:       NewCollection[string, models.Expert](),
		subscriptions: NewCollection[string, models.Subscription](),
		bookings:      NewCollection[string, models.Booking](),
		payments:      NewCollection[string, models.Payment](),
	}
}

func cloneRequest(r models.SarthiRequest) models.SarthiRequest {
	if r.ScheduledAt != nil {
		at := *r.ScheduledAt
		r.ScheduledAt = &at
	}
	return r
}

func (s *Consult) CreateRequest(_ context.Context, r *models.SarthiRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests.Get(r.ID); exists {
		return fmt.Errorf("%w: request %s", database.ErrDuplicate, r.ID)
	}
	s.requests.Put(r.ID, cloneRequest(*r))
	return nil
}

func (s *Consult) GetRequest(_ context.Context, id string) (*models.SarthiRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests.Get(id)
	if !ok {
		return nil, sarthi.ErrRequestNotFound
	}
	out := cloneRequest(r)
	return &out, nil
}

func (s *Consult) UpdateRequest(_ context.Context, id string, fn func(*models.SarthiRequest) error) (*models.SarthiRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests.Get(id)
	if !ok {
		return nil, sarthi.ErrRequestNotFound
	}
	working := cloneRequest(r)
	if err := fn(&working); err != nil {
		return nil, err
	}
	s.requests.Put(id, working)

	out := cloneRequest(working)
	return &out, nil
}

func (s *Consult) ListRequests(_ context.Context, filter sarthi.RequestFilter) ([]models.SarthiRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.requests.Filter(func(r models.SarthiRequest) bool { return filter.Matches(&r) })
	for i := range list {
		list[i] = cloneRequest(list[i])
	}
	return list, nil
}

func (s *Consult) PutExpert(_ context.Context, e *models.Expert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.experts.Put(e.ID, *e)
	return nil
}

func (s *Consult) GetExpert(_ context.Context, id string) (*models.Expert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.experts.Get(id)
	if !ok {
		return nil, sarthi.ErrExpertNotFound
	}
	return &e, nil
}

func (s *Consult) ListExperts(_ context.Context) ([]models.Expert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.experts.List(), nil
}

func cloneSubscription(sub models.Subscription) models.Subscription {
	if sub.StartedAt != nil {
		t := *sub.StartedAt
		sub.StartedAt = &t
	}
	if sub.EndsAt != nil {
		t := *sub.EndsAt
		sub.EndsAt = &t
	}
	return sub
}

func (s *Consult) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions.Get(sub.ID); exists {
		return fmt.Errorf("%w: subscription %s", database.ErrDuplicate, sub.ID)
	}
	s.subscriptions.Put(sub.ID, cloneSubscription(*sub))
	return nil
}

func (s *Consult) GetSubscription(_ context.Context, id string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions.Get(id)
	if !ok {
		return nil, sarthi.ErrSubscriptionNotFound
	}
	out := cloneSubscription(sub)
	return &out, nil
}

func (s *Consult) UpdateSubscription(_ context.Context, id string, fn func(*models.Subscription) error) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions.Get(id)
	if !ok {
		return nil, sarthi.ErrSubscriptionNotFound
	}
	working := cloneSubscription(sub)
	if err := fn(&working); err != nil {
		return nil, err
	}
	s.subscriptions.Put(id, working)

	out := cloneSubscription(working)
	return &out, nil
}

func (s *Consult) ListSubscriptions(_ context.Context, customer string) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.subscriptions.Filter(func(sub models.Subscription) bool {
		return customer == "" || sub.Customer == customer
	})
	for i := range list {
		list[i] = cloneSubscription(list[i])
	}
	return list, nil
}

func (s *Consult) CreateBooking(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bookings.List() {
		if brahma.HoldsSlot(&existing) && brahma.Overlaps(&existing, b) {
			return brahma.ErrSlotTaken
		}
	}
	s.bookings.Put(b.ID, *b)
	return nil
}

func (s *Consult) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings.Get(id)
	if !ok {
		return nil, brahma.ErrBookingNotFound
	}
	return &b, nil
}

func (s *Consult) UpdateBooking(_ context.Context, id string, fn func(*models.Booking) error) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings.Get(id)
	if !ok {
		return nil, brahma.ErrBookingNotFound
	}
	if err := fn(&b); err != nil {
		return nil, err
	}
	s.bookings.Put(id, b)

	out := b
	return &out, nil
}

func (s *Consult) ListBookings(_ context.Context, filter brahma.BookingFilter) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bookings.Filter(func(b models.Booking) bool { return filter.Matches(&b) }), nil
}

func (s *Consult) SavePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments.Put(p.ID, *p)
	return nil
}

func (s *Consult) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments.Get(id)
	if !ok {
		return nil, brahma.ErrPaymentNotFound
	}
	return &p, nil
}

func (s *Consult) ListPayments(_ context.Context) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.payments.List(), nil
}
