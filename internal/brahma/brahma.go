// Package brahma books paid astrology consultations with experts and
// tracks their payments.
package brahma

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/workflow"
	"github.com/shopspring/decimal"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrSlotTaken       = errors.New("expert already has a booking in that slot")
	ErrUnknownKind     = errors.New("unknown consultation kind")
	ErrExpertInactive  = errors.New("expert is not taking bookings")
	ErrInvalidInput    = errors.New("invalid input")
)

// Consultation is a bookable kind of session.
type Consultation struct {
	Kind     string          `json:"kind"`
	Name     string          `json:"name"`
	Duration time.Duration   `json:"duration"`
	Fee      decimal.Decimal `json:"fee"`
}

var consultations = []Consultation{
	{Kind: "chat", Name: "Chat consultation", Duration: 20 * time.Minute, Fee: decimal.NewFromInt(499)},
	{Kind: "call", Name: "Call consultation", Duration: 30 * time.Minute, Fee: decimal.NewFromInt(999)},
	{Kind: "video", Name: "Video consultation", Duration: 45 * time.Minute, Fee: decimal.NewFromInt(1499)},
}

func Consultations() []Consultation {
	return append([]Consultation(nil), consultations...)
}

func ConsultationKind(kind string) (Consultation, error) {
	for _, c := range consultations {
		if c.Kind == kind {
			return c, nil
		}
	}
	return Consultation{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// HoldsSlot reports whether b still occupies its expert's time.
func HoldsSlot(b *models.Booking) bool {
	switch b.Status {
	case models.BookingCancelled, models.BookingPaymentFailed:
		return false
	}
	return true
}

// Overlaps reports whether a and b are for the same expert and their time
// ranges intersect. Touching ranges do not overlap.
func Overlaps(a, b *models.Booking) bool {
	if a.ExpertID != b.ExpertID {
		return false
	}
	aEnd := a.SlotStart.Add(a.Duration)
	bEnd := b.SlotStart.Add(b.Duration)
	return a.SlotStart.Before(bEnd) && b.SlotStart.Before(aEnd)
}

type BookingFilter struct {
	Customer string
	ExpertID string
	Status   models.BookingStatus
}

func (f BookingFilter) Matches(b *models.Booking) bool {
	if f.Customer != "" && b.Customer != f.Customer {
		return false
	}
	if f.ExpertID != "" && b.ExpertID != f.ExpertID {
		return false
	}
	return f.Status == "" || b.Status == f.Status
}

// Repository stores bookings and payments. CreateBooking must reject, with
// ErrSlotTaken, a booking that Overlaps another booking that HoldsSlot.
// UpdateBooking saves only when fn returns nil.
type Repository interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, id string, fn func(*models.Booking) error) (*models.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error)

	SavePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPayments(ctx context.Context) ([]models.Payment, error)
}

type ExpertDirectory interface {
	GetExpert(ctx context.Context, id string) (*models.Expert, error)
}

type Service struct {
	repo    Repository
	experts ExpertDirectory
	gateway PaymentGateway
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, experts ExpertDirectory, gateway PaymentGateway, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		experts: experts,
		gateway: gateway,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type BookRequest struct {
	Customer  string    `json:"customer"`
	ExpertID  string    `json:"expert_id"`
	Kind      string    `json:"kind"`
	SlotStart time.Time `json:"slot_start"`
}

// Book reserves an expert's slot. The booking waits for payment.
func (s *Service) Book(ctx context.Context, req BookRequest) (*models.Booking, error) {
	if req.Customer == "" {
		return nil, fmt.Errorf("%w: customer is required", ErrInvalidInput)
	}
	kind, err := ConsultationKind(req.Kind)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !req.SlotStart.After(now) {
		return nil, fmt.Errorf("%w: slot must be in the future", ErrInvalidInput)
	}

	expert, err := s.experts.GetExpert(ctx, req.ExpertID)
	if err != nil {
		return nil, err
	}
	if !expert.Active {
		return nil, fmt.Errorf("%w: %s", ErrExpertInactive, expert.Name)
	}

	b := &models.Booking{
		ID:        uuid.NewString(),
		Customer:  req.Customer,
		ExpertID:  expert.ID,
		Kind:      kind.Kind,
		Status:    workflow.Booking.Initial(),
		SlotStart: req.SlotStart,
		Duration:  kind.Duration,
		Fee:       kind.Fee,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateBooking(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	return s.repo.ListBookings(ctx, filter)
}

func (s *Service) Payments(ctx context.Context) ([]models.Payment, error) {
	return s.repo.ListPayments(ctx)
}

func (s *Service) fire(ctx context.Context, id string, event workflow.BookingEvent, apply func(b *models.Booking)) (*models.Booking, error) {
	return s.repo.UpdateBooking(ctx, id, func(b *models.Booking) error {
		next, err := workflow.Booking.Fire(b.Status, event)
		if err != nil {
			return err
		}
		b.Status = next
		b.UpdatedAt = s.now()
		if apply != nil {
			apply(b)
		}
		return nil
	})
}

// Pay charges the booking fee. The booking is moved to payment_processing
// before the gateway is called, so a second Pay on the same booking fails
// with an illegal transition instead of charging again. On success the
// booking is confirmed; a declined or abandoned charge moves it to
// payment_failed and the gateway error is returned along with the updated
// booking.
func (s *Service) Pay(ctx context.Context, id, method string) (*models.Booking, error) {
	b, err := s.fire(ctx, id, workflow.BookingCharge, nil)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		Reference: b.ID,
		Amount:    b.Fee,
		Method:    method,
		Status:    models.PaymentPending,
		CreatedAt: s.now(),
	}

	txn, chargeErr := s.gateway.Charge(ctx, ChargeRequest{Reference: b.ID, Amount: b.Fee, Method: method})
	if chargeErr != nil {
		payment.ID = "failed_" + uuid.NewString()
		payment.Status = models.PaymentFailed
		if err := s.repo.SavePayment(ctx, payment); err != nil {
			return nil, err
		}
		failed, err := s.fire(ctx, id, workflow.BookingFail, func(b *models.Booking) {
			b.PaymentID = payment.ID
		})
		if err != nil {
			return nil, err
		}
		return failed, fmt.Errorf("pay booking %s: %w", id, chargeErr)
	}

	payment.ID = txn
	payment.Status = models.PaymentSucceeded
	if err := s.repo.SavePayment(ctx, payment); err != nil {
		return nil, err
	}
	return s.fire(ctx, id, workflow.BookingPay, func(b *models.Booking) {
		b.PaymentID = txn
	})
}

// RetryPayment puts a failed booking back to pending_payment.
func (s *Service) RetryPayment(ctx context.Context, id string) (*models.Booking, error) {
	return s.fire(ctx, id, workflow.BookingRetry, nil)
}

func (s *Service) Start(ctx context.Context, id string) (*models.Booking, error) {
	return s.fire(ctx, id, workflow.BookingStart, nil)
}

func (s *Service) Complete(ctx context.Context, id string) (*models.Booking, error) {
	return s.fire(ctx, id, workflow.BookingComplete, nil)
}

func (s *Service) NoShow(ctx context.Context, id string) (*models.Booking, error) {
	return s.fire(ctx, id, workflow.BookingNoShow, nil)
}

// Cancel cancels the booking and refunds its fee if it was paid. The
// booking is cancelled first, so only one caller gets to refund. If the
// refund fails the booking stays cancelled, the payment stays succeeded and
// the error is returned with the booking.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	var paymentID string
	cancelled, err := s.fire(ctx, id, workflow.BookingCancel, func(b *models.Booking) {
		paymentID = b.PaymentID
	})
	if err != nil {
		return nil, err
	}
	if paymentID == "" {
		return cancelled, nil
	}

	p, err := s.repo.GetPayment(ctx, paymentID)
	if errors.Is(err, ErrPaymentNotFound) {
		return cancelled, nil
	}
	if err != nil {
		return cancelled, err
	}
	if p.Status != models.PaymentSucceeded {
		return cancelled, nil
	}

	if err := s.gateway.Refund(ctx, p.ID, p.Amount); err != nil {
		return cancelled, fmt.Errorf("refund booking %s: %w", id, err)
	}
	p.Status = models.PaymentRefunded
	if err := s.repo.SavePayment(ctx, p); err != nil {
		return cancelled, err
	}
	return cancelled, nil
}
