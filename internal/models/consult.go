package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expert struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Specialization string `json:"specialization" yaml:"specialization"`
	Active         bool   `json:"active" yaml:"active"`
}

type SarthiStatus string

const (
	SarthiUnassigned SarthiStatus = "unassigned"
	SarthiAssigned   SarthiStatus = "assigned"
	SarthiScheduled  SarthiStatus = "scheduled"
	SarthiCompleted  SarthiStatus = "completed"
	SarthiCancelled  SarthiStatus = "cancelled"
)

type SarthiRequest struct {
	ID          string       `json:"id"`
	Customer    string       `json:"customer"`
	Problem     string       `json:"problem"`
	Category    string       `json:"category"`
	Status      SarthiStatus `json:"status"`
	ExpertID    string       `json:"expert_id,omitempty"`
	ScheduledAt *time.Time   `json:"scheduled_at,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type PackageTier string

const (
	PackageQuickFix       PackageTier = "quick_fix"
	PackageSustainable    PackageTier = "sustainable"
	PackageTransformation PackageTier = "transformation"
)

// SolutionPackage is a tier sold in the Sarthi feature.
type SolutionPackage struct {
	Tier     PackageTier     `json:"tier"`
	Name     string          `json:"name"`
	Sessions int             `json:"sessions"`
	Validity time.Duration   `json:"validity"`
	Price    decimal.Decimal `json:"price"`
}

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCompleted SubscriptionStatus = "completed"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type Subscription struct {
	ID            string             `json:"id"`
	Customer      string             `json:"customer"`
	Package       PackageTier        `json:"package"`
	Status        SubscriptionStatus `json:"status"`
	ExpertID      string             `json:"expert_id,omitempty"`
	SessionsTotal int                `json:"sessions_total"`
	SessionsUsed  int                `json:"sessions_used"`
	Price         decimal.Decimal    `json:"price"`
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	EndsAt        *time.Time         `json:"ends_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingProcessing     BookingStatus = "payment_processing"
	BookingPaymentFailed  BookingStatus = "payment_failed"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingInProgress     BookingStatus = "in_progress"
	BookingCompleted      BookingStatus = "completed"
	BookingNoShow         BookingStatus = "no_show"
	BookingCancelled      BookingStatus = "cancelled"
)

type Booking struct {
	ID        string          `json:"id"`
	Customer  string          `json:"customer"`
	ExpertID  string          `json:"expert_id"`
	Kind      string          `json:"kind"`
	Status    BookingStatus   `json:"status"`
	SlotStart time.Time       `json:"slot_start"`
	Duration  time.Duration   `json:"duration"`
	Fee       decimal.Decimal `json:"fee"`
	PaymentID string          `json:"payment_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Status    PaymentStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
