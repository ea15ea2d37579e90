package workflow

import "github.com/safar/kavach-store/internal/models"

type OrderEvent string

const (
	OrderConfirm OrderEvent = "confirm"
	OrderShip    OrderEvent = "ship"
	OrderDeliver OrderEvent = "deliver"
	OrderCancel  OrderEvent = "cancel"
)

var Order = NewMachine("kavach order", models.OrderStatusPending, []Transition[models.OrderStatus, OrderEvent]{
	{models.OrderStatusPending, OrderConfirm, models.OrderStatusConfirmed},
	{models.OrderStatusConfirmed, OrderShip, models.OrderStatusShipped},
	{models.OrderStatusShipped, OrderDeliver, models.OrderStatusDelivered},
	{models.OrderStatusPending, OrderCancel, models.OrderStatusCancelled},
	{models.OrderStatusConfirmed, OrderCancel, models.OrderStatusCancelled},
	{models.OrderStatusShipped, OrderCancel, models.OrderStatusCancelled},
})

type SarthiEvent string

const (
	SarthiAssign     SarthiEvent = "assign"
	SarthiReassign   SarthiEvent = "reassign"
	SarthiSchedule   SarthiEvent = "schedule"
	SarthiReschedule SarthiEvent = "reschedule"
	SarthiComplete   SarthiEvent = "complete"
	SarthiCancel     SarthiEvent = "cancel"
)

var Sarthi = NewMachine("sarthi request", models.SarthiUnassigned, []Transition[models.SarthiStatus, SarthiEvent]{
	{models.SarthiUnassigned, SarthiAssign, models.SarthiAssigned},
	{models.SarthiAssigned, SarthiReassign, models.SarthiAssigned},
	{models.SarthiAssigned, SarthiSchedule, models.SarthiScheduled},
	{models.SarthiScheduled, SarthiReschedule, models.SarthiScheduled},
	{models.SarthiScheduled, SarthiComplete, models.SarthiCompleted},
	{models.SarthiUnassigned, SarthiCancel, models.SarthiCancelled},
	{models.SarthiAssigned, SarthiCancel, models.SarthiCancelled},
	{models.SarthiScheduled, SarthiCancel, models.SarthiCancelled},
})

type BookingEvent string

const (
	BookingCharge   BookingEvent = "charge"
	BookingPay      BookingEvent = "pay"
	BookingFail     BookingEvent = "fail"
	BookingRetry    BookingEvent = "retry"
	BookingStart    BookingEvent = "start"
	BookingComplete BookingEvent = "complete"
	BookingNoShow   BookingEvent = "no_show"
	BookingCancel   BookingEvent = "cancel"
)

var Booking = NewMachine("brahma booking", models.BookingPendingPayment, []Transition[models.BookingStatus, BookingEvent]{
	{models.BookingPendingPayment, BookingCharge, models.BookingProcessing},
	{models.BookingProcessing, BookingPay, models.BookingConfirmed},
	{models.BookingProcessing, BookingFail, models.BookingPaymentFailed},
	{models.BookingPaymentFailed, BookingRetry, models.BookingPendingPayment},
	{models.BookingConfirmed, BookingStart, models.BookingInProgress},
	{models.BookingInProgress, BookingComplete, models.BookingCompleted},
	{models.BookingConfirmed, BookingNoShow, models.BookingNoShow},
	{models.BookingPendingPayment, BookingCancel, models.BookingCancelled},
	{models.BookingPaymentFailed, BookingCancel, models.BookingCancelled},
	{models.BookingConfirmed, BookingCancel, models.BookingCancelled},
})

type SubscriptionEvent string

const (
	SubscriptionActivate SubscriptionEvent = "activate"
	SubscriptionPause    SubscriptionEvent = "pause"
	SubscriptionResume   SubscriptionEvent = "resume"
	SubscriptionExhaust  SubscriptionEvent = "exhaust"
	SubscriptionExpire   SubscriptionEvent = "expire"
	SubscriptionCancel   SubscriptionEvent = "cancel"
)

var Subscription = NewMachine("subscription", models.SubscriptionPending, []Transition[models.SubscriptionStatus, SubscriptionEvent]{
	{models.SubscriptionPending, SubscriptionActivate, models.SubscriptionActive},
	{models.SubscriptionActive, SubscriptionPause, models.SubscriptionPaused},
	{models.SubscriptionPaused, SubscriptionResume, models.SubscriptionActive},
	{models.SubscriptionActive, SubscriptionExhaust, models.SubscriptionCompleted},
	{models.SubscriptionActive, SubscriptionExpire, models.SubscriptionExpired},
	{models.SubscriptionPaused, SubscriptionExpire, models.SubscriptionExpired},
	{models.SubscriptionPending, SubscriptionCancel, models.SubscriptionCancelled},
	{models.SubscriptionActive, SubscriptionCancel, models.SubscriptionCancelled},
	{models.SubscriptionPaused, SubscriptionCancel, models.SubscriptionCancelled},
})
