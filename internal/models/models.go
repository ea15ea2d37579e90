package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64            `json:"id" yaml:"id"`
	SKU           string           `json:"sku" yaml:"sku"`
	Name          string           `json:"name" yaml:"name"`
	Category      string           `json:"category" yaml:"category"`
	Description   string           `json:"description,omitempty" yaml:"description"`
	Price         decimal.Decimal  `json:"price" yaml:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty" yaml:"original_price"`
	StockQuantity int              `json:"stock_quantity" yaml:"stock_quantity"`
	Active        bool             `json:"active" yaml:"active"`
	CreatedAt     time.Time        `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time        `json:"updated_at" yaml:"-"`
	Version       int              `json:"version" yaml:"-"`
}

type CartItem struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type WishlistItem struct {
	ProductID int64     `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}

type Address struct {
	ID         int64  `json:"id" yaml:"id"`
	Owner      string `json:"owner" yaml:"owner"`
	Name       string `json:"name" yaml:"name"`
	Phone      string `json:"phone" yaml:"phone"`
	Line1      string `json:"line1" yaml:"line1"`
	Line2      string `json:"line2,omitempty" yaml:"line2"`
	City       string `json:"city" yaml:"city"`
	State      string `json:"state" yaml:"state"`
	PostalCode string `json:"postal_code" yaml:"postal_code"`
	IsDefault  bool   `json:"is_default" yaml:"is_default"`
}

type Order struct {
	ID              int64           `json:"id"`
	Owner           string          `json:"owner"`
	OrderNumber     string          `json:"order_number"`
	Status          OrderStatus     `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryCharge  decimal.Decimal `json:"delivery_charge"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	ShippingAddress Address         `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
	Items           []OrderItem     `json:"items,omitempty"`
	// Notice is set on a freshly placed order when cart lines were left out
	// because their products are gone. It is not stored.
	Notice string `json:"notice,omitempty"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type DeliveryRule struct {
	ID                    int64           `json:"id" yaml:"id"`
	Name                  string          `json:"name" yaml:"name"`
	BaseCharge            decimal.Decimal `json:"base_charge" yaml:"base_charge"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold" yaml:"free_delivery_threshold"`
	Active                bool            `json:"active" yaml:"active"`
}
