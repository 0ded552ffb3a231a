package model

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPacked,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// AdminSettable reports whether an administrator may set s explicitly.
func (s OrderStatus) AdminSettable() bool {
	return s.Valid() && s != OrderStatusPending
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodUPI            PaymentMethod = "upi"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCashOnDelivery, PaymentMethodUPI:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of the order amount.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// ShippingAddress is the delivery destination of an order.
type ShippingAddress struct {
	FullName string `json:"fullName" db:"shipping_full_name"`
	Address  string `json:"address" db:"shipping_address"`
	City     string `json:"city" db:"shipping_city"`
	State    string `json:"state" db:"shipping_state"`
	ZipCode  string `json:"zipCode" db:"shipping_zip_code"`
	Phone    string `json:"phone" db:"shipping_phone"`
}

// MissingFields returns the JSON names of blank fields.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"address", a.Address},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
		{"phone", a.Phone},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Order is a placed order. Items and totals are fixed at creation.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"orderId" db:"order_number"`
	UserID          uuid.UUID       `json:"userId" db:"user_id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	Status          OrderStatus     `json:"orderStatus" db:"order_status"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shippingFee" db:"shipping_fee"`
	Tax             decimal.Decimal `json:"tax" db:"tax"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	DeliveryDate    *time.Time      `json:"deliveryDate,omitempty" db:"delivery_date"`
	TrackingNumber  *string         `json:"trackingNumber,omitempty" db:"tracking_number"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a snapshotted order line.
type OrderItem struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	OrderID    uuid.UUID       `json:"-" db:"order_id"`
	MedicineID uuid.UUID       `json:"medicineId" db:"medicine_id"`
	Name       string          `json:"name" db:"name"`
	Quantity   int             `json:"quantity" db:"quantity"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Total      decimal.Decimal `json:"total" db:"total"`
}

// ApplyTotals copies computed totals onto the order.
func (o *Order) ApplyTotals(t Totals) {
	o.Subtotal = t.Subtotal
	o.ShippingFee = t.ShippingFee
	o.Tax = t.Tax
	o.TotalAmount = t.TotalAmount
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber returns a display identifier of the form ORD-<6 digits>-<3 chars>.
func NewOrderNumber(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}

	suffix := make([]byte, 3)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.IntN(len(orderNumberAlphabet))]
	}

	return fmt.Sprintf("ORD-%s-%s", ms, suffix)
}

// PlaceOrderRequest is the payload for placing an order. When CartItems is
// empty the order is built from the caller's stored cart.
type PlaceOrderRequest struct {
	ShippingAddress ShippingAddress    `json:"shippingAddress"`
	PaymentMethod   PaymentMethod      `json:"paymentMethod"`
	CartItems       []OrderItemRequest `json:"cartItems,omitempty"`
}

// OrderItemRequest is a client-supplied order line.
type OrderItemRequest struct {
	MedicineID string `json:"medicineId"`
	Quantity   int    `json:"quantity"`
}

// UpdateOrderStatusRequest is the administrator status update payload.
type UpdateOrderStatusRequest struct {
	OrderStatus    OrderStatus `json:"orderStatus"`
	TrackingNumber string      `json:"trackingNumber,omitempty"`
}

// OrderFilter narrows the administrator order listing.
type OrderFilter struct {
	Status OrderStatus
	Limit  int
	Offset int
}

// ListQuery carries page-based listing parameters from the HTTP layer.
type ListQuery struct {
	Status string
	Page   int
	Limit  int
}

// OrderPage is one page of orders with totals.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
	Limit  int     `json:"limit"`
}
