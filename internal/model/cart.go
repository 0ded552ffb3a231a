package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a user's single shopping cart.
type Cart struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"userId" db:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// CartItem is one line of a cart. Price is the effective price captured
// when the line was first added.
type CartItem struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	MedicineID uuid.UUID        `json:"medicineId" db:"medicine_id"`
	Quantity   int              `json:"quantity" db:"quantity"`
	Price      decimal.Decimal  `json:"price" db:"price"`
	Medicine   *MedicineSummary `json:"medicine,omitempty"`
}

// IndexOfMedicine returns the index of the line holding the medicine, or -1.
func (c *Cart) IndexOfMedicine(medicineID uuid.UUID) int {
	for i, item := range c.Items {
		if item.MedicineID == medicineID {
			return i
		}
	}
	return -1
}

// IndexOfItem returns the index of the line with the given id, or -1.
func (c *Cart) IndexOfItem(itemID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// TotalItems sums line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalAmount sums price times quantity over all lines.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(LineTotal(item.Price, item.Quantity))
	}
	return total
}

// CartResponse is the cart view returned by every cart operation.
type CartResponse struct {
	ID          *uuid.UUID      `json:"id,omitempty"`
	Items       []CartItem      `json:"items"`
	TotalItems  int             `json:"totalItems"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// NewCartResponse builds the view for a cart. A nil cart yields an empty view.
func NewCartResponse(c *Cart) *CartResponse {
	if c == nil {
		return &CartResponse{Items: []CartItem{}, TotalAmount: decimal.Zero}
	}

	items := c.Items
	if items == nil {
		items = []CartItem{}
	}

	id := c.ID
	updatedAt := c.UpdatedAt
	return &CartResponse{
		ID:          &id,
		Items:       items,
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount(),
		UpdatedAt:   &updatedAt,
	}
}

// AddCartItemRequest is the payload for adding a medicine to the cart.
// A nil Quantity means one unit.
type AddCartItemRequest struct {
	MedicineID string `json:"medicineId" binding:"required"`
	Quantity   *int   `json:"quantity"`
}

// UpdateCartItemRequest sets the quantity of an existing cart line.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
