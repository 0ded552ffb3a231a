package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied to medicines created without an explicit currency.
const DefaultCurrency = "INR"

// Medicine represents a catalog entry.
type Medicine struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	Usage         string           `json:"usage" db:"usage"`
	Category      string           `json:"category" db:"category"`
	Manufacturer  string           `json:"manufacturer,omitempty" db:"manufacturer"`
	Dosage        string           `json:"dosage,omitempty" db:"dosage"`
	Price         decimal.Decimal  `json:"price" db:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty" db:"discount_price"`
	Currency      string           `json:"currency" db:"currency"`
	Stock         int              `json:"stock" db:"stock"`
	ImageURL      string           `json:"imageUrl,omitempty" db:"image_url"`
	SideEffects   []string         `json:"sideEffects,omitempty" db:"side_effects"`
	ExpiryDate    *time.Time       `json:"expiryDate,omitempty" db:"expiry_date"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}

// EffectivePrice returns the discount price when it is positive and below
// the list price, otherwise the list price.
func (m *Medicine) EffectivePrice() decimal.Decimal {
	if m.DiscountPrice != nil && m.DiscountPrice.IsPositive() && m.DiscountPrice.LessThan(m.Price) {
		return *m.DiscountPrice
	}
	return m.Price
}

// Summary returns the subset of fields shown next to cart lines.
func (m *Medicine) Summary() *MedicineSummary {
	return &MedicineSummary{
		ID:            m.ID,
		Name:          m.Name,
		Price:         m.Price,
		DiscountPrice: m.DiscountPrice,
		Stock:         m.Stock,
		ImageURL:      m.ImageURL,
	}
}

// MedicineSummary is the medicine view embedded in cart lines.
type MedicineSummary struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Stock         int              `json:"stock"`
	ImageURL      string           `json:"imageUrl,omitempty"`
}

// MedicineFilter narrows catalog listings.
type MedicineFilter struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

// CreateMedicineRequest is the payload for adding a medicine to the catalog.
type CreateMedicineRequest struct {
	Name          string           `json:"name" binding:"required"`
	Usage         string           `json:"usage" binding:"required"`
	Category      string           `json:"category" binding:"required"`
	Manufacturer  string           `json:"manufacturer"`
	Dosage        string           `json:"dosage"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
	Currency      string           `json:"currency"`
	Stock         int              `json:"stock"`
	ImageURL      string           `json:"imageUrl"`
	SideEffects   []string         `json:"sideEffects"`
	ExpiryDate    *time.Time       `json:"expiryDate"`
}
