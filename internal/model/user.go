package model

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what an authenticated user may do.
type Role string

const (
	RolePatient    Role = "patient"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

// User is a registered account.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Phone        string     `json:"phone,omitempty" db:"phone"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	Role         Role       `json:"role" db:"role"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name        string     `json:"name" binding:"required"`
	Email       string     `json:"email" binding:"required,email"`
	Password    string     `json:"password" binding:"required"`
	Phone       string     `json:"phone"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Role        Role       `json:"role"`
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the account and a freshly issued token.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
