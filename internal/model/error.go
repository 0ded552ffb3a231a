package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind classifies domain errors for transport mapping.
type ErrorKind string

const (
	KindInternal          ErrorKind = "internal"
	KindNotFound          ErrorKind = "not_found"
	KindValidation        ErrorKind = "validation"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindAccessDenied      ErrorKind = "access_denied"
	KindInvalidState      ErrorKind = "invalid_state"
	KindUnauthenticated   ErrorKind = "unauthenticated"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeMedicineNotFound     = "MEDICINE_NOT_FOUND"
	ErrCodeCartNotFound         = "CART_NOT_FOUND"
	ErrCodeCartItemNotFound     = "CART_ITEM_NOT_FOUND"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodePrescriptionNotFound = "PRESCRIPTION_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeUserExists           = "USER_EXISTS"
	ErrCodeInsufficientStock    = "INSUFFICIENT_STOCK"
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// DomainError is a business rule failure with a kind, a code and a human
// readable message.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error with the given message.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(KindValidation, ErrCodeValidation, fmt.Sprintf(format, args...))
}

// NewInvalidStateError creates an error for a disallowed state transition.
func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(KindInvalidState, ErrCodeInvalidState, fmt.Sprintf(format, args...))
}

// NewAccessDeniedError creates an authorization failure.
func NewAccessDeniedError(message string) *DomainError {
	return NewDomainError(KindAccessDenied, ErrCodeForbidden, message)
}

// NewInsufficientStockError names the medicine that cannot be supplied.
func NewInsufficientStockError(name string) *DomainError {
	return NewDomainError(KindInsufficientStock, ErrCodeInsufficientStock, "Insufficient stock for "+name)
}

// NewMedicineNotFoundError names the missing medicine id.
func NewMedicineNotFoundError(id uuid.UUID) *DomainError {
	return NewDomainError(KindNotFound, ErrCodeMedicineNotFound, "Medicine not found: "+id.String())
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrMedicineNotFound      = NewDomainError(KindNotFound, ErrCodeMedicineNotFound, "Medicine not found")
	ErrCartNotFound          = NewDomainError(KindNotFound, ErrCodeCartNotFound, "Cart not found")
	ErrCartItemNotFound      = NewDomainError(KindNotFound, ErrCodeCartItemNotFound, "Item not found in cart")
	ErrOrderNotFound         = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrPrescriptionNotFound  = NewDomainError(KindNotFound, ErrCodePrescriptionNotFound, "Prescription request not found")
	ErrUserNotFound          = NewDomainError(KindNotFound, ErrCodeUserNotFound, "User not found")
	ErrInvalidQuantity       = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity must be at least 1")
	ErrEmptyCart             = NewDomainError(KindValidation, ErrCodeValidation, "Cart is empty")
	ErrUserExists            = NewDomainError(KindValidation, ErrCodeUserExists, "User already exists")
	ErrInsufficientStock     = NewDomainError(KindInsufficientStock, ErrCodeInsufficientStock, "Insufficient stock")
	ErrInvalidCredentials    = NewDomainError(KindUnauthenticated, ErrCodeInvalidCredentials, "Invalid email or password")
	ErrAccessDenied          = NewAccessDeniedError("Access denied")
	ErrOrderNotCancellable   = NewInvalidStateError("Order cannot be cancelled at this stage")
	ErrOrderCancelled        = NewInvalidStateError("Cancelled orders cannot be updated")
	ErrPrescriptionCompleted = NewInvalidStateError("This request has already been completed")
	ErrCartConflict          = NewInvalidStateError("Cart was changed by another request, please retry")
)
