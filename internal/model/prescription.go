package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PrescriptionStatus is the review state of a prescription request.
type PrescriptionStatus string

const (
	PrescriptionStatusPending   PrescriptionStatus = "pending"
	PrescriptionStatusInReview  PrescriptionStatus = "in_review"
	PrescriptionStatusCompleted PrescriptionStatus = "completed"
)

// Valid reports whether s is a known prescription status.
func (s PrescriptionStatus) Valid() bool {
	switch s {
	case PrescriptionStatusPending, PrescriptionStatusInReview, PrescriptionStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a request may move from s to next.
// Status only moves forward: pending -> in_review -> completed.
func (s PrescriptionStatus) CanTransitionTo(next PrescriptionStatus) bool {
	switch s {
	case PrescriptionStatusPending:
		return next == PrescriptionStatusInReview || next == PrescriptionStatusCompleted
	case PrescriptionStatusInReview:
		return next == PrescriptionStatusCompleted
	}
	return false
}

// SuggestedMedicine is one pharmacist recommendation.
type SuggestedMedicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// Complete reports whether name, dosage, frequency and duration are all set.
func (m SuggestedMedicine) Complete() bool {
	return strings.TrimSpace(m.Name) != "" &&
		strings.TrimSpace(m.Dosage) != "" &&
		strings.TrimSpace(m.Frequency) != "" &&
		strings.TrimSpace(m.Duration) != ""
}

// PrescriptionRequest is a patient's request for pharmacist advice.
type PrescriptionRequest struct {
	ID                 uuid.UUID           `json:"id" db:"id"`
	PatientID          uuid.UUID           `json:"patientId" db:"patient_id"`
	Symptoms           string              `json:"symptoms" db:"symptoms"`
	Description        string              `json:"description" db:"description"`
	Images             []string            `json:"images" db:"images"`
	Status             PrescriptionStatus  `json:"status" db:"status"`
	PharmacistNotes    string              `json:"pharmacistNotes,omitempty" db:"pharmacist_notes"`
	SuggestedMedicines []SuggestedMedicine `json:"suggestedMedicines" db:"suggested_medicines"`
	RespondedBy        *uuid.UUID          `json:"respondedBy,omitempty" db:"responded_by"`
	RespondedAt        *time.Time          `json:"respondedAt,omitempty" db:"responded_at"`
	CreatedAt          time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time           `json:"updatedAt" db:"updated_at"`
}

// CreatePrescriptionPayload holds the text fields of a new request.
type CreatePrescriptionPayload struct {
	Symptoms    string `json:"symptoms" form:"symptoms"`
	Description string `json:"description" form:"description"`
}

// RespondPrescriptionPayload is a pharmacist's answer to a request.
type RespondPrescriptionPayload struct {
	PharmacistNotes    string              `json:"pharmacistNotes"`
	SuggestedMedicines []SuggestedMedicine `json:"suggestedMedicines"`
}

// UpdatePrescriptionStatusPayload moves a request to a new status.
type UpdatePrescriptionStatusPayload struct {
	Status PrescriptionStatus `json:"status"`
}

// PrescriptionFilter narrows the pharmacist listing.
type PrescriptionFilter struct {
	Status PrescriptionStatus
	Limit  int
	Offset int
}

// PrescriptionPage is one page of prescription requests with totals.
type PrescriptionPage struct {
	Requests []PrescriptionRequest `json:"requests"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	Pages    int                   `json:"pages"`
	Limit    int                   `json:"limit"`
}
