package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medi-kart/internal/auth"
	"medi-kart/internal/model"
	"medi-kart/internal/repository"
	"medi-kart/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UploadLimits bounds the images attached to a prescription request.
type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

// prescriptionService implements PrescriptionService.
type prescriptionService struct {
	repo   repository.PrescriptionRepository
	store  storage.Store
	policy *auth.Policy
	limits UploadLimits
	logger zerolog.Logger
	now    func() time.Time
}

// NewPrescriptionService creates a new prescription workflow service.
func NewPrescriptionService(
	repo repository.PrescriptionRepository,
	store storage.Store,
	policy *auth.Policy,
	limits UploadLimits,
	logger zerolog.Logger,
) PrescriptionService {
	return &prescriptionService{
		repo:   repo,
		store:  store,
		policy: policy,
		limits: limits,
		logger: logger.With().Str("service", "prescription").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the attached images and records a pending request.
func (s *prescriptionService) Create(ctx context.Context, principal model.Principal, payload *model.CreatePrescriptionPayload, files []storage.File) (*model.PrescriptionRequest, error) {
	if err := s.policy.Authorize(auth.OpCreatePrescription, principal); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, model.NewValidationError("Symptoms and description are required")
	}

	symptoms := strings.TrimSpace(payload.Symptoms)
	description := strings.TrimSpace(payload.Description)
	if symptoms == "" || description == "" {
		return nil, model.NewValidationError("Symptoms and description are required")
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	images := make([]string, 0, len(files))
	for _, f := range files {
		ref, err := s.store.Save(ctx, f)
		if err != nil {
			s.logger.Error().Err(err).Str("file", f.Name).Msg("failed to store prescription image")
			s.logOrphans(images)
			return nil, fmt.Errorf("failed to store image %s: %w", f.Name, err)
		}
		images = append(images, ref)
	}

	now := s.now()
	req := &model.PrescriptionRequest{
		ID:                 uuid.New(),
		PatientID:          principal.UserID,
		Symptoms:           symptoms,
		Description:        description,
		Images:             images,
		Status:             model.PrescriptionStatusPending,
		SuggestedMedicines: []model.SuggestedMedicine{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, req); err != nil {
		s.logOrphans(images)
		return nil, fmt.Errorf("failed to create prescription request: %w", err)
	}

	s.logger.Info().
		Str("prescription_id", req.ID.String()).
		Int("images", len(images)).
		Msg("prescription request created")

	return req, nil
}

// logOrphans records images that were stored for a request that was never
// created, so they can be cleaned up out of band.
func (s *prescriptionService) logOrphans(images []string) {
	if len(images) == 0 {
		return
	}
	s.logger.Warn().Strs("images", images).Msg("stored prescription images left without a request")
}

func (s *prescriptionService) validateFiles(files []storage.File) error {
	if len(files) > s.limits.MaxFiles {
		return model.NewValidationError("A maximum of %d images may be uploaded", s.limits.MaxFiles)
	}
	for _, f := range files {
		if !storage.IsImage(f.ContentType) {
			return model.NewValidationError("Only image files are allowed: %s", f.Name)
		}
		if s.limits.MaxFileSize > 0 && f.Size > s.limits.MaxFileSize {
			return model.NewValidationError("Image %s exceeds the %d byte limit", f.Name, s.limits.MaxFileSize)
		}
	}
	return nil
}

// ListForPatient retrieves the caller's own requests, newest first.
func (s *prescriptionService) ListForPatient(ctx context.Context, principal model.Principal) ([]model.PrescriptionRequest, error) {
	if err := s.policy.Authorize(auth.OpListOwnPrescriptions, principal); err != nil {
		return nil, err
	}

	requests, err := s.repo.ListByPatient(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescription requests: %w", err)
	}
	return requests, nil
}

// ListAll retrieves a page of requests. An unknown status filter is ignored.
func (s *prescriptionService) ListAll(ctx context.Context, principal model.Principal, query model.ListQuery) (*model.PrescriptionPage, error) {
	if err := s.policy.Authorize(auth.OpListAllPrescriptions, principal); err != nil {
		return nil, err
	}

	var status model.PrescriptionStatus
	if candidate := model.PrescriptionStatus(query.Status); candidate.Valid() {
		status = candidate
	}

	page, limit, offset := normalisePage(query.Page, query.Limit)
	requests, total, err := s.repo.List(ctx, model.PrescriptionFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list prescription requests: %w", err)
	}

	return &model.PrescriptionPage{
		Requests: requests,
		Total:    total,
		Page:     page,
		Pages:    model.Pages(total, limit),
		Limit:    limit,
	}, nil
}

// Get retrieves a request. Patients may only see their own.
func (s *prescriptionService) Get(ctx context.Context, principal model.Principal, id string) (*model.PrescriptionRequest, error) {
	if err := s.policy.Authorize(auth.OpViewPrescription, principal); err != nil {
		return nil, err
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.PatientID != principal.UserID && !s.policy.Allows(auth.OpViewAnyPrescription, principal.Role) {
		return nil, model.ErrAccessDenied
	}
	return req, nil
}

// Respond records the pharmacist's advice and completes the request.
func (s *prescriptionService) Respond(ctx context.Context, principal model.Principal, id string, payload *model.RespondPrescriptionPayload) (*model.PrescriptionRequest, error) {
	if err := s.policy.Authorize(auth.OpRespondPrescription, principal); err != nil {
		return nil, err
	}
	if err := validateResponse(payload); err != nil {
		return nil, err
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == model.PrescriptionStatusCompleted {
		return nil, model.ErrPrescriptionCompleted
	}

	expected := req.Status
	now := s.now()
	responder := principal.UserID
	req.Status = model.PrescriptionStatusCompleted
	req.PharmacistNotes = payload.PharmacistNotes
	req.SuggestedMedicines = payload.SuggestedMedicines
	req.RespondedBy = &responder
	req.RespondedAt = &now
	req.UpdatedAt = now

	applied, err := s.repo.Update(ctx, req, expected)
	if err != nil {
		return nil, fmt.Errorf("failed to respond to prescription request: %w", err)
	}
	if !applied {
		// a concurrent response completed it first
		return nil, model.ErrPrescriptionCompleted
	}

	s.logger.Info().
		Str("prescription_id", req.ID.String()).
		Str("pharmacist_id", responder.String()).
		Int("suggested", len(req.SuggestedMedicines)).
		Msg("prescription request answered")

	return req, nil
}

func validateResponse(payload *model.RespondPrescriptionPayload) error {
	if payload == nil || strings.TrimSpace(payload.PharmacistNotes) == "" || len(payload.SuggestedMedicines) == 0 {
		return model.NewValidationError("Pharmacist notes and suggested medicines are required")
	}
	for _, m := range payload.SuggestedMedicines {
		if !m.Complete() {
			return model.NewValidationError("Each medicine must have name, dosage, frequency, and duration")
		}
	}
	return nil
}

// UpdateStatus moves a request forward through its review states.
func (s *prescriptionService) UpdateStatus(ctx context.Context, principal model.Principal, id string, status model.PrescriptionStatus) (*model.PrescriptionRequest, error) {
	if err := s.policy.Authorize(auth.OpUpdatePrescriptionStatus, principal); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, model.NewValidationError("Invalid status: %q", status)
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := req.Status
	if expected == model.PrescriptionStatusCompleted {
		return nil, model.ErrPrescriptionCompleted
	}
	if !expected.CanTransitionTo(status) {
		return nil, model.NewInvalidStateError("Cannot move request from %s to %s", expected, status)
	}

	req.Status = status
	req.UpdatedAt = s.now()

	applied, err := s.repo.Update(ctx, req, expected)
	if err != nil {
		return nil, fmt.Errorf("failed to update prescription status: %w", err)
	}
	if !applied {
		return nil, model.NewInvalidStateError("Request status changed concurrently, please retry")
	}

	s.logger.Info().
		Str("prescription_id", req.ID.String()).
		Str("from", string(expected)).
		Str("to", string(status)).
		Msg("prescription status updated")

	return req, nil
}

func (s *prescriptionService) load(ctx context.Context, id string) (*model.PrescriptionRequest, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, model.ErrPrescriptionNotFound
	}

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prescription request: %w", err)
	}
	if req == nil {
		return nil, model.ErrPrescriptionNotFound
	}
	return req, nil
}
