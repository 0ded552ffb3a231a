package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"medi-kart/internal/model"
	"medi-kart/internal/service"
	"medi-kart/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// imagesField is the multipart field carrying prescription images.
const imagesField = "images"

// PrescriptionHandler handles the prescription request workflow.
type PrescriptionHandler struct {
	service service.PrescriptionService
	logger  zerolog.Logger
}

// NewPrescriptionHandler creates a new prescription handler.
func NewPrescriptionHandler(service service.PrescriptionService, logger zerolog.Logger) *PrescriptionHandler {
	return &PrescriptionHandler{
		service: service,
		logger:  logger.With().Str("handler", "prescription").Logger(),
	}
}

// Create godoc
// @Summary Submit a prescription request
// @Tags prescriptions
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param symptoms formData string true "Symptoms"
// @Param description formData string true "Description"
// @Param images formData file false "Up to 5 images"
// @Success 201 {object} model.Response{data=model.PrescriptionRequest}
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /prescription/requests [post]
func (h *PrescriptionHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var payload model.CreatePrescriptionPayload
	var files []storage.File

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			writeBindError(c, err, h.logger)
			return
		}
		payload.Symptoms = c.PostForm("symptoms")
		payload.Description = c.PostForm("description")

		opened, closeAll, err := openFiles(form.File[imagesField])
		defer closeAll()
		if err != nil {
			writeBindError(c, err, h.logger)
			return
		}
		files = opened
	} else if err := c.ShouldBindJSON(&payload); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	req, err := h.service.Create(c.Request.Context(), p, &payload, files)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusCreated, "Prescription request submitted successfully", req)
}

// openFiles opens every uploaded part. The returned func closes whatever
// was opened, including on error.
func openFiles(headers []*multipart.FileHeader) ([]storage.File, func(), error) {
	files := make([]storage.File, 0, len(headers))
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, storage.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return files, closeAll, nil
}

// ListMine godoc
// @Summary List the caller's prescription requests
// @Tags prescriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ListResponse{data=[]model.PrescriptionRequest}
// @Failure 403 {object} model.ErrorResponse
// @Router /prescription/patient/requests [get]
func (h *PrescriptionHandler) ListMine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	requests, err := h.service.ListForPatient(c.Request.Context(), p)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, model.ListResponse{Success: true, Count: len(requests), Data: requests})
}

// ListAll godoc
// @Summary List prescription requests for review
// @Tags prescriptions
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, in_review or completed"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} model.ListResponse{data=[]model.PrescriptionRequest}
// @Failure 403 {object} model.ErrorResponse
// @Router /prescription/pharmacist/requests [get]
func (h *PrescriptionHandler) ListAll(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	page, err := h.service.ListAll(c.Request.Context(), p, listQuery(c))
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, model.ListResponse{
		Success: true,
		Count:   len(page.Requests),
		Total:   page.Total,
		Page:    page.Page,
		Pages:   page.Pages,
		Data:    page.Requests,
	})
}

// Get godoc
// @Summary Get a prescription request
// @Tags prescriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} model.Response{data=model.PrescriptionRequest}
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /prescription/requests/{id} [get]
func (h *PrescriptionHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	req, err := h.service.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "", req)
}

// Respond godoc
// @Summary Answer a prescription request
// @Tags prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param input body model.RespondPrescriptionPayload true "Pharmacist response"
// @Success 200 {object} model.Response{data=model.PrescriptionRequest}
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /prescription/requests/{id} [put]
func (h *PrescriptionHandler) Respond(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var payload model.RespondPrescriptionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	req, err := h.service.Respond(c.Request.Context(), p, c.Param("id"), &payload)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "Response sent successfully", req)
}

// UpdateStatus godoc
// @Summary Move a prescription request to a new status
// @Tags prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param input body model.UpdatePrescriptionStatusPayload true "Status"
// @Success 200 {object} model.Response{data=model.PrescriptionRequest}
// @Failure 400 {object} model.ErrorResponse
// @Router /prescription/requests/{id}/status [patch]
func (h *PrescriptionHandler) UpdateStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var payload model.UpdatePrescriptionStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	req, err := h.service.UpdateStatus(c.Request.Context(), p, c.Param("id"), payload.Status)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "Status updated", req)
}
