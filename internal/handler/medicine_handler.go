package handler

import (
	"math"
	"net/http"

	"medi-kart/internal/model"
	"medi-kart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MedicineHandler handles catalog requests.
type MedicineHandler struct {
	service service.MedicineService
	logger  zerolog.Logger
}

// NewMedicineHandler creates a new medicine handler.
func NewMedicineHandler(service service.MedicineService, logger zerolog.Logger) *MedicineHandler {
	return &MedicineHandler{
		service: service,
		logger:  logger.With().Str("handler", "medicine").Logger(),
	}
}

// List godoc
// @Summary List medicines
// @Tags medicines
// @Produce json
// @Param category query string false "Category"
// @Param search query string false "Name or usage contains"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} model.ListResponse{data=[]model.Medicine}
// @Failure 500 {object} model.ErrorResponse
// @Router /medicines [get]
func (h *MedicineHandler) List(c *gin.Context) {
	query := listQuery(c)
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	limit = min(limit, 100)
	page := min(max(query.Page, 1), math.MaxInt32/limit+1)

	medicines, total, err := h.service.List(c.Request.Context(), model.MedicineFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, model.ListResponse{
		Success: true,
		Count:   len(medicines),
		Total:   total,
		Page:    page,
		Pages:   model.Pages(total, limit),
		Data:    medicines,
	})
}

// Get godoc
// @Summary Get a medicine
// @Tags medicines
// @Produce json
// @Param id path string true "Medicine ID"
// @Success 200 {object} model.Response{data=model.Medicine}
// @Failure 404 {object} model.ErrorResponse
// @Router /medicines/{id} [get]
func (h *MedicineHandler) Get(c *gin.Context) {
	m, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "", m)
}

// Create godoc
// @Summary Add a medicine to the catalog
// @Tags medicines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body model.CreateMedicineRequest true "Medicine"
// @Success 201 {object} model.Response{data=model.Medicine}
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /medicines [post]
func (h *MedicineHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	m, err := h.service.Create(c.Request.Context(), p, &req)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusCreated, "Medicine created successfully", m)
}
