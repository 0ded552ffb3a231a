package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"medi-kart/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMedicineService is a mock implementation of MedicineService.
type MockMedicineService struct {
	mock.Mock
}

func (m *MockMedicineService) List(ctx context.Context, filter model.MedicineFilter) ([]model.Medicine, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Medicine), args.Int(1), args.Error(2)
}

func (m *MockMedicineService) Get(ctx context.Context, id string) (*model.Medicine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Medicine), args.Error(1)
}

func (m *MockMedicineService) Create(ctx context.Context, p model.Principal, req *model.CreateMedicineRequest) (*model.Medicine, error) {
	args := m.Called(ctx, p, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Medicine), args.Error(1)
}

func TestMedicineHandler_List(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		filter model.MedicineFilter
		page   int
	}{
		{"defaults", "", model.MedicineFilter{Limit: 10}, 1},
		{"page two", "?page=2&limit=5", model.MedicineFilter{Limit: 5, Offset: 5}, 2},
		{"filters", "?category=Pain&search=para", model.MedicineFilter{Category: "Pain", Search: "para", Limit: 10}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMedicineService)
			svc.On("List", mock.Anything, tt.filter).Return([]model.Medicine{{ID: uuid.New(), Name: "Paracetamol"}}, 12, nil)

			h := NewMedicineHandler(svc, zerolog.Nop())
			r := newEngine(func(r gin.IRoutes) {})
			r.GET("/api/medicines", h.List)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/medicines"+tt.query, nil))

			require.Equal(t, http.StatusOK, w.Code)
			var resp model.ListResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, 1, resp.Count)
			assert.Equal(t, 12, resp.Total)
			assert.Equal(t, tt.page, resp.Page)
			svc.AssertExpectations(t)
		})
	}
}

func TestMedicineHandler_GetAndCreate(t *testing.T) {
	adminUser := model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
	id := uuid.NewString()

	svc := new(MockMedicineService)
	svc.On("Get", mock.Anything, id).Return(nil, model.ErrMedicineNotFound)
	svc.On("Create", mock.Anything, adminUser, mock.MatchedBy(func(req *model.CreateMedicineRequest) bool {
		return req.Name == "Cetirizine" && req.Price.Equal(decimal.RequireFromString("45.5"))
	})).Return(&model.Medicine{ID: uuid.New(), Name: "Cetirizine"}, nil)

	h := NewMedicineHandler(svc, zerolog.Nop())
	r := newEngine(func(r gin.IRoutes) {
		r.POST("/medicines", h.Create)
	})
	r.GET("/api/medicines/:id", h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/medicines/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Medicine not found", decodeError(t, w).Message)

	body := `{"name":"Cetirizine","usage":"Allergy","category":"Allergy","price":"45.50","stock":20}`
	req := httptest.NewRequest(http.MethodPost, "/api/medicines", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(adminUser))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.AssertExpectations(t)
}
