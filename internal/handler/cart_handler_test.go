package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"medi-kart/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) result(args mock.Arguments) (*model.CartResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) Get(ctx context.Context, p model.Principal) (*model.CartResponse, error) {
	return m.result(m.Called(ctx, p))
}

func (m *MockCartService) AddItem(ctx context.Context, p model.Principal, req *model.AddCartItemRequest) (*model.CartResponse, error) {
	return m.result(m.Called(ctx, p, req))
}

func (m *MockCartService) UpdateItem(ctx context.Context, p model.Principal, itemID string, quantity int) (*model.CartResponse, error) {
	return m.result(m.Called(ctx, p, itemID, quantity))
}

func (m *MockCartService) RemoveItem(ctx context.Context, p model.Principal, itemID string) (*model.CartResponse, error) {
	return m.result(m.Called(ctx, p, itemID))
}

func (m *MockCartService) Clear(ctx context.Context, p model.Principal) (*model.CartResponse, error) {
	return m.result(m.Called(ctx, p))
}

func cartRoutes(h *CartHandler) func(r gin.IRoutes) {
	return func(r gin.IRoutes) {
		r.GET("/cart", h.Get)
		r.POST("/cart", h.AddItem)
		r.DELETE("/cart", h.Clear)
		r.PUT("/cart/:itemId", h.UpdateItem)
		r.DELETE("/cart/:itemId", h.RemoveItem)
	}
}

func TestCartHandler(t *testing.T) {
	user := model.Principal{UserID: uuid.New(), Role: model.RolePatient}
	itemID := uuid.NewString()
	medicineID := uuid.NewString()
	empty := &model.CartResponse{Items: []model.CartItem{}}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		setup          func(svc *MockCartService)
		expectedStatus int
	}{
		{
			name:   "get",
			method: http.MethodGet,
			path:   "/api/cart",
			setup: func(svc *MockCartService) {
				svc.On("Get", mock.Anything, user).Return(empty, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "add without quantity",
			method: http.MethodPost,
			path:   "/api/cart",
			body:   `{"medicineId":"` + medicineID + `"}`,
			setup: func(svc *MockCartService) {
				svc.On("AddItem", mock.Anything, user, &model.AddCartItemRequest{MedicineID: medicineID}).Return(empty, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "add without medicine",
			method:         http.MethodPost,
			path:           "/api/cart",
			body:           `{"quantity":2}`,
			setup:          func(svc *MockCartService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "add beyond stock",
			method: http.MethodPost,
			path:   "/api/cart",
			body:   `{"medicineId":"` + medicineID + `","quantity":50}`,
			setup: func(svc *MockCartService) {
				svc.On("AddItem", mock.Anything, user, mock.Anything).Return(nil, model.ErrInsufficientStock)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "update quantity",
			method: http.MethodPut,
			path:   "/api/cart/" + itemID,
			body:   `{"quantity":3}`,
			setup: func(svc *MockCartService) {
				svc.On("UpdateItem", mock.Anything, user, itemID, 3).Return(empty, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "update missing item",
			method: http.MethodPut,
			path:   "/api/cart/" + itemID,
			body:   `{"quantity":3}`,
			setup: func(svc *MockCartService) {
				svc.On("UpdateItem", mock.Anything, user, itemID, 3).Return(nil, model.ErrCartItemNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "remove",
			method: http.MethodDelete,
			path:   "/api/cart/" + itemID,
			setup: func(svc *MockCartService) {
				svc.On("RemoveItem", mock.Anything, user, itemID).Return(empty, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "clear",
			method: http.MethodDelete,
			path:   "/api/cart",
			setup: func(svc *MockCartService) {
				svc.On("Clear", mock.Anything, user).Return(empty, nil)
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCartService)
			tt.setup(svc)

			r := newEngine(cartRoutes(NewCartHandler(svc, zerolog.Nop())))
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", bearer(user))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}
