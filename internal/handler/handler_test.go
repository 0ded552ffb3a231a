package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medi-kart/internal/middleware"
	"medi-kart/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// rolesParser accepts tokens of the form "<role>:<uuid>".
type rolesParser struct{}

func (rolesParser) Parse(token string) (model.Principal, error) {
	role, id, _ := strings.Cut(token, ":")
	userID, err := uuid.Parse(id)
	if err != nil {
		return model.Principal{}, errors.New("malformed token")
	}
	return model.Principal{UserID: userID, Role: model.Role(role)}, nil
}

func bearer(p model.Principal) string {
	return fmt.Sprintf("Bearer %s:%s", p.Role, p.UserID)
}

// newEngine mounts fn behind request id and authentication middleware.
func newEngine(register func(r gin.IRoutes)) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	register(r.Group("/api", middleware.Authenticate(rolesParser{}, zerolog.Nop())))
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind model.ErrorKind
		want int
	}{
		{model.KindNotFound, http.StatusNotFound},
		{model.KindValidation, http.StatusBadRequest},
		{model.KindInsufficientStock, http.StatusBadRequest},
		{model.KindInvalidState, http.StatusBadRequest},
		{model.KindAccessDenied, http.StatusForbidden},
		{model.KindUnauthenticated, http.StatusUnauthorized},
		{model.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{"domain error", model.ErrOrderNotFound, http.StatusNotFound, model.ErrCodeOrderNotFound, "Order not found"},
		{"wrapped domain error", fmt.Errorf("placing: %w", model.NewInsufficientStockError("Aspirin")), http.StatusBadRequest, model.ErrCodeInsufficientStock, "Insufficient stock for Aspirin"},
		{"internal error hides detail", errors.New("pq: connection refused"), http.StatusInternalServerError, model.ErrCodeInternalError, "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.RequestID())
			r.GET("/fail", func(c *gin.Context) { writeError(c, tt.err, zerolog.Nop()) })

			req := httptest.NewRequest(http.MethodGet, "/fail", nil)
			req.Header.Set(middleware.RequestIDHeader, "rid-1")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decodeError(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, tt.expectedCode, body.Error)
			assert.Equal(t, tt.expectedMsg, body.Message)
			assert.Equal(t, "rid-1", body.CorrelationID)
		})
	}
}

func TestPrincipal_MissingReturns401(t *testing.T) {
	r := gin.New()
	r.GET("/open", func(c *gin.Context) {
		if _, ok := principal(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
