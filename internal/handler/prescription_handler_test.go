package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"medi-kart/internal/model"
	"medi-kart/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPrescriptionService is a mock implementation of PrescriptionService.
type MockPrescriptionService struct {
	mock.Mock
}

func (m *MockPrescriptionService) Create(ctx context.Context, p model.Principal, payload *model.CreatePrescriptionPayload, files []storage.File) (*model.PrescriptionRequest, error) {
	args := m.Called(ctx, p, payload, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PrescriptionRequest), args.Error(1)
}

func (m *MockPrescriptionService) ListForPatient(ctx context.Context, p model.Principal) ([]model.PrescriptionRequest, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PrescriptionRequest), args.Error(1)
}

func (m *MockPrescriptionService) ListAll(ctx context.Context, p model.Principal, q model.ListQuery) (*model.PrescriptionPage, error) {
	args := m.Called(ctx, p, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PrescriptionPage), args.Error(1)
}

func (m *MockPrescriptionService) Get(ctx context.Context, p model.Principal, id string) (*model.PrescriptionRequest, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PrescriptionRequest), args.Error(1)
}

func (m *MockPrescriptionService) Respond(ctx context.Context, p model.Principal, id string, payload *model.RespondPrescriptionPayload) (*model.PrescriptionRequest, error) {
	args := m.Called(ctx, p, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PrescriptionRequest), args.Error(1)
}

func (m *MockPrescriptionService) UpdateStatus(ctx context.Context, p model.Principal, id string, status model.PrescriptionStatus) (*model.PrescriptionRequest, error) {
	args := m.Called(ctx, p, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PrescriptionRequest), args.Error(1)
}

func prescriptionRoutes(h *PrescriptionHandler) func(r gin.IRoutes) {
	return func(r gin.IRoutes) {
		r.POST("/prescription/requests", h.Create)
		r.GET("/prescription/patient/requests", h.ListMine)
		r.GET("/prescription/pharmacist/requests", h.ListAll)
		r.GET("/prescription/requests/:id", h.Get)
		r.PUT("/prescription/requests/:id", h.Respond)
		r.PATCH("/prescription/requests/:id/status", h.UpdateStatus)
	}
}

func multipartBody(t *testing.T, fields map[string]string, images map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestPrescriptionHandler_CreateMultipart(t *testing.T) {
	user := model.Principal{UserID: uuid.New(), Role: model.RolePatient}

	var received []string
	svc := new(MockPrescriptionService)
	svc.On("Create", mock.Anything, user,
		&model.CreatePrescriptionPayload{Symptoms: "rash", Description: "itchy"},
		mock.MatchedBy(func(files []storage.File) bool {
			if len(files) != 1 || files[0].Name != "rash.png" || files[0].ContentType != "image/png" || files[0].Size != 3 {
				return false
			}
			return true
		}),
	).Run(func(args mock.Arguments) {
		for _, f := range args.Get(3).([]storage.File) {
			data, err := io.ReadAll(f.Body)
			require.NoError(t, err)
			received = append(received, string(data))
		}
	}).Return(&model.PrescriptionRequest{ID: uuid.New(), Status: model.PrescriptionStatusPending}, nil)

	body, contentType := multipartBody(t, map[string]string{"symptoms": "rash", "description": "itchy"}, map[string]string{"rash.png": "png"})

	r := newEngine(prescriptionRoutes(NewPrescriptionHandler(svc, zerolog.Nop())))
	req := httptest.NewRequest(http.MethodPost, "/api/prescription/requests", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearer(user))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"png"}, received)
	svc.AssertExpectations(t)
}

func TestPrescriptionHandler_CreateJSONWithoutImages(t *testing.T) {
	user := model.Principal{UserID: uuid.New(), Role: model.RolePatient}

	svc := new(MockPrescriptionService)
	svc.On("Create", mock.Anything, user, &model.CreatePrescriptionPayload{Symptoms: "cough", Description: "dry"}, []storage.File(nil)).
		Return(&model.PrescriptionRequest{ID: uuid.New()}, nil)

	r := newEngine(prescriptionRoutes(NewPrescriptionHandler(svc, zerolog.Nop())))
	req := httptest.NewRequest(http.MethodPost, "/api/prescription/requests", bytes.NewBufferString(`{"symptoms":"cough","description":"dry"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(user))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestPrescriptionHandler_RespondAndStatus(t *testing.T) {
	pharmacistUser := model.Principal{UserID: uuid.New(), Role: model.RolePharmacist}
	id := uuid.NewString()

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		setup          func(svc *MockPrescriptionService)
		expectedStatus int
	}{
		{
			name:   "respond",
			method: http.MethodPut,
			path:   "/api/prescription/requests/" + id,
			body:   `{"pharmacistNotes":"rest","suggestedMedicines":[{"name":"Paracetamol","dosage":"500mg","frequency":"bd","duration":"3d"}]}`,
			setup: func(svc *MockPrescriptionService) {
				svc.On("Respond", mock.Anything, pharmacistUser, id, mock.MatchedBy(func(p *model.RespondPrescriptionPayload) bool {
					return p.PharmacistNotes == "rest" && len(p.SuggestedMedicines) == 1
				})).Return(&model.PrescriptionRequest{Status: model.PrescriptionStatusCompleted}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "respond twice",
			method: http.MethodPut,
			path:   "/api/prescription/requests/" + id,
			body:   `{"pharmacistNotes":"rest","suggestedMedicines":[]}`,
			setup: func(svc *MockPrescriptionService) {
				svc.On("Respond", mock.Anything, pharmacistUser, id, mock.Anything).Return(nil, model.ErrPrescriptionCompleted)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "status",
			method: http.MethodPatch,
			path:   "/api/prescription/requests/" + id + "/status",
			body:   `{"status":"in_review"}`,
			setup: func(svc *MockPrescriptionService) {
				svc.On("UpdateStatus", mock.Anything, pharmacistUser, id, model.PrescriptionStatusInReview).
					Return(&model.PrescriptionRequest{Status: model.PrescriptionStatusInReview}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "missing request",
			method: http.MethodGet,
			path:   "/api/prescription/requests/" + id,
			setup: func(svc *MockPrescriptionService) {
				svc.On("Get", mock.Anything, pharmacistUser, id).Return(nil, model.ErrPrescriptionNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPrescriptionService)
			tt.setup(svc)

			r := newEngine(prescriptionRoutes(NewPrescriptionHandler(svc, zerolog.Nop())))
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", bearer(pharmacistUser))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestPrescriptionHandler_Lists(t *testing.T) {
	patientUser := model.Principal{UserID: uuid.New(), Role: model.RolePatient}

	svc := new(MockPrescriptionService)
	svc.On("ListForPatient", mock.Anything, patientUser).Return([]model.PrescriptionRequest{{ID: uuid.New()}, {ID: uuid.New()}}, nil)
	svc.On("ListAll", mock.Anything, patientUser, mock.Anything).Return(nil, model.ErrAccessDenied)

	r := newEngine(prescriptionRoutes(NewPrescriptionHandler(svc, zerolog.Nop())))

	req := httptest.NewRequest(http.MethodGet, "/api/prescription/patient/requests", nil)
	req.Header.Set("Authorization", bearer(patientUser))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	req = httptest.NewRequest(http.MethodGet, "/api/prescription/pharmacist/requests", nil)
	req.Header.Set("Authorization", bearer(patientUser))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
