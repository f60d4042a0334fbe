package wire

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/memstore"
	"coach-booking/internal/dto/response"
	"coach-booking/internal/gateway"
	"coach-booking/internal/notify"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/middleware"
	"coach-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type api struct {
	t         *testing.T
	router    http.Handler
	processor *gateway.FakeProcessor
	jwt       utils.JWTConfig
	student   uuid.UUID
	coach     uuid.UUID
	lessonID  uuid.UUID
}

func newAPI(t *testing.T) *api {
	t.Helper()
	a := &api{
		t:         t,
		processor: gateway.NewFakeProcessor("whsec_test"),
		jwt:       utils.JWTConfig{Secret: "test-secret", Issuer: "coach-booking"},
		student:   uuid.New(),
		coach:     uuid.New(),
		lessonID:  uuid.New(),
	}
	store := memstore.New()
	store.PutUser(entity.User{Base: entity.Base{ID: a.student}, Role: entity.RoleStudent, IsActive: true})
	store.PutUser(entity.User{Base: entity.Base{ID: a.coach}, Role: entity.RoleCoach, IsActive: true})
	store.PutCoachProfile(entity.CoachProfile{UserID: a.coach})
	store.PutLesson(entity.Lesson{
		Base:            entity.Base{ID: a.lessonID},
		CoachID:         a.coach,
		Title:           "Serve basics",
		DurationMinutes: 60,
		Price:           decimal.RequireFromString("100.00"),
		IsActive:        true,
	})

	svc := usecase.NewService(usecase.Deps{
		Repo:      store.Repository(),
		Processor: a.processor,
		Notifier:  notify.NewLogNotifier(zap.NewNop()),
		Policy:    utils.DefaultPolicy(),
		Log:       zap.NewNop(),
	})
	cfg := &utils.Config{JWT: a.jwt}
	a.router = Wiring(svc, cfg, nil, zap.NewNop()).Router
	return a
}

func (a *api) token(userID uuid.UUID, role entity.UserRole) string {
	tok, err := middleware.IssueToken(a.jwt, userID, role, time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *api) do(method, path, token string, body []byte, header map[string]string) (int, utils.Response, json.RawMessage) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var envelope struct {
		utils.Response
		Data json.RawMessage `json:"data"`
	}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec.Code, envelope.Response, envelope.Data
}

func jsonBody(t *testing.T, v any) []byte {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestBookingFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	studentToken := a.token(a.student, entity.RoleStudent)

	code, _, data := a.do(http.MethodPost, "/api/bookings", studentToken, jsonBody(t, map[string]any{
		"lesson_id":    a.lessonID,
		"scheduled_at": time.Now().Add(72 * time.Hour).UTC(),
	}), nil)
	require.Equal(t, http.StatusCreated, code)

	var created response.BookingCreatedResponse
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, entity.BookingStatusPending, created.Booking.Status)
	require.NotNil(t, created.Payment)
	assert.Equal(t, "108.00", created.Payment.TotalChargeToStudent)
	assert.NotEmpty(t, created.ClientSecret)

	payload := gateway.EventPayload("evt_http", gateway.EventPaymentSucceeded,
		gateway.IntentObject{ID: *created.Payment.PaymentIntentID, LatestCharge: "ch_http"})
	code, _, _ = a.do(http.MethodPost, "/api/webhooks/stripe", "", payload, map[string]string{"Stripe-Signature": "forged"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _, _ = a.do(http.MethodPost, "/api/webhooks/stripe", "", payload, map[string]string{"Stripe-Signature": a.processor.Secret})
	require.Equal(t, http.StatusOK, code)

	code, _, data = a.do(http.MethodGet, "/api/bookings/"+created.Booking.ID, studentToken, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var detail response.BookingDetailResponse
	require.NoError(t, json.Unmarshal(data, &detail))
	assert.Equal(t, entity.BookingStatusConfirmed, detail.Status)
	assert.Equal(t, entity.PaymentStatusCaptured, detail.Payment.PaymentStatus)

	code, resp, _ := a.do(http.MethodPut, "/api/bookings/"+created.Booking.ID+"/delivered", a.token(a.coach, entity.RoleCoach), nil, nil)
	assert.Equal(t, http.StatusConflict, code, "the lesson has not started")
	assert.False(t, resp.Status)

	code, _, _ = a.do(http.MethodGet, "/api/bookings/"+created.Booking.ID, a.token(uuid.New(), entity.RoleStudent), nil, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAdminCaptureOverHTTP(t *testing.T) {
	a := newAPI(t)
	code, _, data := a.do(http.MethodPost, "/api/bookings", a.token(a.student, entity.RoleStudent), jsonBody(t, map[string]any{
		"lesson_id":    a.lessonID,
		"scheduled_at": time.Now().Add(72 * time.Hour).UTC(),
	}), nil)
	require.Equal(t, http.StatusCreated, code)
	var created response.BookingCreatedResponse
	require.NoError(t, json.Unmarshal(data, &created))
	path := "/api/admin/payments/" + created.Payment.ID + "/capture"

	code, _, _ = a.do(http.MethodPost, path, a.token(a.student, entity.RoleStudent), nil, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _, data = a.do(http.MethodPost, path, a.token(uuid.New(), entity.RoleAdmin), nil, nil)
	require.Equal(t, http.StatusOK, code)
	var payment response.PaymentResponse
	require.NoError(t, json.Unmarshal(data, &payment))
	assert.Equal(t, entity.PaymentStatusCaptured, payment.PaymentStatus)
	assert.Equal(t, 1, a.processor.CaptureCount())
}

func TestRouteGuards(t *testing.T) {
	a := newAPI(t)

	code, _, _ := a.do(http.MethodGet, "/api/user/bookings", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _, _ = a.do(http.MethodPost, "/api/admin/payments/"+uuid.NewString()+"/refund", a.token(a.student, entity.RoleStudent), nil, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _, _ = a.do(http.MethodGet, "/api/admin/payments/not-a-uuid", a.token(uuid.New(), entity.RoleAdmin), nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = a.do(http.MethodGet, "/api/coaches/"+a.coach.String()+"/reviews", "", nil, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _, _ = a.do(http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}
