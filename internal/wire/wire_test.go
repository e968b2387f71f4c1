package wire

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/internal/data/repository"
	"hospital-booking/internal/dto/response"
	"hospital-booking/pkg/cache"
	"hospital-booking/pkg/middleware"
	"hospital-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Status bool            `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c *client) call(method, path string, body any, actor *entity.Actor) (int, envelope) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(middleware.HeaderActorID, actor.ID)
		req.Header.Set(middleware.HeaderActorRole, string(actor.Role))
	}

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func newTestApp(t *testing.T) *client {
	t.Helper()
	log := zap.NewNop()
	config := &utils.Config{
		App:        utils.AppConfig{Name: "hospital-booking-test"},
		Allocation: utils.AllocationConfig{Bucket: "occupied", MaxAttempts: 3, LockTimeout: time.Second, Backoff: time.Millisecond},
		Query:      utils.QueryConfig{CacheTTL: time.Minute},
		Pricing:    utils.PricingConfig{HourlyRates: map[string]float64{"beds": 5}},
	}

	app := Wiring(repository.NewMemoryRepository(log, repository.MemoryHooks{}), cache.NewMemory(), nil, config, log)
	return &client{t: t, router: app.Router}
}

func TestRouter_BookingLifecycle(t *testing.T) {
	c := newTestApp(t)
	admin := &entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}
	authority := &entity.Actor{ID: "authority-1", Role: entity.RoleHospitalAuthority}
	patient := &entity.Actor{ID: uuid.NewString(), Role: entity.RoleUser}

	status, env := c.call(http.MethodPost, "/api/hospitals", map[string]any{"name": "Lakeside"}, admin)
	require.Equal(t, http.StatusCreated, status)
	hospital := decode[response.HospitalResponse](t, env)

	status, _ = c.call(http.MethodPost, "/api/hospitals/"+hospital.ID+"/approve", map[string]any{
		"capacities": []map[string]any{{"resource_type": "beds", "total": 2}},
	}, authority)
	assert.Equal(t, http.StatusForbidden, status, "only admins approve hospitals")

	status, _ = c.call(http.MethodPost, "/api/hospitals/"+hospital.ID+"/approve", map[string]any{
		"capacities": []map[string]any{{"resource_type": "beds", "total": 2}},
	}, admin)
	require.Equal(t, http.StatusOK, status)

	status, env = c.call(http.MethodPost, "/api/bookings", map[string]any{
		"hospital_id":        hospital.ID,
		"resource_type":      "beds",
		"urgency":            "high",
		"scheduled_date":     time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"estimated_duration": 10,
	}, patient)
	require.Equal(t, http.StatusCreated, status)
	booking := decode[response.BookingResponse](t, env)
	assert.Equal(t, entity.BookingStatusPending, booking.Status)

	status, _ = c.call(http.MethodPost, "/api/bookings/"+booking.ID+"/approve", nil, patient)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = c.call(http.MethodPost, "/api/bookings/"+booking.ID+"/approve", nil, authority)
	require.Equal(t, http.StatusOK, status)
	approved := decode[response.BookingResponse](t, env)
	require.NotNil(t, approved.QuotedAmount)
	assert.InDelta(t, 50.0, *approved.QuotedAmount, 0.001)

	status, env = c.call(http.MethodGet, "/api/hospitals/"+hospital.ID+"/availability", nil, nil)
	require.Equal(t, http.StatusOK, status)
	availability := decode[response.AvailabilityResponse](t, env)
	require.Len(t, availability.Resources, 1)
	assert.Equal(t, 1, availability.Resources[0].Available)

	status, env = c.call(http.MethodPost, "/api/bookings/"+booking.ID+"/approve", nil, authority)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", env.Code)

	status, _ = c.call(http.MethodPost, "/api/bookings/"+booking.ID+"/cancel", map[string]any{"reason": "feeling better"}, patient)
	require.Equal(t, http.StatusOK, status)

	status, env = c.call(http.MethodGet, "/api/hospitals/"+hospital.ID+"/utilization", nil, nil)
	require.Equal(t, http.StatusOK, status)
	utilization := decode[response.UtilizationResponse](t, env)
	require.Len(t, utilization.Resources, 1)
	assert.Zero(t, utilization.Resources[0].UtilizationPct)

	status, env = c.call(http.MethodGet, "/api/hospitals/"+hospital.ID+"/audit?per_page=10", nil, authority)
	require.Equal(t, http.StatusOK, status)
	audit := decode[response.PaginatedResponse[response.AuditEntryResponse]](t, env)
	require.Len(t, audit.Data, 3)
	assert.Equal(t, entity.ChangeBookingRelease, audit.Data[0].ChangeType)
	assert.Equal(t, entity.ChangeBookingAllocation, audit.Data[1].ChangeType)
	assert.Equal(t, entity.ChangeApproval, audit.Data[2].ChangeType)

	status, env = c.call(http.MethodGet, "/api/user/bookings", nil, patient)
	require.Equal(t, http.StatusOK, status)
	mine := decode[response.PaginatedResponse[response.BookingResponse]](t, env)
	require.Len(t, mine.Data, 1)
	assert.Equal(t, entity.BookingStatusCancelled, mine.Data[0].Status)
}

func TestRouter_InventoryRejections(t *testing.T) {
	c := newTestApp(t)
	admin := &entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}

	_, env := c.call(http.MethodPost, "/api/hospitals", map[string]any{"name": "Hilltop"}, admin)
	hospital := decode[response.HospitalResponse](t, env)
	status, _ := c.call(http.MethodPost, "/api/hospitals/"+hospital.ID+"/approve", map[string]any{
		"capacities": []map[string]any{{"resource_type": "icu", "total": 3}},
	}, admin)
	require.Equal(t, http.StatusOK, status)

	status, env = c.call(http.MethodPut, "/api/hospitals/"+hospital.ID+"/inventory/icu", map[string]any{
		"available": -1, "occupied": 4,
	}, admin)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", env.Code)

	status, env = c.call(http.MethodGet, "/api/hospitals/"+hospital.ID+"/audit?change_type=manual_update", nil, admin)
	require.Equal(t, http.StatusOK, status)
	audit := decode[response.PaginatedResponse[response.AuditEntryResponse]](t, env)
	assert.Empty(t, audit.Data)

	status, _ = c.call(http.MethodGet, "/api/hospitals/"+uuid.NewString()+"/availability", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = c.call(http.MethodGet, "/api/hospitals/"+hospital.ID+"/audit", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_Health(t *testing.T) {
	c := newTestApp(t)

	status, env := c.call(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Status)
}
