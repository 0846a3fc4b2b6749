package reservation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"cabin-manager/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T, source reconcile.FeedSource) *fiber.App {
	svc, _ := newTestService(t, source)
	app := fiber.New()
	feature := NewFeature(svc, zap.NewNop())
	require.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var obj map[string]any
	_ = json.Unmarshal(raw, &obj)
	return resp.StatusCode, obj, raw
}

func TestHandler_BookListDelete(t *testing.T) {
	app := setupTestApp(t, nil)

	status, body, _ := do(t, app, "POST", "/reservations", `{"guest_name":"Ana","cabin":"Colibri","check_in":"2025-07-01","nights":2}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "id-1", body["id"])
	assert.Equal(t, "2025-07-03", body["check_out"])
	assert.Equal(t, "Colibri", body["cabin"])

	status, body, _ = do(t, app, "POST", "/reservations", `{"guest_name":"Bea","cabin":"Colibri","check_in":"2025-07-02","nights":2}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Len(t, body["conflicts"], 1)

	status, _, raw := do(t, app, "GET", "/reservations", "")
	require.Equal(t, fiber.StatusOK, status)
	var list []reconcile.Reservation
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2025-07-01", list[0].CheckIn.String())

	status, _, raw = do(t, app, "GET", "/reservations/upcoming?limit=5", "")
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 1)

	status, body, _ = do(t, app, "PATCH", "/reservations/Ana", `{"nights":4}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "2025-07-05", body["check_out"])

	status, _, _ = do(t, app, "DELETE", "/reservations/id-1", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _, _ = do(t, app, "DELETE", "/reservations/id-1", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandler_BadRequests(t *testing.T) {
	app := setupTestApp(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"Malformed json", "POST", "/reservations", `{"guest_name":`, fiber.StatusBadRequest},
		{"Unknown cabin", "POST", "/reservations", `{"guest_name":"Ana","cabin":"Hornero","check_in":"2025-07-01","nights":2}`, fiber.StatusBadRequest},
		{"Missing dates", "POST", "/reservations", `{"guest_name":"Ana","cabin":"Colibri"}`, fiber.StatusBadRequest},
		{"Modify unknown", "PATCH", "/reservations/nobody", `{"notes":"x"}`, fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := do(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandler_Sync(t *testing.T) {
	source := feedsOf{
		"Colibri": []reconcile.ExternalBooking{
			{Start: date("2025-07-10"), End: date("2025-07-15"), Summary: "Lucía"},
		},
	}
	app := setupTestApp(t, source)

	status, body, _ := do(t, app, "POST", "/sync?dry_run=true", "")
	require.Equal(t, fiber.StatusOK, status)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 1.0, summary["admitted"])

	status, _, raw := do(t, app, "GET", "/reservations", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "[]", string(raw), "dry run stores nothing")

	status, _, _ = do(t, app, "POST", "/sync", "")
	require.Equal(t, fiber.StatusOK, status)

	_, _, raw = do(t, app, "GET", "/reservations", "")
	assert.Contains(t, string(raw), "Lucía")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, fiber.StatusNotFound},
		{&ConflictError{Cabin: "Colibri"}, fiber.StatusConflict},
		{ErrAmbiguous, fiber.StatusConflict},
		{invalid("x"), fiber.StatusBadRequest},
		{fmt.Errorf("wrap: %w", ErrUnknownCabin), fiber.StatusBadRequest},
		{reconcile.ErrPersistence, fiber.StatusInternalServerError},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
