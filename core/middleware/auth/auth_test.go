package auth_test

import (
	"net/http/httptest"
	"testing"

	"cabin-manager/core/middleware/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		path   string
		header map[string]string
		want   int
	}{
		{"Disabled", "", "/reservations", nil, fiber.StatusOK},
		{"Missing key", "secret", "/reservations", nil, fiber.StatusUnauthorized},
		{"Wrong key", "secret", "/reservations", map[string]string{"X-API-Key": "nope"}, fiber.StatusUnauthorized},
		{"Header key", "secret", "/reservations", map[string]string{"X-API-Key": "secret"}, fiber.StatusOK},
		{"Bearer key", "secret", "/reservations", map[string]string{"Authorization": "Bearer secret"}, fiber.StatusOK},
		{"Public path", "secret", "/calendar.ics", nil, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(auth.New(auth.Config{ApiKey: tt.apiKey, Public: []string{"/calendar.ics"}}))
			app.Get("/*", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
