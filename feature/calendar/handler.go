package calendar

import (
	"cabin-manager/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the calendar over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the calendar routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/calendar.ics", h.HandleCalendar)
	app.Post("/calendar/publish", h.HandlePublish)
}

// HandleCalendar renders the subscription feed.
// @Summary Calendar feed
// @Tags calendar
// @Produce text/calendar
// @Success 200 {string} string
// @Router /calendar.ics [get]
func (h *Handler) HandleCalendar(c *fiber.Ctx) error {
	body, err := h.service.Render(c.UserContext())
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Failed to render calendar", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="reservations.ics"`)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.Send(body)
}

// HandlePublish pushes the calendar to every configured publisher.
// @Summary Publish calendar
// @Tags calendar
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 502 {object} map[string]string
// @Router /calendar/publish [post]
func (h *Handler) HandlePublish(c *fiber.Ctx) error {
	names := make([]string, 0, len(h.service.Publishers()))
	for _, p := range h.service.Publishers() {
		names = append(names, p.Name())
	}
	if err := h.service.Publish(c.UserContext()); err != nil {
		logger.WithRayID(h.logger, c).Error("Failed to publish calendar", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"published": names})
}
