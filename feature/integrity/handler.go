package integrity

import (
	"cabin-manager/core/logger"
	"cabin-manager/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/reservations", h.HandleReservationCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/calendar", h.HandleCalendarCheck)
	group.Get("/feeds", h.HandleFeedCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Audits reservations, the database schema, the published calendar and feed configuration.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	logger.WithRayID(h.service.logger, c).Info("Triggering all integrity checks")
	return c.JSON(h.service.CheckAll(c.UserContext()))
}

// HandleReservationCheck audits the stored reservations and optionally tags untagged rows.
// @Summary Check Reservations
// @Description Reports malformed rows, overlaps, unknown cabins and duplicate IDs.
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Persist inferred source tags"
// @Success 200 {object} checks.ReservationReport
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/reservations [get]
func (h *Handler) HandleReservationCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	ctx := c.UserContext()

	if utils.ToBool(c.Query("fix")) {
		n, err := h.service.FixReservations(ctx)
		if err != nil {
			l.Error("Failed to tag reservations", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if n > 0 {
			l.Info("Tagged reservations", zap.Int("count", n))
		}
	}

	report, err := h.service.CheckReservations(ctx)
	if err != nil {
		l.Error("Reservation check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if report.Status != "ok" {
		l.Warn("Reservation problems detected",
			zap.Int("malformed", len(report.Malformed)),
			zap.Int("overlaps", len(report.Overlaps)),
			zap.Int("unknown_cabins", len(report.UnknownCabins)),
		)
	}
	return c.JSON(report)
}

// HandleSchemaCheck checks and optionally migrates the database schema.
// @Summary Check Schema
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Run the migration"
// @Success 200 {object} checks.SchemaReport
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Matched && utils.ToBool(c.Query("fix")) {
		l.Info("Attempting to migrate schema")
		if err := h.service.FixSchema(c.UserContext()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to migrate schema",
				"details": err.Error(),
			})
		}
		if report, err = h.service.CheckSchema(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return c.JSON(report)
}

// HandleCalendarCheck verifies the published calendar object.
// @Summary Check Published Calendar
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.CalendarReport
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/calendar [get]
func (h *Handler) HandleCalendarCheck(c *fiber.Ctx) error {
	report, err := h.service.CheckCalendar(c.UserContext())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Calendar check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleFeedCheck lists cabins without a feed.
// @Summary Check Feeds
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /integrity/feeds [get]
func (h *Handler) HandleFeedCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "checked",
		"missing": h.service.CheckFeeds(),
	})
}
