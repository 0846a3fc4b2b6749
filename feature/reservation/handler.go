package reservation

import (
	"errors"

	"cabin-manager/core/logger"
	"cabin-manager/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for reservations.
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

// RegisterRoutes registers the reservation routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/reservations")
	group.Get("/", h.HandleList)
	group.Get("/upcoming", h.HandleUpcoming)
	group.Post("/", h.HandleBook)
	group.Patch("/:key", h.HandleModify)
	group.Delete("/:key", h.HandleDelete)

	app.Post("/sync", h.HandleSync)
}

// HandleList returns every reservation ordered by check-in.
// @Summary List reservations
// @Tags reservations
// @Produce json
// @Success 200 {array} reconcile.Reservation
// @Router /reservations [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	list, err := h.service.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

// HandleUpcoming returns the next reservations checking in from today.
// @Summary Upcoming reservations
// @Tags reservations
// @Produce json
// @Param limit query int false "How many to return"
// @Success 200 {array} reconcile.Reservation
// @Router /reservations/upcoming [get]
func (h *Handler) HandleUpcoming(c *fiber.Ctx) error {
	list, err := h.service.Upcoming(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

// HandleBook creates a manual reservation.
// @Summary Book a cabin
// @Tags reservations
// @Accept json
// @Produce json
// @Param request body BookRequest true "Booking"
// @Success 201 {object} reconcile.Reservation
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]any
// @Router /reservations [post]
func (h *Handler) HandleBook(c *fiber.Ctx) error {
	var req BookRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, invalid("malformed body: %v", err))
	}
	res, err := h.service.Book(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// HandleModify updates a reservation by id or guest name.
// @Summary Modify a reservation
// @Tags reservations
// @Accept json
// @Produce json
// @Param key path string true "Reservation id or guest name"
// @Param request body ModifyRequest true "Fields to change"
// @Success 200 {object} reconcile.Reservation
// @Router /reservations/{key} [patch]
func (h *Handler) HandleModify(c *fiber.Ctx) error {
	var req ModifyRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, invalid("malformed body: %v", err))
	}
	res, err := h.service.Modify(c.UserContext(), c.Params("key"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleDelete removes a reservation by id or guest name.
// @Summary Delete a reservation
// @Tags reservations
// @Param key path string true "Reservation id or guest name"
// @Success 200 {object} reconcile.Reservation
// @Router /reservations/{key} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	res, err := h.service.Delete(c.UserContext(), c.Params("key"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleSync runs a reconciliation pass.
// @Summary Sync cabin feeds
// @Tags sync
// @Produce json
// @Param dry_run query bool false "Plan without saving"
// @Success 200 {object} reconcile.ReconcilePlan
// @Router /sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	opts := reconcile.ReconcileOptions{DryRun: c.QueryBool("dry_run", false)}
	plan, err := h.service.Sync(c.UserContext(), opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(plan)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	l := logger.WithRayID(h.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error("Reservation request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		l.Info("Reservation request rejected", zap.String("path", c.Path()), zap.Error(err))
	}

	body := fiber.Map{"error": err.Error()}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		body["conflicts"] = conflict.Conflicts
	}
	return c.Status(status).JSON(body)
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAmbiguous):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnknownCabin):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
