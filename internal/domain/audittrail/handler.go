package audittrail

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitalpass/vitalpass/internal/errs"
	"github.com/vitalpass/vitalpass/internal/platform/auth"
	"github.com/vitalpass/vitalpass/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("patient", "clinician"))
	g.GET("/patients/:id/audit-events", h.ListByPatient)
	g.GET("/audit-events/:id", h.GetByID)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if !auth.CanActForPatient(c.Request().Context(), patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot read another patient's audit trail")
	}
	filter := Filter{
		Channel:   Channel(c.QueryParam("channel")),
		ActorType: ActorType(c.QueryParam("actor_type")),
		Action:    Action(c.QueryParam("action")),
	}
	if (filter.Channel != "" && !filter.Channel.Valid()) ||
		(filter.ActorType != "" && !filter.ActorType.Valid()) ||
		(filter.Action != "" && !filter.Action.Valid()) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filter")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), "audit event not found")
	}
	return c.JSON(http.StatusOK, e)
}
