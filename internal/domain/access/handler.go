package access

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitalpass/vitalpass/internal/domain/audittrail"
	"github.com/vitalpass/vitalpass/internal/domain/record"
	"github.com/vitalpass/vitalpass/internal/errs"
	"github.com/vitalpass/vitalpass/internal/platform/auth"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	shares := api.Group("", auth.RequireRole("clinician", "insurer", "clinic_staff"))
	shares.POST("/share/resolve", h.ResolveShare)

	verified := api.Group("", auth.RequireRole("clinician"))
	verified.GET("/patients/:id/verified-view", h.ResolveVerifiedView)
}

func actorFromContext(c echo.Context) ActorInfo {
	ctx := c.Request().Context()
	id := auth.UserUUIDFromContext(ctx)
	actor := ActorInfo{
		ID:          &id,
		Name:        auth.UserNameFromContext(ctx),
		Institution: auth.InstitutionFromContext(ctx),
	}
	switch {
	case auth.HasRole(ctx, "clinician"):
		actor.Type = audittrail.ActorClinician
	case auth.HasRole(ctx, "insurer"):
		actor.Type = audittrail.ActorInsurer
	case auth.HasRole(ctx, "clinic_staff"):
		actor.Type = audittrail.ActorClinicStaff
	default:
		actor.Type = audittrail.ActorPatient
	}
	return actor
}

type resolveRequest struct {
	Token      string   `json:"token"`
	Categories []string `json:"categories"`
}

func (h *Handler) ResolveShare(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	requested := make([]record.Category, 0, len(req.Categories))
	for _, s := range req.Categories {
		cat, err := record.ParseCategory(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		requested = append(requested, cat)
	}
	view, err := h.resolver.ResolveShare(c.Request().Context(), req.Token, requested, actorFromContext(c))
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) ResolveVerifiedView(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	view, err := h.resolver.ResolveVerifiedView(c.Request().Context(), patientID, actorFromContext(c))
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, view)
}
