package consent

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitalpass/vitalpass/internal/domain/policy"
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
	g := api.Group("", auth.RequireRole("patient"))
	g.POST("/consent-links", h.Issue)
	g.GET("/patients/:id/consent-links", h.ListByPatient)
	g.DELETE("/consent-links/:token", h.Revoke)
}

type issueRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	Mode            string    `json:"mode"`
	DurationMinutes int       `json:"duration_minutes"`
	Label           string    `json:"label"`
}

func (h *Handler) Issue(c echo.Context) error {
	var req issueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !auth.CanActForPatient(c.Request().Context(), req.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot issue links for another patient")
	}
	l, err := h.svc.Issue(c.Request().Context(), req.PatientID,
		policy.Mode(req.Mode), req.DurationMinutes, req.Label)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	// Links carry live bearer tokens; only their owner may enumerate them.
	if !auth.CanActForPatient(c.Request().Context(), patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot list another patient's links")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Revoke(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	if err := h.svc.Revoke(c.Request().Context(), token, auth.UserUUIDFromContext(c.Request().Context())); err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
