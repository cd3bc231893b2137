package policy

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitalpass/vitalpass/internal/domain/record"
	"github.com/vitalpass/vitalpass/internal/errs"
	"github.com/vitalpass/vitalpass/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("patient"))
	g.GET("/patients/:id/policies", h.ListByPatient)
	g.GET("/patients/:id/policies/:mode", h.Get)
	g.PUT("/patients/:id/policies/:mode", h.Set)
	g.PATCH("/patients/:id/policies/:mode", h.SetCategory)
}

// patientParam parses the :id segment and confines a bare patient role to
// its own policies.
func patientParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if !auth.CanActForPatient(c.Request().Context(), id) {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "cannot manage another patient's policies")
	}
	return id, nil
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), patientID, Mode(c.Param("mode")))
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Set(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	var p SharingPolicy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.PatientID = patientID
	p.Mode = Mode(c.Param("mode"))
	if err := h.svc.Set(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

type setCategoryRequest struct {
	Category string `json:"category"`
	Allowed  bool   `json:"allowed"`
}

func (h *Handler) SetCategory(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	var req setCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.SetCategory(c.Request().Context(), patientID,
		Mode(c.Param("mode")), record.Category(req.Category), req.Allowed)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
