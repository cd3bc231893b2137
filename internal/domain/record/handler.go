package record

import (
	"net/http"
	"strings"

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
	g.POST("/patients/:id/facts", h.Create)
	g.GET("/patients/:id/facts", h.ListByPatient)
	g.GET("/facts/:id", h.GetByID)
	g.PUT("/facts/:id", h.Update)
	g.DELETE("/facts/:id", h.Delete)
}

func actorFromContext(c echo.Context) Actor {
	ctx := c.Request().Context()
	return Actor{
		ID:        auth.UserUUIDFromContext(ctx),
		Clinician: auth.HasRole(ctx, "clinician"),
	}
}

type createFactRequest struct {
	Category string                 `json:"category"`
	Payload  map[string]interface{} `json:"payload"`
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if !auth.CanActForPatient(c.Request().Context(), patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot write another patient's record")
	}
	var req createFactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f := &Fact{
		PatientID: patientID,
		Category:  Category(req.Category),
		Payload:   req.Payload,
	}
	if err := h.svc.Create(c.Request().Context(), f, actorFromContext(c)); err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	f, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), "fact not found")
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if !auth.CanActForPatient(c.Request().Context(), patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot read another patient's record")
	}
	if raw := c.QueryParam("categories"); raw != "" {
		var cats []Category
		for _, part := range strings.Split(raw, ",") {
			cat, err := ParseCategory(strings.TrimSpace(part))
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			cats = append(cats, cat)
		}
		items, err := h.svc.ListByPatientCategories(c.Request().Context(), patientID, cats)
		if err != nil {
			return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
		}
		return c.JSON(http.StatusOK, items)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type updateFactRequest struct {
	Payload map[string]interface{} `json:"payload"`
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateFactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.Update(c.Request().Context(), id, req.Payload, actorFromContext(c))
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id, actorFromContext(c)); err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
