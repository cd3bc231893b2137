package emergency

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitalpass/vitalpass/internal/errs"
)

type Handler struct {
	gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

// RegisterRoutes mounts the break-glass endpoints on the public group: no
// JWT, no roles. The global rate limit middleware still applies.
func (h *Handler) RegisterRoutes(public *echo.Group) {
	public.POST("/access", h.Access)
	public.POST("/access/passport", h.AccessByPassport)
	public.POST("/override", h.Override)
}

type accessRequest struct {
	Code string `json:"code"`
	Responder
}

func (h *Handler) Access(c echo.Context) error {
	var req accessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	view, err := h.gate.Access(c.Request().Context(), req.Code, req.Responder)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	if view.RequiresOverride {
		return c.JSON(http.StatusLocked, view)
	}
	return c.JSON(http.StatusOK, view)
}

type passportRequest struct {
	Passport string `json:"passport"`
	Responder
}

func (h *Handler) AccessByPassport(c echo.Context) error {
	var req passportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Passport == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "passport is required")
	}
	view, err := h.gate.AccessByPassport(c.Request().Context(), req.Passport, req.Responder)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	if view.RequiresOverride {
		return c.JSON(http.StatusLocked, view)
	}
	return c.JSON(http.StatusOK, view)
}

type overrideRequest struct {
	Code     string `json:"code"`
	Passport string `json:"passport"`
	Passcode string `json:"passcode"`
	Responder
}

func (h *Handler) Override(c echo.Context) error {
	var req overrideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Passcode == "" || (req.Code == "" && req.Passport == "") {
		return echo.NewHTTPError(http.StatusBadRequest, "passcode and a code or passport are required")
	}
	var (
		view *View
		err  error
	)
	if req.Code != "" {
		view, err = h.gate.Override(c.Request().Context(), req.Code, req.Passcode, req.Responder)
	} else {
		view, err = h.gate.OverrideByPassport(c.Request().Context(), req.Passport, req.Passcode, req.Responder)
	}
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, view)
}
