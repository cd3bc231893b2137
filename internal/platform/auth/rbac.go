package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that rejects requests whose authenticated
// user carries none of the given roles. Admin always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == "admin" {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// CanActForPatient reports whether the authenticated subject may act on the
// given patient's resources. The patient themselves always may; otherwise a
// privileged role is required. A caller holding only the patient role is
// confined to their own id, whatever id the request names.
func CanActForPatient(ctx context.Context, patientID uuid.UUID) bool {
	if UserUUIDFromContext(ctx) == patientID {
		return true
	}
	for _, r := range RolesFromContext(ctx) {
		switch r {
		case "clinician", "clinic_staff", "admin":
			return true
		}
	}
	return false
}
