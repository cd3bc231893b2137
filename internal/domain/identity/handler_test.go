package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitalpass/vitalpass/internal/platform/auth"
)

func authedJSON(e *echo.Echo, method, path, body string, userID uuid.UUID, roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, userID.String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
	rec := httptest.NewRecorder()
	return e.NewContext(req.WithContext(ctx), rec), rec
}

func TestHandler_SetEmergencyLock_PatientOnly(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	p := &Patient{FullName: "Mira Osei", DateOfBirth: dob()}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := `{"enabled":true,"passcode":"hunter22"}`

	c, rec := authedJSON(e, http.MethodPut, "/", body, p.ID, "patient")
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.SetEmergencyLock(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	// No other subject flips the lock, not even a clinician.
	c, _ = authedJSON(e, http.MethodPut, "/", body, uuid.New(), "clinician")
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	err := h.SetEmergencyLock(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestHandler_UpdatePatient_OwnRecordOnly(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	p := &Patient{FullName: "Mira Osei", DateOfBirth: dob()}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, _ := authedJSON(e, http.MethodPut, "/", `{"full_name":"M. O."}`, uuid.New(), "patient")
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	err := h.UpdatePatient(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another patient's record, got %v", err)
	}
}
