package emergency

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/vitalpass/vitalpass/internal/domain/record"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, *fixture) {
	t.Helper()
	fx := newFixture(t, 3)
	return NewHandler(fx.gate), echo.New(), fx
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Access(t *testing.T) {
	h, e, fx := newTestHandler(t)
	fx.addFact(record.CategoryAllergies)

	c, rec := postJSON(e, "/emergency/access",
		`{"code":"`+testCode+`","responder_name":"EMT Diaz"}`)
	if err := h.Access(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var view View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.FullName != "Mira Osei" {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestHandler_Access_Locked(t *testing.T) {
	h, e, fx := newTestHandler(t)
	fx.lock(t, "hunter22")

	c, rec := postJSON(e, "/emergency/access", `{"code":"`+testCode+`"}`)
	if err := h.Access(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusLocked {
		t.Errorf("expected 423, got %d", rec.Code)
	}
}

func TestHandler_Access_UnknownCode(t *testing.T) {
	h, e, _ := newTestHandler(t)

	c, _ := postJSON(e, "/emergency/access", `{"code":"VP-AAAA-AAAA"}`)
	err := h.Access(c)
	if err == nil {
		t.Fatal("expected error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_Access_MissingCode(t *testing.T) {
	h, e, _ := newTestHandler(t)

	c, _ := postJSON(e, "/emergency/access", `{}`)
	err := h.Access(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Override_WrongPasscode(t *testing.T) {
	h, e, fx := newTestHandler(t)
	fx.lock(t, "hunter22")

	c, _ := postJSON(e, "/emergency/override",
		`{"code":"`+testCode+`","passcode":"letmein"}`)
	err := h.Override(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_Override_ByPassport(t *testing.T) {
	h, e, fx := newTestHandler(t)
	passport := "G1234567"
	fx.patient.PassportNumber = &passport
	fx.lookup.byPassport[passport] = fx.patient
	fx.lock(t, "hunter22")

	c, rec := postJSON(e, "/emergency/override",
		`{"passport":"G1234567","passcode":"hunter22"}`)
	if err := h.Override(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Override_Success(t *testing.T) {
	h, e, fx := newTestHandler(t)
	fx.lock(t, "hunter22")
	fx.addFact(record.CategoryMedications)

	c, rec := postJSON(e, "/emergency/override",
		`{"code":"`+testCode+`","passcode":"hunter22","responder_name":"EMT Diaz"}`)
	if err := h.Override(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
