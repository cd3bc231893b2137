package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vitalpass/vitalpass/internal/errs"
	"github.com/vitalpass/vitalpass/internal/platform/passcode"
)

// -- Mocks --

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
	byCode   map[string]uuid.UUID
	// codeCollisions makes the first N creates fail as duplicates.
	codeCollisions int
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{
		patients: make(map[uuid.UUID]*Patient),
		byCode:   make(map[string]uuid.UUID),
	}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	if m.codeCollisions > 0 {
		m.codeCollisions--
		return errs.ErrAlreadyExists
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.patients[p.ID] = p
	m.byCode[p.EmergencyCode] = p.ID
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByEmergencyCode(_ context.Context, code string) (*Patient, error) {
	id, ok := m.byCode[code]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return m.patients[id], nil
}

func (m *mockPatientRepo) GetByPassport(_ context.Context, passport string) (*Patient, error) {
	for _, p := range m.patients {
		if p.PassportNumber != nil && *p.PassportNumber == passport {
			return p, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return errs.ErrNotFound
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) UpdateEmergencyLock(_ context.Context, id uuid.UUID, enabled bool, passcodeHash *string) error {
	p, ok := m.patients[id]
	if !ok {
		return errs.ErrNotFound
	}
	p.EmergencyLockEnabled = enabled
	p.OverridePasscodeHash = passcodeHash
	return nil
}

type mockClinicianRepo struct {
	clinicians map[uuid.UUID]*Clinician
}

func newMockClinicianRepo() *mockClinicianRepo {
	return &mockClinicianRepo{clinicians: make(map[uuid.UUID]*Clinician)}
}

func (m *mockClinicianRepo) Create(_ context.Context, c *Clinician) error {
	c.ID = uuid.New()
	m.clinicians[c.ID] = c
	return nil
}

func (m *mockClinicianRepo) GetByID(_ context.Context, id uuid.UUID) (*Clinician, error) {
	c, ok := m.clinicians[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return c, nil
}

func (m *mockClinicianRepo) List(_ context.Context, _, _ int) ([]*Clinician, int, error) {
	var result []*Clinician
	for _, c := range m.clinicians {
		result = append(result, c)
	}
	return result, len(result), nil
}

type mockBootstrapper struct {
	seeded []uuid.UUID
	fail   bool
}

func (m *mockBootstrapper) EnsureDefaultPolicies(_ context.Context, patientID uuid.UUID) error {
	if m.fail {
		return errors.New("policy store unavailable")
	}
	m.seeded = append(m.seeded, patientID)
	return nil
}

func newTestService() (*Service, *mockPatientRepo, *mockBootstrapper) {
	patients := newMockPatientRepo()
	boot := &mockBootstrapper{}
	return NewService(patients, newMockClinicianRepo(), boot, "VP"), patients, boot
}

func dob() time.Time {
	return time.Date(1984, 6, 14, 0, 0, 0, 0, time.UTC)
}

// -- Tests --

func TestRegisterPatient(t *testing.T) {
	svc, _, boot := newTestService()
	p := &Patient{FullName: "Mira Osei", DateOfBirth: dob(), BloodType: "O-"}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	matched, _ := regexp.MatchString(`^VP-[A-Z2-9]{4}-[A-Z2-9]{4}$`, p.EmergencyCode)
	if !matched {
		t.Errorf("unexpected emergency code format: %s", p.EmergencyCode)
	}
	if len(boot.seeded) != 1 || boot.seeded[0] != p.ID {
		t.Error("expected default policies seeded for new patient")
	}
}

func TestRegisterPatient_NameRequired(t *testing.T) {
	svc, _, _ := newTestService()
	p := &Patient{DateOfBirth: dob()}
	if err := svc.RegisterPatient(context.Background(), p); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegisterPatient_RetriesOnCodeCollision(t *testing.T) {
	svc, patients, _ := newTestService()
	patients.codeCollisions = 2
	p := &Patient{FullName: "Mira Osei", DateOfBirth: dob()}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.EmergencyCode == "" {
		t.Error("expected emergency code after retries")
	}
}

func TestRegisterPatient_GivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, patients, _ := newTestService()
	patients.codeCollisions = codeRetries
	p := &Patient{FullName: "Mira Osei", DateOfBirth: dob()}
	if err := svc.RegisterPatient(context.Background(), p); err == nil {
		t.Error("expected error when every code collides")
	}
}

func TestSetEmergencyLock_EnableStoresHash(t *testing.T) {
	svc, patients, _ := newTestService()
	p := &Patient{FullName: "Mira Osei", DateOfBirth: dob()}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetEmergencyLock(context.Background(), p.ID, true, "hunter22"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := patients.patients[p.ID]
	if !stored.EmergencyLockEnabled {
		t.Error("expected lock enabled")
	}
	if stored.OverridePasscodeHash == nil {
		t.Fatal("expected passcode hash stored")
	}
	if *stored.OverridePasscodeHash == "hunter22" {
		t.Error("passcode must not be stored in the clear")
	}
	if !passcode.Verify("hunter22", *stored.OverridePasscodeHash) {
		t.Error("stored hash does not verify against the passcode")
	}
}

func TestSetEmergencyLock_ShortPasscodeRejected(t *testing.T) {
	svc, _, _ := newTestService()
	p := &Patient{FullName: "Mira Osei", DateOfBirth: dob()}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetEmergencyLock(context.Background(), p.ID, true, "1234"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSetEmergencyLock_DisableClearsHash(t *testing.T) {
	svc, patients, _ := newTestService()
	p := &Patient{FullName: "Mira Osei", DateOfBirth: dob()}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetEmergencyLock(context.Background(), p.ID, true, "hunter22"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetEmergencyLock(context.Background(), p.ID, false, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := patients.patients[p.ID]
	if stored.EmergencyLockEnabled || stored.OverridePasscodeHash != nil {
		t.Error("expected lock disabled and hash cleared")
	}
}

func TestNormalizeEmergencyCode(t *testing.T) {
	got := NormalizeEmergencyCode("  vp-k3nm-8xq2 ")
	if got != "VP-K3NM-8XQ2" {
		t.Errorf("expected normalized code, got %q", got)
	}
}

func TestRegisterClinician_LicenseRequired(t *testing.T) {
	svc, _, _ := newTestService()
	cl := &Clinician{FullName: "Dr. Ruiz", Institution: "St. Anne"}
	if err := svc.RegisterClinician(context.Background(), cl); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
