package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/vitalpass/vitalpass/internal/domain/record"
	"github.com/vitalpass/vitalpass/internal/errs"
)

// -- Mock Repository --

type policyKey struct {
	patientID uuid.UUID
	mode      Mode
}

type mockPolicyRepo struct {
	policies map[policyKey]*SharingPolicy
}

func newMockPolicyRepo() *mockPolicyRepo {
	return &mockPolicyRepo{policies: make(map[policyKey]*SharingPolicy)}
}

func (m *mockPolicyRepo) Create(_ context.Context, p *SharingPolicy) error {
	k := policyKey{p.PatientID, p.Mode}
	if _, ok := m.policies[k]; ok {
		return nil
	}
	p.ID = uuid.New()
	cp := *p
	m.policies[k] = &cp
	return nil
}

func (m *mockPolicyRepo) Get(_ context.Context, patientID uuid.UUID, mode Mode) (*SharingPolicy, error) {
	p, ok := m.policies[policyKey{patientID, mode}]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPolicyRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*SharingPolicy, error) {
	var result []*SharingPolicy
	for k, p := range m.policies {
		if k.patientID == patientID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockPolicyRepo) Update(_ context.Context, p *SharingPolicy) error {
	k := policyKey{p.PatientID, p.Mode}
	if _, ok := m.policies[k]; !ok {
		return errs.ErrNotFound
	}
	cp := *p
	m.policies[k] = &cp
	return nil
}

// -- Tests --

func TestGet_DefaultsWhenUnset(t *testing.T) {
	svc := NewService(newMockPolicyRepo())
	patientID := uuid.New()

	p, err := svc.Get(context.Background(), patientID, ModeEmergency)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Allergies || !p.Medications || !p.Conditions || !p.AdvanceDirective {
		t.Error("emergency default must include life-critical categories")
	}
	if p.Insurance || p.Documents {
		t.Error("emergency default must not include insurance or documents")
	}
}

func TestGet_InvalidMode(t *testing.T) {
	svc := NewService(newMockPolicyRepo())
	_, err := svc.Get(context.Background(), uuid.New(), Mode("DATING"))
	if !errors.Is(err, errs.ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestSet_CreatesRowOverDefaults(t *testing.T) {
	repo := newMockPolicyRepo()
	svc := NewService(repo)
	patientID := uuid.New()

	p := DefaultPolicy(patientID, ModeInsurance)
	p.Insurance = false
	if err := svc.Set(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Get(context.Background(), patientID, ModeInsurance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Insurance {
		t.Error("expected stored policy to override the default")
	}
}

func TestSetCategory(t *testing.T) {
	svc := NewService(newMockPolicyRepo())
	patientID := uuid.New()

	p, err := svc.SetCategory(context.Background(), patientID, ModeEmergency,
		record.CategoryLabResults, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.LabResults {
		t.Error("expected lab_results enabled")
	}
	// The rest of the default must survive the single-flag change.
	if !p.Allergies {
		t.Error("expected allergies still enabled")
	}
}

func TestSetCategory_UnknownCategory(t *testing.T) {
	svc := NewService(newMockPolicyRepo())
	_, err := svc.SetCategory(context.Background(), uuid.New(), ModeEmergency,
		record.Category("diet"), true)
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestEnsureDefaultPolicies_Idempotent(t *testing.T) {
	repo := newMockPolicyRepo()
	svc := NewService(repo)
	patientID := uuid.New()

	if err := svc.EnsureDefaultPolicies(context.Background(), patientID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Tighten one mode, reseed, and check the change survives.
	p, _ := svc.Get(context.Background(), patientID, ModeMedicalTourism)
	p.Documents = false
	if err := svc.Set(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.EnsureDefaultPolicies(context.Background(), patientID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(context.Background(), patientID, ModeMedicalTourism)
	if got.Documents {
		t.Error("reseeding must not overwrite an existing policy")
	}
}

func TestListByPatient_FillsMissingModes(t *testing.T) {
	repo := newMockPolicyRepo()
	svc := NewService(repo)
	patientID := uuid.New()

	p := DefaultPolicy(patientID, ModeEmergency)
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, err := svc.ListByPatient(context.Background(), patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != len(AllModes()) {
		t.Fatalf("expected %d policies, got %d", len(AllModes()), len(items))
	}
}

func TestCategorySetRoundTrip(t *testing.T) {
	p := DefaultPolicy(uuid.New(), ModeClinicVisit)
	set := p.CategorySet()
	if set.Contains(record.CategoryInsurance) {
		t.Error("clinic visit default must not include insurance")
	}
	if !set.Contains(record.CategoryLabResults) {
		t.Error("clinic visit default must include lab_results")
	}
}
