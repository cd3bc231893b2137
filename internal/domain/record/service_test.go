package record

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vitalpass/vitalpass/internal/domain/audittrail"
	"github.com/vitalpass/vitalpass/internal/errs"
)

// -- Mocks --

type mockFactRepo struct {
	facts map[uuid.UUID]*Fact
}

func newMockFactRepo() *mockFactRepo {
	return &mockFactRepo{facts: make(map[uuid.UUID]*Fact)}
}

func (m *mockFactRepo) Create(_ context.Context, f *Fact) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = time.Now()
	cp := *f
	m.facts[f.ID] = &cp
	return nil
}

func (m *mockFactRepo) GetByID(_ context.Context, id uuid.UUID) (*Fact, error) {
	f, ok := m.facts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockFactRepo) Update(_ context.Context, f *Fact) error {
	if _, ok := m.facts[f.ID]; !ok {
		return errs.ErrNotFound
	}
	cp := *f
	m.facts[f.ID] = &cp
	return nil
}

func (m *mockFactRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.facts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.facts, id)
	return nil
}

func (m *mockFactRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*Fact, int, error) {
	var result []*Fact
	for _, f := range m.facts {
		if f.PatientID == patientID {
			result = append(result, f)
		}
	}
	return result, len(result), nil
}

func (m *mockFactRepo) ListByPatientCategories(_ context.Context, patientID uuid.UUID, cats []Category) ([]*Fact, error) {
	allowed := NewCategorySet(cats...)
	var result []*Fact
	for _, f := range m.facts {
		if f.PatientID == patientID && allowed.Contains(f.Category) {
			result = append(result, f)
		}
	}
	return result, nil
}

func (m *mockFactRepo) ListUnverified(_ context.Context, patientID uuid.UUID, cats []Category) ([]*Fact, error) {
	allowed := NewCategorySet(cats...)
	var result []*Fact
	for _, f := range m.facts {
		if f.PatientID == patientID && allowed.Contains(f.Category) && !f.Verified {
			result = append(result, f)
		}
	}
	return result, nil
}

func (m *mockFactRepo) MarkVerified(_ context.Context, ids []uuid.UUID, clinicianID uuid.UUID, lock bool) error {
	now := time.Now()
	for _, id := range ids {
		f, ok := m.facts[id]
		if !ok {
			continue
		}
		f.Verified = true
		f.VerifiedAt = &now
		f.VerifiedBy = &clinicianID
		f.Locked = f.Locked || lock
	}
	return nil
}

type mockAuditor struct {
	events []*audittrail.Event
	fail   bool
}

func (m *mockAuditor) Append(_ context.Context, e *audittrail.Event) error {
	if m.fail {
		return fmt.Errorf("audit store unavailable")
	}
	m.events = append(m.events, e)
	return nil
}

func newTestService() (*Service, *mockFactRepo, *mockAuditor) {
	repo := newMockFactRepo()
	audit := &mockAuditor{}
	return NewService(repo, audit), repo, audit
}

// -- Tests --

func TestCreateFact(t *testing.T) {
	svc, _, audit := newTestService()
	f := &Fact{
		PatientID: uuid.New(),
		Category:  CategoryAllergies,
		Payload:   map[string]interface{}{"substance": "penicillin", "severity": "severe"},
	}
	if err := svc.Create(context.Background(), f, Actor{ID: uuid.New()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if len(audit.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(audit.events))
	}
	if audit.events[0].Action != audittrail.ActionCreate {
		t.Errorf("expected CREATE audit action, got %s", audit.events[0].Action)
	}
}

func TestCreateFact_InvalidCategory(t *testing.T) {
	svc, _, _ := newTestService()
	f := &Fact{
		PatientID: uuid.New(),
		Category:  Category("diet"),
		Payload:   map[string]interface{}{"x": 1},
	}
	err := svc.Create(context.Background(), f, Actor{ID: uuid.New()})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateFact_AuditFailureBlocksCreate(t *testing.T) {
	svc, _, audit := newTestService()
	audit.fail = true
	f := &Fact{
		PatientID: uuid.New(),
		Category:  CategoryMedications,
		Payload:   map[string]interface{}{"name": "metformin"},
	}
	if err := svc.Create(context.Background(), f, Actor{ID: uuid.New()}); err == nil {
		t.Error("expected error when audit append fails")
	}
}

func TestUpdateFact_LockedRejectsPatient(t *testing.T) {
	svc, repo, _ := newTestService()
	patientID := uuid.New()
	f := &Fact{
		PatientID: patientID,
		Category:  CategoryConditions,
		Payload:   map[string]interface{}{"name": "asthma"},
	}
	if err := svc.Create(context.Background(), f, Actor{ID: patientID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := repo.facts[f.ID]
	stored.Verified = true
	stored.Locked = true

	_, err := svc.Update(context.Background(), f.ID,
		map[string]interface{}{"name": "copd"}, Actor{ID: patientID})
	if !errors.Is(err, errs.ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
}

func TestUpdateFact_LockedAllowsClinician(t *testing.T) {
	svc, repo, audit := newTestService()
	f := &Fact{
		PatientID: uuid.New(),
		Category:  CategoryConditions,
		Payload:   map[string]interface{}{"name": "asthma"},
	}
	if err := svc.Create(context.Background(), f, Actor{ID: uuid.New()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := repo.facts[f.ID]
	stored.Verified = true
	stored.Locked = true

	updated, err := svc.Update(context.Background(), f.ID,
		map[string]interface{}{"name": "copd"}, Actor{ID: uuid.New(), Clinician: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Payload["name"] != "copd" {
		t.Errorf("expected updated payload, got %v", updated.Payload)
	}
	last := audit.events[len(audit.events)-1]
	if last.ActorType != audittrail.ActorClinician {
		t.Errorf("expected CLINICIAN actor type, got %s", last.ActorType)
	}
}

func TestDeleteFact_AuditsWithOpMarker(t *testing.T) {
	svc, _, audit := newTestService()
	patientID := uuid.New()
	f := &Fact{
		PatientID: patientID,
		Category:  CategoryDocuments,
		Payload:   map[string]interface{}{"title": "discharge summary"},
	}
	if err := svc.Create(context.Background(), f, Actor{ID: patientID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(context.Background(), f.ID, Actor{ID: patientID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := audit.events[len(audit.events)-1]
	if last.Metadata["op"] != "delete" {
		t.Errorf("expected op=delete metadata, got %v", last.Metadata)
	}
	if _, err := svc.GetByID(context.Background(), f.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound after deletion, got %v", err)
	}
}

func TestDeleteFact_LockedRejectsPatient(t *testing.T) {
	svc, repo, _ := newTestService()
	patientID := uuid.New()
	f := &Fact{
		PatientID: patientID,
		Category:  CategoryVaccinations,
		Payload:   map[string]interface{}{"vaccine": "tdap"},
	}
	if err := svc.Create(context.Background(), f, Actor{ID: patientID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := repo.facts[f.ID]
	stored.Verified = true
	stored.Locked = true

	err := svc.Delete(context.Background(), f.ID, Actor{ID: patientID})
	if !errors.Is(err, errs.ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
}

func TestMutate_OtherPatientForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.New()
	f := &Fact{
		PatientID: owner,
		Category:  CategoryConditions,
		Payload:   map[string]interface{}{"name": "asthma"},
	}
	if err := svc.Create(context.Background(), f, Actor{ID: owner}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A different patient cannot touch it, locked or not.
	other := Actor{ID: uuid.New()}
	if _, err := svc.Update(context.Background(), f.ID,
		map[string]interface{}{"name": "copd"}, other); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("expected ErrForbidden on update, got %v", err)
	}
	if err := svc.Delete(context.Background(), f.ID, other); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("expected ErrForbidden on delete, got %v", err)
	}
}

func TestListByPatientCategories_UnknownCategory(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.ListByPatientCategories(context.Background(), uuid.New(), []Category{"diet"})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCategorySetIntersect(t *testing.T) {
	a := NewCategorySet(CategoryAllergies, CategoryMedications, CategoryInsurance)
	b := NewCategorySet(CategoryMedications, CategoryInsurance, CategoryConditions)
	got := a.Intersect(b).Slice()
	want := []Category{CategoryInsurance, CategoryMedications}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}
