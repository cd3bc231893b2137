package record

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vitalpass/vitalpass/internal/domain/audittrail"
	"github.com/vitalpass/vitalpass/internal/errs"
)

// auditor is what the service needs from the audit trail.
type auditor interface {
	Append(ctx context.Context, e *audittrail.Event) error
}

type Service struct {
	repo  FactRepository
	audit auditor
}

func NewService(repo FactRepository, audit auditor) *Service {
	return &Service{repo: repo, audit: audit}
}

// CanMutate reports whether the actor may change or delete the fact.
// Locked facts accept mutations from clinicians only.
func CanMutate(f *Fact, actor Actor) bool {
	return !f.Locked || actor.Clinician
}

func (s *Service) Create(ctx context.Context, f *Fact, actor Actor) error {
	if f.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient id is required", errs.ErrValidation)
	}
	if !f.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", errs.ErrValidation, f.Category)
	}
	if len(f.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", errs.ErrValidation)
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return err
	}
	return s.auditMutation(ctx, f, actor, audittrail.ActionCreate, nil)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Fact, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, payload map[string]interface{}, actor Actor) (*Fact, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: payload is required", errs.ErrValidation)
	}
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Clinician && f.PatientID != actor.ID {
		return nil, errs.ErrForbidden
	}
	if !CanMutate(f, actor) {
		return nil, errs.ErrLocked
	}
	f.Payload = payload
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	if err := s.auditMutation(ctx, f, actor, audittrail.ActionUpdate, nil); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Clinician && f.PatientID != actor.ID {
		return errs.ErrForbidden
	}
	if !CanMutate(f, actor) {
		return errs.ErrLocked
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	// The audit action set has no DELETE; deletions record as UPDATE with
	// an op marker so the trail still names what happened.
	return s.auditMutation(ctx, f, actor, audittrail.ActionUpdate, map[string]string{"op": "delete"})
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Fact, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByPatientCategories(ctx context.Context, patientID uuid.UUID, cats []Category) ([]*Fact, error) {
	for _, c := range cats {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", errs.ErrValidation, c)
		}
	}
	return s.repo.ListByPatientCategories(ctx, patientID, cats)
}

func (s *Service) auditMutation(ctx context.Context, f *Fact, actor Actor, action audittrail.Action, metadata map[string]string) error {
	actorType := audittrail.ActorPatient
	if actor.Clinician {
		actorType = audittrail.ActorClinician
	}
	actorID := actor.ID
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["fact_id"] = f.ID.String()
	return s.audit.Append(ctx, &audittrail.Event{
		PatientID:  f.PatientID,
		ActorType:  actorType,
		ActorID:    &actorID,
		Action:     action,
		Categories: []string{string(f.Category)},
		Channel:    audittrail.ChannelNormal,
		Metadata:   metadata,
	})
}
