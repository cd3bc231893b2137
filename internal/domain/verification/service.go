package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vitalpass/vitalpass/internal/domain/audittrail"
	"github.com/vitalpass/vitalpass/internal/domain/identity"
	"github.com/vitalpass/vitalpass/internal/domain/record"
	"github.com/vitalpass/vitalpass/internal/errs"
	"github.com/vitalpass/vitalpass/internal/platform/db"
)

// factVerifier is the slice of the fact repository the ledger needs.
type factVerifier interface {
	ListUnverified(ctx context.Context, patientID uuid.UUID, cats []record.Category) ([]*record.Fact, error)
	MarkVerified(ctx context.Context, ids []uuid.UUID, clinicianID uuid.UUID, lock bool) error
}

// directory resolves the two parties of a verification.
type directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetClinician(ctx context.Context, id uuid.UUID) (*identity.Clinician, error)
}

type auditor interface {
	Append(ctx context.Context, e *audittrail.Event) error
}

type Service struct {
	repo      VerificationRepository
	facts     factVerifier
	directory directory
	audit     auditor
	pool      *pgxpool.Pool

	// lockOnVerify makes clinician sign-off freeze the attested facts
	// against patient edits.
	lockOnVerify bool

	nowFn func() time.Time
}

func NewService(repo VerificationRepository, facts factVerifier, dir directory, audit auditor, pool *pgxpool.Pool, lockOnVerify bool) *Service {
	return &Service{
		repo:         repo,
		facts:        facts,
		directory:    dir,
		audit:        audit,
		pool:         pool,
		lockOnVerify: lockOnVerify,
		nowFn:        time.Now,
	}
}

// VerifyCategories attests every unverified fact the patient holds in the
// given categories. Marking the facts, writing the ledger entry and the audit
// event happen in one transaction: a partially verified batch never becomes
// visible.
func (s *Service) VerifyCategories(ctx context.Context, patientID, clinicianID uuid.UUID, cats []record.Category, note string) (*Verification, error) {
	if len(cats) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", errs.ErrValidation)
	}
	for _, c := range cats {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", errs.ErrValidation, c)
		}
	}
	patient, err := s.directory.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	clinician, err := s.directory.GetClinician(ctx, clinicianID)
	if err != nil {
		return nil, err
	}

	var v *Verification
	err = db.RunInTx(ctx, s.pool, func(ctx context.Context) error {
		facts, err := s.facts.ListUnverified(ctx, patientID, cats)
		if err != nil {
			return err
		}

		// An attestation with nothing left to flip still goes in the
		// ledger: the clinician reviewed the categories and signed off.
		factIDs := make([]uuid.UUID, len(facts))
		for i, f := range facts {
			factIDs[i] = f.ID
		}
		if len(factIDs) > 0 {
			if err := s.facts.MarkVerified(ctx, factIDs, clinicianID, s.lockOnVerify); err != nil {
				return err
			}
		}

		now := s.nowFn()
		v = &Verification{
			PatientID:   patientID,
			ClinicianID: clinicianID,
			Categories:  record.CategoryStrings(cats),
			FactIDs:     factIDs,
			Signature:   ComputeSignature(patientID, clinicianID, factIDs, now),
			Note:        note,
			CreatedAt:   now,
		}
		if err := s.repo.Create(ctx, v); err != nil {
			return err
		}

		return s.audit.Append(ctx, &audittrail.Event{
			PatientID:        patient.ID,
			ActorType:        audittrail.ActorClinician,
			ActorID:          &clinician.ID,
			ActorName:        clinician.FullName,
			ActorInstitution: clinician.Institution,
			Action:           audittrail.ActionVerify,
			Categories:       v.Categories,
			Channel:          audittrail.ChannelNormal,
			Metadata:         map[string]string{"verification_id": v.ID.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("patient_id", patientID.String()).
		Str("clinician_id", clinicianID.String()).
		Int("facts", len(v.FactIDs)).
		Msg("facts verified")
	return v, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Verification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Verification, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
