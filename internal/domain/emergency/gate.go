// Package emergency implements the unauthenticated break-glass path: an
// emergency code or passport number resolves to a policy-filtered view of
// life-critical data. Every disclosure is audited, the patient can gate the
// path behind a passcode, and failed passcode attempts are both audited and
// rate limited.
package emergency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitalpass/vitalpass/internal/domain/audittrail"
	"github.com/vitalpass/vitalpass/internal/domain/identity"
	"github.com/vitalpass/vitalpass/internal/domain/policy"
	"github.com/vitalpass/vitalpass/internal/domain/record"
	"github.com/vitalpass/vitalpass/internal/errs"
	"github.com/vitalpass/vitalpass/internal/platform/limiter"
	"github.com/vitalpass/vitalpass/internal/platform/passcode"
)

type patientLookup interface {
	GetByEmergencyCode(ctx context.Context, code string) (*identity.Patient, error)
	GetByPassport(ctx context.Context, passport string) (*identity.Patient, error)
}

type policyStore interface {
	Get(ctx context.Context, patientID uuid.UUID, mode policy.Mode) (*policy.SharingPolicy, error)
}

type factReader interface {
	ListByPatientCategories(ctx context.Context, patientID uuid.UUID, cats []record.Category) ([]*record.Fact, error)
}

type auditor interface {
	Append(ctx context.Context, e *audittrail.Event) error
}

type Gate struct {
	patients patientLookup
	policies policyStore
	facts    factReader
	audit    auditor
	attempts limiter.Limiter

	nowFn func() time.Time
}

func NewGate(patients patientLookup, policies policyStore, facts factReader, audit auditor, attempts limiter.Limiter) *Gate {
	return &Gate{
		patients: patients,
		policies: policies,
		facts:    facts,
		audit:    audit,
		attempts: attempts,
		nowFn:    time.Now,
	}
}

// Access resolves an emergency code. An unknown code and a database error
// both surface as ErrNotFound so the public endpoint leaks nothing about
// which codes exist. When the patient's override lock is on, the view
// carries identity only and RequiresOverride is set.
func (g *Gate) Access(ctx context.Context, code string, responder Responder) (*View, error) {
	patient, err := g.patients.GetByEmergencyCode(ctx, identity.NormalizeEmergencyCode(code))
	if err != nil {
		return nil, errs.ErrNotFound
	}
	return g.open(ctx, patient, responder, false)
}

// AccessByPassport resolves a passport number, the lookup used when a
// traveler arrives without their card. The same uniform ErrNotFound applies.
func (g *Gate) AccessByPassport(ctx context.Context, passport string, responder Responder) (*View, error) {
	patient, err := g.patients.GetByPassport(ctx, passport)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	return g.open(ctx, patient, responder, false)
}

// Override resolves a locked record with the patient's override passcode.
// Failed attempts are audited and counted; repeated failures block the
// patient's record for the limiter's window.
func (g *Gate) Override(ctx context.Context, code, pass string, responder Responder) (*View, error) {
	patient, err := g.patients.GetByEmergencyCode(ctx, identity.NormalizeEmergencyCode(code))
	if err != nil {
		return nil, errs.ErrNotFound
	}
	return g.override(ctx, patient, pass, responder)
}

// OverrideByPassport is Override for records found by passport number, so a
// locked record reached through the passport lookup can still be opened.
func (g *Gate) OverrideByPassport(ctx context.Context, passport, pass string, responder Responder) (*View, error) {
	patient, err := g.patients.GetByPassport(ctx, passport)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	return g.override(ctx, patient, pass, responder)
}

func (g *Gate) override(ctx context.Context, patient *identity.Patient, pass string, responder Responder) (*View, error) {
	// The attempt counter is keyed by patient, not by lookup value: the code
	// and passport paths must not hand out separate failure budgets.
	limiterKey := patient.ID.String()

	ok, retryIn, err := g.attempts.Allow(ctx, limiterKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn().
			Str("patient_id", patient.ID.String()).
			Dur("retry_in", retryIn).
			Msg("emergency override blocked")
		return nil, errs.ErrRateLimited
	}

	if !patient.EmergencyLockEnabled || patient.OverridePasscodeHash == nil {
		// Nothing to override; the plain path already serves this record.
		return g.open(ctx, patient, responder, false)
	}

	if !passcode.Verify(pass, *patient.OverridePasscodeHash) {
		if err := g.attempts.Failure(ctx, limiterKey); err != nil {
			return nil, err
		}
		// Denied attempts go in the trail: the patient must see that
		// someone knocked, and with what name.
		if err := g.audit.Append(ctx, g.event(patient, responder,
			audittrail.ActionEmergencyOverride, audittrail.ChannelEmergencyOverride,
			nil, map[string]string{"outcome": "denied"})); err != nil {
			return nil, err
		}
		return nil, errs.ErrInvalidPasscode
	}

	if err := g.attempts.Success(ctx, limiterKey); err != nil {
		return nil, err
	}
	return g.open(ctx, patient, responder, true)
}

// open builds the emergency view and writes the audit event. No event, no
// view.
func (g *Gate) open(ctx context.Context, patient *identity.Patient, responder Responder, overridden bool) (*View, error) {
	view := &View{
		PatientID:            patient.ID,
		FullName:             patient.FullName,
		DateOfBirth:          patient.DateOfBirth,
		Nationality:          patient.Nationality,
		EmergencyContactName: patient.EmergencyContactName,
		EmergencyContactTel:  patient.EmergencyContactTel,
		AccessedAt:           g.nowFn(),
	}

	if patient.EmergencyLockEnabled && !overridden {
		// Identity block only: blood type and the advance directive count
		// as medical data and stay behind the lock. A locked denial is not
		// a disclosure, so it does not enter the patient's audit trail; the
		// security log keeps the signal instead.
		view.RequiresOverride = true
		log.Warn().
			Str("patient_id", patient.ID.String()).
			Str("responder", responder.Name).
			Msg("emergency access denied by lock")
		return view, nil
	}

	view.BloodType = patient.BloodType
	view.AdvanceDirective = patient.AdvanceDirective

	pol, err := g.policies.Get(ctx, patient.ID, policy.ModeEmergency)
	if err != nil {
		return nil, err
	}
	allowed := pol.CategorySet()

	facts, err := g.facts.ListByPatientCategories(ctx, patient.ID, allowed.Slice())
	if err != nil {
		return nil, err
	}
	grouped := make(map[record.Category][]*record.Fact)
	for _, f := range facts {
		if allowed.Contains(f.Category) {
			grouped[f.Category] = append(grouped[f.Category], f)
		}
	}
	view.Categories = allowed.Strings()
	view.Facts = grouped

	action := audittrail.ActionEmergencyAccess
	channel := audittrail.ChannelEmergency
	if overridden {
		action = audittrail.ActionEmergencyOverride
		channel = audittrail.ChannelEmergencyOverride
	}
	if err := g.audit.Append(ctx, g.event(patient, responder, action, channel,
		view.Categories, map[string]string{"outcome": "granted"})); err != nil {
		return nil, err
	}

	log.Warn().
		Str("patient_id", patient.ID.String()).
		Bool("overridden", overridden).
		Strs("categories", view.Categories).
		Msg("emergency record opened")
	return view, nil
}

func (g *Gate) event(patient *identity.Patient, responder Responder, action audittrail.Action, channel audittrail.Channel, categories []string, metadata map[string]string) *audittrail.Event {
	if categories == nil {
		categories = []string{}
	}
	return &audittrail.Event{
		PatientID:        patient.ID,
		ActorType:        audittrail.ActorEmergency,
		ActorName:        responder.Name,
		ActorInstitution: responder.Institution,
		Action:           action,
		Categories:       categories,
		Channel:          channel,
		Metadata:         metadata,
	}
}
