// Package access resolves consent tokens into filtered record views. It is
// the only read path for third parties: every view passes the patient's
// sharing policy and lands in the audit trail before data leaves the server.
package access

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitalpass/vitalpass/internal/domain/audittrail"
	"github.com/vitalpass/vitalpass/internal/domain/consent"
	"github.com/vitalpass/vitalpass/internal/domain/identity"
	"github.com/vitalpass/vitalpass/internal/domain/policy"
	"github.com/vitalpass/vitalpass/internal/domain/record"
)

// ActorInfo identifies the viewer for the audit trail.
type ActorInfo struct {
	Type        audittrail.ActorType
	ID          *uuid.UUID
	Name        string
	Institution string
}

// FilteredRecord is the view a consent token resolves to. Facts outside the
// policy's categories are absent, not redacted.
type FilteredRecord struct {
	PatientID   uuid.UUID                            `json:"patient_id"`
	PatientName string                               `json:"patient_name"`
	Mode        policy.Mode                          `json:"mode,omitempty"`
	Categories  []string                             `json:"categories"`
	Facts       map[record.Category][]*record.Fact   `json:"facts"`
	ResolvedAt  time.Time                            `json:"resolved_at"`
}

type tokenResolver interface {
	Resolve(ctx context.Context, token string) (*consent.Link, error)
}

type policyStore interface {
	Get(ctx context.Context, patientID uuid.UUID, mode policy.Mode) (*policy.SharingPolicy, error)
}

type factReader interface {
	ListByPatientCategories(ctx context.Context, patientID uuid.UUID, cats []record.Category) ([]*record.Fact, error)
}

type patientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type auditor interface {
	Append(ctx context.Context, e *audittrail.Event) error
}

type Resolver struct {
	consents tokenResolver
	policies policyStore
	facts    factReader
	patients patientDirectory
	audit    auditor

	nowFn func() time.Time
}

func NewResolver(consents tokenResolver, policies policyStore, facts factReader, patients patientDirectory, audit auditor) *Resolver {
	return &Resolver{
		consents: consents,
		policies: policies,
		facts:    facts,
		patients: patients,
		audit:    audit,
		nowFn:    time.Now,
	}
}

// ResolveShare consumes one access on the token and returns the record view
// its sharing policy allows, further narrowed to the requested categories
// (an empty request asks for everything the policy permits). The audit event
// is written before the view is returned; if the event cannot be written the
// caller gets an error and no data.
func (r *Resolver) ResolveShare(ctx context.Context, token string, requested []record.Category, actor ActorInfo) (*FilteredRecord, error) {
	link, err := r.consents.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	pol, err := r.policies.Get(ctx, link.PatientID, link.Mode)
	if err != nil {
		return nil, err
	}
	allowed := pol.CategorySet()
	if len(requested) > 0 {
		allowed = allowed.Intersect(record.NewCategorySet(requested...))
	}

	view, err := r.buildView(ctx, link.PatientID, link.Mode, allowed, nil)
	if err != nil {
		return nil, err
	}

	channel := audittrail.ChannelNormal
	if link.Mode == policy.ModeMedicalTourism {
		channel = audittrail.ChannelMedicalTourism
	}
	if err := r.audit.Append(ctx, &audittrail.Event{
		PatientID:        link.PatientID,
		ActorType:        actor.Type,
		ActorID:          actor.ID,
		ActorName:        actor.Name,
		ActorInstitution: actor.Institution,
		Action:           audittrail.ActionView,
		Categories:       view.Categories,
		ConsentToken:     &link.Token,
		Channel:          channel,
	}); err != nil {
		return nil, err
	}

	log.Info().
		Str("patient_id", link.PatientID.String()).
		Str("mode", string(link.Mode)).
		Strs("categories", view.Categories).
		Msg("consent link resolved")
	return view, nil
}

// ResolveVerifiedView returns the clinician-facing view of a patient's
// record: every category, but only clinician-verified facts. Sharing
// policies do not apply here; this is the privileged path for the treating
// clinician, not a consent channel.
func (r *Resolver) ResolveVerifiedView(ctx context.Context, patientID uuid.UUID, actor ActorInfo) (*FilteredRecord, error) {
	verifiedOnly := func(f *record.Fact) bool { return f.Verified }
	all := record.NewCategorySet(record.AllCategories()...)
	view, err := r.buildView(ctx, patientID, "", all, verifiedOnly)
	if err != nil {
		return nil, err
	}

	if err := r.audit.Append(ctx, &audittrail.Event{
		PatientID:        patientID,
		ActorType:        actor.Type,
		ActorID:          actor.ID,
		ActorName:        actor.Name,
		ActorInstitution: actor.Institution,
		Action:           audittrail.ActionView,
		Categories:       view.Categories,
		Channel:          audittrail.ChannelNormal,
		Metadata:         map[string]string{"view": "verified"},
	}); err != nil {
		return nil, err
	}
	return view, nil
}

func (r *Resolver) buildView(ctx context.Context, patientID uuid.UUID, mode policy.Mode, allowed record.CategorySet, keep func(*record.Fact) bool) (*FilteredRecord, error) {
	patient, err := r.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	facts, err := r.facts.ListByPatientCategories(ctx, patientID, allowed.Slice())
	if err != nil {
		return nil, err
	}

	grouped := make(map[record.Category][]*record.Fact)
	for _, f := range facts {
		if !allowed.Contains(f.Category) {
			continue
		}
		if keep != nil && !keep(f) {
			continue
		}
		grouped[f.Category] = append(grouped[f.Category], f)
	}

	return &FilteredRecord{
		PatientID:   patient.ID,
		PatientName: patient.FullName,
		Mode:        mode,
		Categories:  allowed.Strings(),
		Facts:       grouped,
		ResolvedAt:  r.nowFn(),
	}, nil
}
