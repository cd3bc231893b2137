package audittrail

import (
	"time"

	"github.com/google/uuid"
)

// ActorType classifies who performed an access or mutation.
type ActorType string

const (
	ActorPatient     ActorType = "PATIENT"
	ActorClinician   ActorType = "CLINICIAN"
	ActorInsurer     ActorType = "INSURER"
	ActorClinicStaff ActorType = "CLINIC_STAFF"
	ActorEmergency   ActorType = "EMERGENCY_ACCESS"
	ActorSystem      ActorType = "SYSTEM"
)

// Valid reports whether t is a known actor type.
func (t ActorType) Valid() bool {
	switch t {
	case ActorPatient, ActorClinician, ActorInsurer, ActorClinicStaff,
		ActorEmergency, ActorSystem:
		return true
	}
	return false
}

// Action classifies what was done.
type Action string

const (
	ActionView              Action = "VIEW"
	ActionVerify            Action = "VERIFY"
	ActionCreate            Action = "CREATE"
	ActionUpdate            Action = "UPDATE"
	ActionDownload          Action = "DOWNLOAD"
	ActionRevoke            Action = "REVOKE"
	ActionSubmitIntake      Action = "SUBMIT_INTAKE"
	ActionImport            Action = "IMPORT"
	ActionEmergencyAccess   Action = "EMERGENCY_ACCESS"
	ActionEmergencyOverride Action = "EMERGENCY_OVERRIDE"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionVerify, ActionCreate, ActionUpdate, ActionDownload,
		ActionRevoke, ActionSubmitIntake, ActionImport,
		ActionEmergencyAccess, ActionEmergencyOverride:
		return true
	}
	return false
}

// Channel tags the consent path an access flowed through.
type Channel string

const (
	ChannelNormal            Channel = "NORMAL"
	ChannelEmergency         Channel = "EMERGENCY"
	ChannelEmergencyOverride Channel = "EMERGENCY_OVERRIDE"
	ChannelMedicalTourism    Channel = "MEDICAL_TOURISM"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelNormal, ChannelEmergency, ChannelEmergencyOverride, ChannelMedicalTourism:
		return true
	}
	return false
}

// Event maps to the audit_event table. Events are append-only: neither the
// repository interface nor any HTTP route exposes an update or delete, which
// is what makes this the patient's non-repudiation record.
type Event struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	PatientID        uuid.UUID         `db:"patient_id" json:"patient_id"`
	ActorType        ActorType         `db:"actor_type" json:"actor_type"`
	ActorID          *uuid.UUID        `db:"actor_id" json:"actor_id,omitempty"`
	ActorName        string            `db:"actor_name" json:"actor_name,omitempty"`
	ActorInstitution string            `db:"actor_institution" json:"actor_institution,omitempty"`
	Action           Action            `db:"action" json:"action"`
	Categories       []string          `db:"categories" json:"categories"`
	ConsentToken     *string           `db:"consent_token" json:"consent_token,omitempty"`
	Channel          Channel           `db:"channel" json:"channel"`
	Metadata         map[string]string `db:"metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}

// Filter narrows audit queries. Zero values match everything.
type Filter struct {
	Channel   Channel
	ActorType ActorType
	Action    Action
}
