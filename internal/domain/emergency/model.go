package emergency

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitalpass/vitalpass/internal/domain/record"
)

// View is what an emergency responder sees after presenting a code. When the
// patient has the override lock enabled, the first response carries only the
// identity block and RequiresOverride; the facts arrive after a successful
// passcode override.
type View struct {
	PatientID            uuid.UUID                          `json:"patient_id"`
	FullName             string                             `json:"full_name"`
	DateOfBirth          time.Time                          `json:"date_of_birth"`
	Nationality          string                             `json:"nationality,omitempty"`
	BloodType            string                             `json:"blood_type,omitempty"`
	AdvanceDirective     string                             `json:"advance_directive,omitempty"`
	EmergencyContactName string                             `json:"emergency_contact_name,omitempty"`
	EmergencyContactTel  string                             `json:"emergency_contact_tel,omitempty"`
	RequiresOverride     bool                               `json:"requires_override"`
	Categories           []string                           `json:"categories,omitempty"`
	Facts                map[record.Category][]*record.Fact `json:"facts,omitempty"`
	AccessedAt           time.Time                          `json:"accessed_at"`
}

// Responder carries what little we know about an anonymous emergency caller.
// Name and institution are self-reported; the audit trail stores them as
// claims, not facts.
type Responder struct {
	Name        string `json:"responder_name"`
	Institution string `json:"responder_institution"`
}
