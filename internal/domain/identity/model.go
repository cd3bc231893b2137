package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. EmergencyCode is the printable
// identifier carried on a card or bracelet; it resolves to the emergency
// view, never to the full record. OverridePasscodeHash is set only while
// the emergency lock is enabled.
type Patient struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	FullName             string     `db:"full_name" json:"full_name"`
	DateOfBirth          time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Nationality          string     `db:"nationality" json:"nationality,omitempty"`
	BloodType            string     `db:"blood_type" json:"blood_type,omitempty"`
	AdvanceDirective     string     `db:"advance_directive" json:"advance_directive,omitempty"`
	PassportNumber       *string    `db:"passport_number" json:"passport_number,omitempty"`
	EmergencyCode        string     `db:"emergency_code" json:"emergency_code"`
	EmergencyContactName string     `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactTel  string     `db:"emergency_contact_tel" json:"emergency_contact_tel,omitempty"`
	EmergencyLockEnabled bool       `db:"emergency_lock_enabled" json:"emergency_lock_enabled"`
	OverridePasscodeHash *string    `db:"override_passcode_hash" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// Clinician maps to the clinician table.
type Clinician struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	LicenseNumber string    `db:"license_number" json:"license_number"`
	Institution   string    `db:"institution" json:"institution"`
	Specialty     string    `db:"specialty" json:"specialty,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
