package record

import (
	"time"

	"github.com/google/uuid"
)

// Fact maps to the medical_fact table: one patient-reported (or imported)
// entry in a single record category. Category-specific fields live in the
// payload document.
//
// Invariant: Locked implies Verified. A locked fact rejects mutation and
// deletion by anyone but a clinician.
type Fact struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	PatientID  uuid.UUID              `db:"patient_id" json:"patient_id"`
	Category   Category               `db:"category" json:"category"`
	Payload    map[string]interface{} `db:"payload" json:"payload"`
	Verified   bool                   `db:"verified" json:"verified"`
	VerifiedAt *time.Time             `db:"verified_at" json:"verified_at,omitempty"`
	VerifiedBy *uuid.UUID             `db:"verified_by" json:"verified_by,omitempty"`
	Locked     bool                   `db:"locked" json:"locked"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time              `db:"updated_at" json:"updated_at"`
}

// Actor identifies who is attempting a record mutation.
type Actor struct {
	ID        uuid.UUID
	Clinician bool
}
