package verification

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Verification maps to the verification table: one ledger entry per clinician
// sign-off, recording exactly which facts were attested. Entries are never
// updated or deleted.
type Verification struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	PatientID   uuid.UUID   `db:"patient_id" json:"patient_id"`
	ClinicianID uuid.UUID   `db:"clinician_id" json:"clinician_id"`
	Categories  []string    `db:"categories" json:"categories"`
	FactIDs     []uuid.UUID `db:"fact_ids" json:"fact_ids"`
	Signature   string      `db:"signature" json:"signature"`
	Note        string      `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// ComputeSignature derives the entry's content hash. The fact list is sorted
// first, so the signature is independent of query order and can be recomputed
// later to check the entry was not tampered with.
func ComputeSignature(patientID, clinicianID uuid.UUID, factIDs []uuid.UUID, at time.Time) string {
	ids := make([]string, len(factIDs))
	for i, id := range factIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(patientID.String()))
	h.Write([]byte("|"))
	h.Write([]byte(clinicianID.String()))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(ids, ",")))
	h.Write([]byte("|"))
	h.Write([]byte(at.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the signature and compares it to the stored one.
func (v *Verification) Verify() bool {
	return v.Signature == ComputeSignature(v.PatientID, v.ClinicianID, v.FactIDs, v.CreatedAt)
}
