package consent

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vitalpass/vitalpass/internal/domain/policy"
)

// AllowedDurations lists the grant lengths a patient can pick, in minutes:
// one day, one week, thirty days, ninety days. A closed list keeps the UI
// honest and makes "indefinite consent" impossible to express.
var AllowedDurations = map[int]struct{}{
	1440:   {},
	10080:  {},
	43200:  {},
	129600: {},
}

/// Link maps to the consent_link table. The token is the primary key: whoever
// holds it can resolve it, so it carries no patient identifier and is
// generated from 32 bytes of crypto/rand.
type Link struct {
	Token           string      `db:"token" json:"token"`
	PatientID       uuid.UUID   `db:"patient_id" json:"patient_id"`
	Mode            policy.Mode `db:"mode" json:"mode"`
	Label           string      `db:"label" json:"label,omitempty"`
	DurationMinutes int         `db:"duration_minutes" json:"duration_minutes"`
	ExpiresAt       time.Time   `db:"expires_at" json:"expires_at"`
	RevokedAt       *time.Time  `db:"revoked_at" json:"revoked_at,omitempty"`
	AccessedCount   int         `db:"accessed_count" json:"accessed_count"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}

// Active reports whether the link is usable at the given instant.
func (l *Link) Active(now time.Time) bool {
	return l.RevokedAt == nil && now.Before(l.ExpiresAt)
}

// NewToken returns a fresh URL-safe consent token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate consent token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
