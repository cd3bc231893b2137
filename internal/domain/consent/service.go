package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitalpass/vitalpass/internal/domain/policy"
	"github.com/vitalpass/vitalpass/internal/errs"
)

type Service struct {
	repo LinkRepository

	// nowFn is swapped in tests to pin expiry boundaries.
	nowFn func() time.Time
}

func NewService(repo LinkRepository) *Service {
	return &Service{repo: repo, nowFn: time.Now}
}

// Issue creates a consent link for the patient in the given sharing mode.
func (s *Service) Issue(ctx context.Context, patientID uuid.UUID, mode policy.Mode, durationMinutes int, label string) (*Link, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient id is required", errs.ErrValidation)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidMode, mode)
	}
	if _, ok := AllowedDurations[durationMinutes]; !ok {
		return nil, fmt.Errorf("%w: %d minutes", errs.ErrInvalidDuration, durationMinutes)
	}
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := s.nowFn()
	l := &Link{
		Token:           token,
		PatientID:       patientID,
		Mode:            mode,
		Label:           label,
		DurationMinutes: durationMinutes,
		ExpiresAt:       now.Add(time.Duration(durationMinutes) * time.Minute),
		CreatedAt:       now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	log.Info().
		Str("patient_id", patientID.String()).
		Str("mode", string(mode)).
		Int("duration_minutes", durationMinutes).
		Msg("consent link issued")
	return l, nil
}

// Resolve atomically consumes one access on the token. When the token is not
// active the error names why: ErrRevoked and ErrExpired for links that once
// worked, ErrNotFound for tokens that never existed.
func (s *Service) Resolve(ctx context.Context, token string) (*Link, error) {
	l, err := s.repo.ResolveAndCount(ctx, token, s.nowFn())
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	existing, getErr := s.repo.GetByToken(ctx, token)
	if getErr != nil {
		return nil, errs.ErrNotFound
	}
	if existing.RevokedAt != nil {
		return nil, errs.ErrRevoked
	}
	if !s.nowFn().Before(existing.ExpiresAt) {
		return nil, errs.ErrExpired
	}
	// The row became active between the two reads; treat as not found
	// rather than resolving without counting.
	return nil, errs.ErrNotFound
}

// Revoke marks the link unusable. Only the issuing patient may revoke it;
// revoking an already-revoked link is a no-op so the UI can retry safely.
func (s *Service) Revoke(ctx context.Context, token string, patientID uuid.UUID) error {
	l, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if l.PatientID != patientID {
		return errs.ErrForbidden
	}
	if l.RevokedAt != nil {
		return nil
	}
	err = s.repo.Revoke(ctx, token, s.nowFn())
	if errors.Is(err, errs.ErrNotFound) {
		// Lost the race with another revoke; the link is revoked either way.
		return nil
	}
	return err
}

func (s *Service) GetByToken(ctx context.Context, token string) (*Link, error) {
	return s.repo.GetByToken(ctx, token)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Link, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
