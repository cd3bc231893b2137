package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vitalpass/vitalpass/internal/domain/record"
	"github.com/vitalpass/vitalpass/internal/errs"
)

type Service struct {
	repo PolicyRepository
}

func NewService(repo PolicyRepository) *Service {
	return &Service{repo: repo}
}

// Get returns the patient's policy for a mode. A patient registered before a
// mode existed has no row; the built-in default applies so resolution never
// fails open or closed by accident.
func (s *Service) Get(ctx context.Context, patientID uuid.UUID, mode Mode) (*SharingPolicy, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidMode, mode)
	}
	p, err := s.repo.Get(ctx, patientID, mode)
	if errors.Is(err, errs.ErrNotFound) {
		return DefaultPolicy(patientID, mode), nil
	}
	return p, err
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*SharingPolicy, error) {
	stored, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	byMode := make(map[Mode]*SharingPolicy, len(stored))
	for _, p := range stored {
		byMode[p.Mode] = p
	}
	out := make([]*SharingPolicy, 0, len(AllModes()))
	for _, mode := range AllModes() {
		if p, ok := byMode[mode]; ok {
			out = append(out, p)
		} else {
			out = append(out, DefaultPolicy(patientID, mode))
		}
	}
	return out, nil
}

// Set replaces the patient's policy for a mode, creating the row if the
// defaults were still in effect.
func (s *Service) Set(ctx context.Context, p *SharingPolicy) error {
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: %q", errs.ErrInvalidMode, p.Mode)
	}
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient id is required", errs.ErrValidation)
	}
	err := s.repo.Update(ctx, p)
	if errors.Is(err, errs.ErrNotFound) {
		return s.repo.Create(ctx, p)
	}
	return err
}

// SetCategory flips a single category flag on the patient's policy for a mode.
func (s *Service) SetCategory(ctx context.Context, patientID uuid.UUID, mode Mode, category record.Category, allowed bool) (*SharingPolicy, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", errs.ErrValidation, category)
	}
	p, err := s.Get(ctx, patientID, mode)
	if err != nil {
		return nil, err
	}
	p.SetCategory(category, allowed)
	if err := s.Set(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// EnsureDefaultPolicies seeds one policy row per mode for a new patient.
// Existing rows are left untouched, so reseeding is safe.
func (s *Service) EnsureDefaultPolicies(ctx context.Context, patientID uuid.UUID) error {
	for _, mode := range AllModes() {
		if err := s.repo.Create(ctx, DefaultPolicy(patientID, mode)); err != nil {
			return fmt.Errorf("seed %s policy: %w", mode, err)
		}
	}
	return nil
}
