package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitalpass/vitalpass/internal/errs"
	"github.com/vitalpass/vitalpass/internal/platform/passcode"
)

// codeRetries bounds how often registration regenerates on an emergency
// code collision before giving up.
const codeRetries = 5

// policyBootstrapper seeds a new patient's sharing policies. Implemented by
// the policy service; kept as a local interface so identity does not import
// the policy package.
type policyBootstrapper interface {
	EnsureDefaultPolicies(ctx context.Context, patientID uuid.UUID) error
}

type Service struct {
	patients   PatientRepository
	clinicians ClinicianRepository
	policies   policyBootstrapper
	codePrefix string
}

func NewService(patients PatientRepository, clinicians ClinicianRepository, policies policyBootstrapper, codePrefix string) *Service {
	return &Service{
		patients:   patients,
		clinicians: clinicians,
		policies:   policies,
		codePrefix: codePrefix,
	}
}

// RegisterPatient creates the patient, assigns a unique emergency code and
// seeds the default sharing policies for every mode.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return fmt.Errorf("%w: full name is required", errs.ErrValidation)
	}
	if p.DateOfBirth.IsZero() {
		return fmt.Errorf("%w: date of birth is required", errs.ErrValidation)
	}

	var err error
	for attempt := 0; attempt < codeRetries; attempt++ {
		p.EmergencyCode, err = GenerateEmergencyCode(s.codePrefix)
		if err != nil {
			return err
		}
		err = s.patients.Create(ctx, p)
		if err == nil {
			break
		}
		if !errors.Is(err, errs.ErrAlreadyExists) {
			return err
		}
	}
	if err != nil {
		return fmt.Errorf("assign emergency code: %w", err)
	}

	if err := s.policies.EnsureDefaultPolicies(ctx, p.ID); err != nil {
		return fmt.Errorf("seed default policies: %w", err)
	}
	log.Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return fmt.Errorf("%w: full name is required", errs.ErrValidation)
	}
	return s.patients.Update(ctx, p)
}

// SetEmergencyLock enables or disables the emergency access lock. Enabling
// requires a passcode, which is stored only as an Argon2id hash; disabling
// clears the stored hash.
func (s *Service) SetEmergencyLock(ctx context.Context, patientID uuid.UUID, enabled bool, pass string) error {
	if !enabled {
		return s.patients.UpdateEmergencyLock(ctx, patientID, false, nil)
	}
	if len(pass) < 6 {
		return fmt.Errorf("%w: passcode must be at least 6 characters", errs.ErrValidation)
	}
	hash, err := passcode.Hash(pass)
	if err != nil {
		return err
	}
	return s.patients.UpdateEmergencyLock(ctx, patientID, true, &hash)
}

func (s *Service) RegisterClinician(ctx context.Context, c *Clinician) error {
	if c.FullName == "" {
		return fmt.Errorf("%w: full name is required", errs.ErrValidation)
	}
	if c.LicenseNumber == "" {
		return fmt.Errorf("%w: license number is required", errs.ErrValidation)
	}
	if c.Institution == "" {
		return fmt.Errorf("%w: institution is required", errs.ErrValidation)
	}
	return s.clinicians.Create(ctx, c)
}

func (s *Service) GetClinician(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	return s.clinicians.GetByID(ctx, id)
}

func (s *Service) ListClinicians(ctx context.Context, limit, offset int) ([]*Clinician, int, error) {
	return s.clinicians.List(ctx, limit, offset)
}
