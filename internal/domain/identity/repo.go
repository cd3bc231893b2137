package identity

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEmergencyCode(ctx context.Context, code string) (*Patient, error)
	GetByPassport(ctx context.Context, passport string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdateEmergencyLock(ctx context.Context, id uuid.UUID, enabled bool, passcodeHash *string) error
}

type ClinicianRepository interface {
	Create(ctx context.Context, c *Clinician) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error)
	List(ctx context.Context, limit, offset int) ([]*Clinician, int, error)
}
