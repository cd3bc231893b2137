package verification

import (
	"context"

	"github.com/google/uuid"
)

type VerificationRepository interface {
	Create(ctx context.Context, v *Verification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Verification, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Verification, int, error)
}
