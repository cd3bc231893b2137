package policy

import (
	"context"

	"github.com/google/uuid"
)

type PolicyRepository interface {
	// Create inserts the policy unless a row for (patient, mode) already
	// exists, in which case it is a no-op.
	Create(ctx context.Context, p *SharingPolicy) error
	Get(ctx context.Context, patientID uuid.UUID, mode Mode) (*SharingPolicy, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*SharingPolicy, error)
	Update(ctx context.Context, p *SharingPolicy) error
}
