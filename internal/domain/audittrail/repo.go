package audittrail

import (
	"context"

	"github.com/google/uuid"
)

// EventRepository is deliberately insert-and-query only.
type EventRepository interface {
	Append(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, filter Filter, limit, offset int) ([]*Event, int, error)
}
