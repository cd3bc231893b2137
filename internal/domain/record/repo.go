package record

import (
	"context"

	"github.com/google/uuid"
)

type FactRepository interface {
	Create(ctx context.Context, f *Fact) error
	GetByID(ctx context.Context, id uuid.UUID) (*Fact, error)
	Update(ctx context.Context, f *Fact) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Fact, int, error)
	ListByPatientCategories(ctx context.Context, patientID uuid.UUID, cats []Category) ([]*Fact, error)
	ListUnverified(ctx context.Context, patientID uuid.UUID, cats []Category) ([]*Fact, error)
	MarkVerified(ctx context.Context, ids []uuid.UUID, clinicianID uuid.UUID, lock bool) error
}
