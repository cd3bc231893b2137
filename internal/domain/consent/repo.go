package consent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type LinkRepository interface {
	Create(ctx context.Context, l *Link) error
	GetByToken(ctx context.Context, token string) (*Link, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Link, int, error)
	Revoke(ctx context.Context, token string, at time.Time) error

	// ResolveAndCount atomically checks the link is neither revoked nor
	// expired at the given instant and increments its access counter.
	// Returns ErrNotFound when no active row matches; the caller
	// classifies why.
	ResolveAndCount(ctx context.Context, token string, now time.Time) (*Link, error)
}
