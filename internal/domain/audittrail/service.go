package audittrail

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service validates and records audit events. Callers that gate access on a
// successful append get fail-closed behavior: if the event cannot be written,
// the access itself must not proceed.
type Service struct {
	repo EventRepository
}

func NewService(repo EventRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Append(ctx context.Context, e *Event) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("audit event: patient id is required")
	}
	if !e.ActorType.Valid() {
		return fmt.Errorf("audit event: invalid actor type %q", e.ActorType)
	}
	if !e.Action.Valid() {
		return fmt.Errorf("audit event: invalid action %q", e.Action)
	}
	if e.Channel == "" {
		e.Channel = ChannelNormal
	}
	if !e.Channel.Valid() {
		return fmt.Errorf("audit event: invalid channel %q", e.Channel)
	}
	if err := s.repo.Append(ctx, e); err != nil {
		log.Error().Err(err).
			Str("patient_id", e.PatientID.String()).
			Str("action", string(e.Action)).
			Msg("audit append failed")
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, filter Filter, limit, offset int) ([]*Event, int, error) {
	if filter.Channel != "" && !filter.Channel.Valid() {
		return nil, 0, fmt.Errorf("invalid channel filter %q", filter.Channel)
	}
	if filter.ActorType != "" && !filter.ActorType.Valid() {
		return nil, 0, fmt.Errorf("invalid actor type filter %q", filter.ActorType)
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, 0, fmt.Errorf("invalid action filter %q", filter.Action)
	}
	return s.repo.ListByPatient(ctx, patientID, filter, limit, offset)
}
