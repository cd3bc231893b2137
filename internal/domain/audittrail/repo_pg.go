package audittrail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpass/vitalpass/internal/errs"
	"github.com/vitalpass/vitalpass/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository {
	return &eventRepoPG{pool: pool}
}

func (r *eventRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const eventCols = `id, patient_id, actor_type, actor_id, actor_name, actor_institution,
	action, categories, consent_token, channel, metadata, created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	var metadata []byte
	err := row.Scan(&e.ID, &e.PatientID, &e.ActorType, &e.ActorID,
		&e.ActorName, &e.ActorInstitution, &e.Action, &e.Categories,
		&e.ConsentToken, &e.Channel, &metadata, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode event metadata: %w", err)
		}
	}
	return &e, nil
}

func (r *eventRepoPG) Append(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode event metadata: %w", err)
	}
	if e.Categories == nil {
		e.Categories = []string{}
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_event (id, patient_id, actor_type, actor_id, actor_name,
			actor_institution, action, categories, consent_token, channel, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.PatientID, e.ActorType, e.ActorID, e.ActorName,
		e.ActorInstitution, e.Action, e.Categories, e.ConsentToken,
		e.Channel, metadata)
	return err
}

func (r *eventRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return scanEvent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventCols+` FROM audit_event WHERE id = $1`, id))
}

func (r *eventRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, filter Filter, limit, offset int) ([]*Event, int, error) {
	where := []string{"patient_id = $1"}
	args := []interface{}{patientID}
	idx := 2

	if filter.Channel != "" {
		where = append(where, fmt.Sprintf("channel = $%d", idx))
		args = append(args, filter.Channel)
		idx++
	}
	if filter.ActorType != "" {
		where = append(where, fmt.Sprintf("actor_type = $%d", idx))
		args = append(args, filter.ActorType)
		idx++
	}
	if filter.Action != "" {
		where = append(where, fmt.Sprintf("action = $%d", idx))
		args = append(args, filter.Action)
		idx++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM audit_event %s", whereClause)
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM audit_event %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		eventCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
