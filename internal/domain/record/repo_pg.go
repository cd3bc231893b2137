package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

type factRepoPG struct{ pool *pgxpool.Pool }

func NewFactRepoPG(pool *pgxpool.Pool) FactRepository {
	return &factRepoPG{pool: pool}
}

func (r *factRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const factCols = `id, patient_id, category, payload, verified, verified_at, verified_by, locked, created_at, updated_at`

func scanFact(row pgx.Row) (*Fact, error) {
	var f Fact
	var payload []byte
	err := row.Scan(&f.ID, &f.PatientID, &f.Category, &payload,
		&f.Verified, &f.VerifiedAt, &f.VerifiedBy, &f.Locked,
		&f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &f.Payload); err != nil {
			return nil, fmt.Errorf("decode fact payload: %w", err)
		}
	}
	return &f, nil
}

func (r *factRepoPG) Create(ctx context.Context, f *Fact) error {
	f.ID = uuid.New()
	payload, err := json.Marshal(f.Payload)
	if err != nil {
		return fmt.Errorf("encode fact payload: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_fact (id, patient_id, category, payload)
		VALUES ($1, $2, $3, $4)`,
		f.ID, f.PatientID, f.Category, payload)
	return err
}

func (r *factRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Fact, error) {
	return scanFact(r.conn(ctx).QueryRow(ctx,
		`SELECT `+factCols+` FROM medical_fact WHERE id = $1`, id))
}

func (r *factRepoPG) Update(ctx context.Context, f *Fact) error {
	payload, err := json.Marshal(f.Payload)
	if err != nil {
		return fmt.Errorf("encode fact payload: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_fact SET payload = $2, updated_at = NOW() WHERE id = $1`,
		f.ID, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *factRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_fact WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *factRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Fact, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_fact WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+factCols+` FROM medical_fact
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectFacts(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *factRepoPG) ListByPatientCategories(ctx context.Context, patientID uuid.UUID, cats []Category) ([]*Fact, error) {
	if len(cats) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+factCols+` FROM medical_fact
		WHERE patient_id = $1 AND category = ANY($2)
		ORDER BY category, created_at DESC`,
		patientID, CategoryStrings(cats))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFacts(rows)
}

func (r *factRepoPG) ListUnverified(ctx context.Context, patientID uuid.UUID, cats []Category) ([]*Fact, error) {
	if len(cats) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+factCols+` FROM medical_fact
		WHERE patient_id = $1 AND category = ANY($2) AND NOT verified
		ORDER BY created_at`,
		patientID, CategoryStrings(cats))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFacts(rows)
}

func (r *factRepoPG) MarkVerified(ctx context.Context, ids []uuid.UUID, clinicianID uuid.UUID, lock bool) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_fact
		SET verified = TRUE, verified_at = $2, verified_by = $3,
		    locked = (locked OR $4), updated_at = NOW()
		WHERE id = ANY($1)`,
		ids, time.Now(), clinicianID, lock)
	return err
}

func collectFacts(rows pgx.Rows) ([]*Fact, error) {
	var items []*Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
