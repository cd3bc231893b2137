package verification

import (
	"context"
	"errors"

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

type verificationRepoPG struct{ pool *pgxpool.Pool }

func NewVerificationRepoPG(pool *pgxpool.Pool) VerificationRepository {
	return &verificationRepoPG{pool: pool}
}

func (r *verificationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const verificationCols = `id, patient_id, clinician_id, categories, fact_ids, signature, note, created_at`

func scanVerification(row pgx.Row) (*Verification, error) {
	var v Verification
	err := row.Scan(&v.ID, &v.PatientID, &v.ClinicianID, &v.Categories,
		&v.FactIDs, &v.Signature, &v.Note, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepoPG) Create(ctx context.Context, v *Verification) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO verification (id, patient_id, clinician_id, categories,
			fact_ids, signature, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		v.ID, v.PatientID, v.ClinicianID, v.Categories, v.FactIDs,
		v.Signature, v.Note, v.CreatedAt)
	return err
}

func (r *verificationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Verification, error) {
	return scanVerification(r.conn(ctx).QueryRow(ctx,
		`SELECT `+verificationCols+` FROM verification WHERE id = $1`, id))
}

func (r *verificationRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Verification, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM verification WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+verificationCols+` FROM verification
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}
