package policy

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

type policyRepoPG struct{ pool *pgxpool.Pool }

func NewPolicyRepoPG(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepoPG{pool: pool}
}

func (r *policyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const policyCols = `id, patient_id, mode, allergies, medications, conditions,
	surgeries, vaccinations, lab_results, documents, insurance,
	advance_directive, updated_at`

func scanPolicy(row pgx.Row) (*SharingPolicy, error) {
	var p SharingPolicy
	err := row.Scan(&p.ID, &p.PatientID, &p.Mode, &p.Allergies, &p.Medications,
		&p.Conditions, &p.Surgeries, &p.Vaccinations, &p.LabResults,
		&p.Documents, &p.Insurance, &p.AdvanceDirective, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *policyRepoPG) Create(ctx context.Context, p *SharingPolicy) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO sharing_policy (id, patient_id, mode, allergies, medications,
			conditions, surgeries, vaccinations, lab_results, documents,
			insurance, advance_directive)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (patient_id, mode) DO NOTHING`,
		p.ID, p.PatientID, p.Mode, p.Allergies, p.Medications, p.Conditions,
		p.Surgeries, p.Vaccinations, p.LabResults, p.Documents, p.Insurance,
		p.AdvanceDirective)
	return err
}

func (r *policyRepoPG) Get(ctx context.Context, patientID uuid.UUID, mode Mode) (*SharingPolicy, error) {
	return scanPolicy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+policyCols+` FROM sharing_policy WHERE patient_id = $1 AND mode = $2`,
		patientID, mode))
}

func (r *policyRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*SharingPolicy, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+policyCols+` FROM sharing_policy WHERE patient_id = $1 ORDER BY mode`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SharingPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *policyRepoPG) Update(ctx context.Context, p *SharingPolicy) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE sharing_policy SET allergies = $3, medications = $4,
			conditions = $5, surgeries = $6, vaccinations = $7,
			lab_results = $8, documents = $9, insurance = $10,
			advance_directive = $11, updated_at = NOW()
		WHERE patient_id = $1 AND mode = $2`,
		p.PatientID, p.Mode, p.Allergies, p.Medications, p.Conditions,
		p.Surgeries, p.Vaccinations, p.LabResults, p.Documents, p.Insurance,
		p.AdvanceDirective)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
