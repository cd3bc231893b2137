package consent

import (
	"context"
	"errors"
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

type linkRepoPG struct{ pool *pgxpool.Pool }

func NewLinkRepoPG(pool *pgxpool.Pool) LinkRepository {
	return &linkRepoPG{pool: pool}
}

func (r *linkRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const linkCols = `token, patient_id, mode, label, duration_minutes,
	expires_at, revoked_at, accessed_count, created_at`

func scanLink(row pgx.Row) (*Link, error) {
	var l Link
	err := row.Scan(&l.Token, &l.PatientID, &l.Mode, &l.Label,
		&l.DurationMinutes, &l.ExpiresAt, &l.RevokedAt,
		&l.AccessedCount, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *linkRepoPG) Create(ctx context.Context, l *Link) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consent_link (token, patient_id, mode, label,
			duration_minutes, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.Token, l.PatientID, l.Mode, l.Label, l.DurationMinutes, l.ExpiresAt)
	return err
}

func (r *linkRepoPG) GetByToken(ctx context.Context, token string) (*Link, error) {
	return scanLink(r.conn(ctx).QueryRow(ctx,
		`SELECT `+linkCols+` FROM consent_link WHERE token = $1`, token))
}

func (r *linkRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Link, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM consent_link WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+linkCols+` FROM consent_link
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *linkRepoPG) Revoke(ctx context.Context, token string, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consent_link SET revoked_at = $2
		WHERE token = $1 AND revoked_at IS NULL`,
		token, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ResolveAndCount relies on the row lock the UPDATE takes: a concurrent
// revoke either lands before (no row matches) or after (this access still
// counted), so the counter never loses an increment and a revoked link is
// never resolved.
func (r *linkRepoPG) ResolveAndCount(ctx context.Context, token string, now time.Time) (*Link, error) {
	return scanLink(r.conn(ctx).QueryRow(ctx, `
		UPDATE consent_link SET accessed_count = accessed_count + 1
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING `+linkCols,
		token, now))
}
