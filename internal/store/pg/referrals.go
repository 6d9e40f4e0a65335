package pg

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
)

type referralRepo struct{ db dbtx }

const referralColumns = `id, user_id, referrer_id, created_at, until_at`

func scanReferral(row interface{ Scan(...any) error }) (*repository.Referral, error) {
	var r repository.Referral
	if err := row.Scan(&r.ID, &r.OwnerUserID, &r.Code, &r.CreatedAt, &r.UntilAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create borra un referral vencido del mismo dueño e inserta el nuevo en una
// única transacción. Si el dueño tiene uno activo, el INSERT viola
// uq__referrers__user_id y se devuelve el ConflictError correspondiente.
func (r *referralRepo) Create(ctx context.Context, in repository.CreateReferralInput, now time.Time) (_ *repository.Referral, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr("pg.referrals.create", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM referrers WHERE user_id = $1 AND until_at <= $2`,
		in.OwnerUserID, now.UTC()); err != nil {
		return nil, mapErr("pg.referrals.create", err)
	}

	const q = `
INSERT INTO referrers (id, user_id, referrer_id, created_at, until_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + referralColumns

	ref, err := scanReferral(tx.QueryRowContext(ctx, q,
		uuid.NewString(), in.OwnerUserID, in.Code, now.UTC(), in.UntilAt.UTC()))
	if err != nil {
		return nil, mapErr("pg.referrals.create", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, mapErr("pg.referrals.create", err)
	}
	return ref, nil
}

func (r *referralRepo) GetByCode(ctx context.Context, code string) (*repository.Referral, error) {
	q := `SELECT ` + referralColumns + ` FROM referrers WHERE referrer_id = $1`
	ref, err := scanReferral(r.db.QueryRowContext(ctx, q, code))
	if err != nil {
		return nil, mapErr("pg.referrals.get_by_code", err)
	}
	return ref, nil
}

func (r *referralRepo) GetActiveByCode(ctx context.Context, code string, now time.Time) (*repository.Referral, error) {
	q := `SELECT ` + referralColumns + ` FROM referrers WHERE referrer_id = $1 AND until_at > $2`
	ref, err := scanReferral(r.db.QueryRowContext(ctx, q, code, now.UTC()))
	if err != nil {
		return nil, mapErr("pg.referrals.get_active_by_code", err)
	}
	return ref, nil
}

func (r *referralRepo) GetByOwner(ctx context.Context, ownerUserID string) (*repository.Referral, error) {
	if _, err := uuid.Parse(ownerUserID); err != nil {
		return nil, repository.ErrNotFound
	}
	q := `SELECT ` + referralColumns + ` FROM referrers WHERE user_id = $1`
	ref, err := scanReferral(r.db.QueryRowContext(ctx, q, ownerUserID))
	if err != nil {
		return nil, mapErr("pg.referrals.get_by_owner", err)
	}
	return ref, nil
}

func (r *referralRepo) ExistsActiveForOwner(ctx context.Context, ownerUserID string, now time.Time) (bool, error) {
	if _, err := uuid.Parse(ownerUserID); err != nil {
		return false, nil
	}
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM referrers WHERE user_id = $1 AND until_at > $2)`,
		ownerUserID, now.UTC()).Scan(&ok)
	if err != nil {
		return false, mapErr("pg.referrals.exists_active", err)
	}
	return ok, nil
}

func (r *referralRepo) Delete(ctx context.Context, ownerUserID, code string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM referrers WHERE user_id = $1 AND referrer_id = $2`, ownerUserID, code)
	if err != nil {
		return mapErr("pg.referrals.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("pg.referrals.delete", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *referralRepo) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM referrers WHERE until_at <= $1 RETURNING referrer_id`, now.UTC())
	if err != nil {
		return nil, mapErr("pg.referrals.delete_expired", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, mapErr("pg.referrals.delete_expired", err)
		}
		codes = append(codes, c)
	}
	return codes, mapErr("pg.referrals.delete_expired", rows.Err())
}

