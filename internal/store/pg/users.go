package pg

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
)

type userRepo struct{ db dbtx }

const userColumns = `id, email, identity, name, password_hash, referral_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (*repository.User, error) {
	var (
		u                        repository.User
		identity, hash, referral sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &identity, &u.Name, &hash, &referral, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Identity = identity.String
	u.PasswordHash = ptr(hash)
	u.ReferralCodeUsed = ptr(referral)
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	const q = `
INSERT INTO users (id, email, identity, name, password_hash, referral_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, q,
		uuid.NewString(),
		strings.ToLower(strings.TrimSpace(in.Email)),
		nullable(in.Identity),
		in.Name,
		nullable(in.PasswordHash),
		nullable(in.ReferralCodeUsed),
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("pg.users.create", err)
	}
	return u, nil
}

func (r *userRepo) getBy(ctx context.Context, op, where string, arg any) (*repository.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return r.getBy(ctx, "pg.users.get_by_id", "id = $1", id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return r.getBy(ctx, "pg.users.get_by_email", "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepo) GetByIdentity(ctx context.Context, identity string) (*repository.User, error) {
	if identity == "" {
		return nil, repository.ErrNotFound
	}
	return r.getBy(ctx, "pg.users.get_by_identity", "identity = $1", identity)
}

func (r *userRepo) Exists(ctx context.Context, identity, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR ($2 <> '' AND identity = $2))`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email)), identity).Scan(&ok); err != nil {
		return false, mapErr("pg.users.exists", err)
	}
	return ok, nil
}

func (r *userRepo) ListByReferralCode(ctx context.Context, code string, page repository.Page) (int, []repository.User, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE referral_id = $1`, code).Scan(&total); err != nil {
		return 0, nil, mapErr("pg.users.count_referrals", err)
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE referral_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, code, page.Limit, page.Offset)
	if err != nil {
		return 0, nil, mapErr("pg.users.list_referrals", err)
	}
	defer rows.Close()

	items := make([]repository.User, 0, page.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return 0, nil, mapErr("pg.users.list_referrals", err)
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, mapErr("pg.users.list_referrals", err)
	}
	return total, items, nil
}
