// Package memory implementa un store en memoria para desarrollo y tests.
// Respeta las mismas restricciones de unicidad que el esquema PostgreSQL.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
)

// Store mantiene usuarios y referrals en mapas protegidos por un único mutex.
// Ninguna operación retiene el lock fuera de su propio cuerpo.
type Store struct {
	mu        sync.RWMutex
	users     map[string]repository.User // id -> user
	referrals map[string]repository.Referral
	now       func() time.Time
	closed    bool
}

var _ repository.Store = (*Store)(nil)

// New crea un store vacío.
func New() *Store {
	return &Store{
		users:     make(map[string]repository.User),
		referrals: make(map[string]repository.Referral),
		now:       time.Now,
	}
}

func (s *Store) Driver() string { return "memory" }

func (s *Store) Acquire(ctx context.Context) (repository.Session, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, repository.Unavailable("memory.acquire", errClosed)
	}
	return &session{s: s}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return repository.Unavailable("memory.ping", errClosed)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Users expone el repositorio de usuarios sin pasar por una sesión (tests, CLI).
func (s *Store) Users() repository.UserRepository { return &userRepo{s: s} }

// Referrals expone el repositorio de referrals sin pasar por una sesión.
func (s *Store) Referrals() repository.ReferralRepository { return &referralRepo{s: s} }

type storeError string

func (e storeError) Error() string { return string(e) }

const errClosed = storeError("memory store closed")

type session struct {
	s *Store
}

func (x *session) Users() repository.UserRepository         { return &userRepo{s: x.s} }
func (x *session) Referrals() repository.ReferralRepository { return &referralRepo{s: x.s} }
func (x *session) Close() error                             { return nil }

// ─── Users ───

type userRepo struct{ s *Store }

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := normEmail(in.Email)
	for _, u := range r.s.users {
		if u.Email == email {
			return nil, repository.Conflict(repository.ConstraintUserEmail, nil)
		}
		if in.Identity != "" && u.Identity == in.Identity {
			return nil, repository.Conflict(repository.ConstraintUserIdentity, nil)
		}
	}

	u := repository.User{
		ID:        uuid.NewString(),
		Email:     email,
		Identity:  in.Identity,
		Name:      in.Name,
		CreatedAt: r.s.now().UTC(),
	}
	if in.PasswordHash != "" {
		h := in.PasswordHash
		u.PasswordHash = &h
	}
	if in.ReferralCodeUsed != "" {
		c := in.ReferralCodeUsed
		u.ReferralCodeUsed = &c
	}
	r.s.users[u.ID] = u
	out := u
	return &out, nil
}

func (r *userRepo) find(match func(repository.User) bool) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	return r.find(func(u repository.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	email = normEmail(email)
	return r.find(func(u repository.User) bool { return u.Email == email })
}

func (r *userRepo) GetByIdentity(ctx context.Context, identity string) (*repository.User, error) {
	return r.find(func(u repository.User) bool { return identity != "" && u.Identity == identity })
}

func (r *userRepo) Exists(ctx context.Context, identity, email string) (bool, error) {
	email = normEmail(email)
	_, err := r.find(func(u repository.User) bool {
		return u.Email == email || (identity != "" && u.Identity == identity)
	})
	if repository.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *userRepo) ListByReferralCode(ctx context.Context, code string, page repository.Page) (int, []repository.User, error) {
	r.s.mu.RLock()
	var all []repository.User
	for _, u := range r.s.users {
		if u.ReferralCodeUsed != nil && *u.ReferralCodeUsed == code {
			all = append(all, u)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	total := len(all)
	if page.Offset >= total {
		return total, []repository.User{}, nil
	}
	end := total
	if page.Limit > 0 && page.Offset+page.Limit < total {
		end = page.Offset + page.Limit
	}
	return total, all[page.Offset:end], nil
}

// ─── Referrals ───

type referralRepo struct{ s *Store }

func (r *referralRepo) Create(ctx context.Context, in repository.CreateReferralInput, now time.Time) (*repository.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var expiredCode string
	for code, ref := range r.s.referrals {
		if ref.OwnerUserID == in.OwnerUserID {
			if ref.Active(now) {
				return nil, repository.Conflict(repository.ConstraintReferralOwner, nil)
			}
			expiredCode = code
		}
		if code == in.Code && ref.OwnerUserID != in.OwnerUserID {
			return nil, repository.Conflict(repository.ConstraintReferralCode, nil)
		}
	}
	if expiredCode != "" {
		delete(r.s.referrals, expiredCode)
	}

	ref := repository.Referral{
		ID:          uuid.NewString(),
		OwnerUserID: in.OwnerUserID,
		Code:        in.Code,
		CreatedAt:   now.UTC(),
		UntilAt:     in.UntilAt.UTC(),
	}
	r.s.referrals[ref.Code] = ref
	out := ref
	return &out, nil
}

func (r *referralRepo) GetByCode(ctx context.Context, code string) (*repository.Referral, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ref, ok := r.s.referrals[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ref, nil
}

func (r *referralRepo) GetActiveByCode(ctx context.Context, code string, now time.Time) (*repository.Referral, error) {
	ref, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !ref.Active(now) {
		return nil, repository.ErrNotFound
	}
	return ref, nil
}

func (r *referralRepo) GetByOwner(ctx context.Context, ownerUserID string) (*repository.Referral, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, ref := range r.s.referrals {
		if ref.OwnerUserID == ownerUserID {
			out := ref
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *referralRepo) ExistsActiveForOwner(ctx context.Context, ownerUserID string, now time.Time) (bool, error) {
	ref, err := r.GetByOwner(ctx, ownerUserID)
	if repository.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ref.Active(now), nil
}

func (r *referralRepo) Delete(ctx context.Context, ownerUserID, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref, ok := r.s.referrals[code]
	if !ok || ref.OwnerUserID != ownerUserID {
		return repository.ErrNotFound
	}
	delete(r.s.referrals, code)
	return nil
}

func (r *referralRepo) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var codes []string
	for code, ref := range r.s.referrals {
		if !ref.Active(now) {
			codes = append(codes, code)
			delete(r.s.referrals, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}
