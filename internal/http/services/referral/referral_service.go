package referral

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/metrics"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
	tokens "github.com/dropDatabas3/refgate/internal/security/token"
)

const (
	// CodeLength es el largo de los códigos generados.
	CodeLength = 10

	// DefaultTTL es la vigencia de un código creado sin until_at.
	DefaultTTL = 14 * 24 * time.Hour

	maxCodeAttempts = 5

	// MaxPageSize acota el listado de usuarios referidos.
	MaxPageSize = 100
)

// Deps contiene las dependencias del servicio de referrals.
type Deps struct {
	Store      repository.Store       // fallback cuando el ctx no trae sesión (CLI, jobs)
	Cache      *Cache
	DefaultTTL time.Duration          // 0 = DefaultTTL
	Now        func() time.Time       // nil = time.Now
	NewCode    func() (string, error) // nil = alfanumérico aleatorio de CodeLength
}

type service struct {
	deps Deps
}

// NewService crea el servicio de referrals.
func NewService(deps Deps) Service {
	if deps.DefaultTTL <= 0 {
		deps.DefaultTTL = DefaultTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewCode == nil {
		deps.NewCode = func() (string, error) { return tokens.RandomAlphanumeric(CodeLength) }
	}
	if deps.Cache != nil {
		deps.Cache.now = deps.Now
	}
	return &service{deps: deps}
}

func (s *service) use(ctx context.Context, fn func(repository.Session) error) error {
	return repository.Use(ctx, s.deps.Store, fn)
}

func (s *service) Validate(ctx context.Context, code string) (*repository.Referral, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, types.ErrReferralInvalid
	}
	out, err := s.deps.Cache.Validate(ctx, s.deps.Store, code)
	return out, infraOr(err, "referral.validate")
}

func (s *service) CreateForOwner(ctx context.Context, ownerID string, untilAt *time.Time) (*repository.Referral, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("referral"),
		logger.Op("CreateForOwner"),
		logger.UserID(ownerID),
	)

	now := s.deps.Now()
	until := now.Add(s.deps.DefaultTTL)
	if untilAt != nil && !untilAt.IsZero() {
		if !untilAt.After(now) {
			return nil, types.Invalid("until_at", "must be in the future")
		}
		until = *untilAt
	}

	var created *repository.Referral
	err := s.use(ctx, func(sess repository.Session) error {
		refs := sess.Referrals()

		// Fast path; la unicidad de user_id en el store resuelve la carrera.
		exists, err := refs.ExistsActiveForOwner(ctx, ownerID, now)
		if err != nil {
			return err
		}
		if exists {
			return types.ErrReferralAlreadyExists
		}

		for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
			code, err := s.deps.NewCode()
			if err != nil {
				return err
			}
			created, err = refs.Create(ctx, repository.CreateReferralInput{
				OwnerUserID: ownerID,
				Code:        code,
				UntilAt:     until,
			}, now)
			switch {
			case err == nil:
				return nil
			case repository.IsConflictOn(err, repository.ConstraintReferralOwner):
				log.Debug("lost referral create race")
				return types.ErrReferralAlreadyExists
			case repository.IsConflictOn(err, repository.ConstraintReferralCode):
				log.Debug("referral code collision, retrying", logger.Int("attempt", attempt))
				continue
			default:
				return err
			}
		}
		return types.Infra("referral.create", errCodeSpaceExhausted)
	})
	if err != nil {
		return nil, infraOr(err, "referral.create")
	}

	log.Info("referral created")
	return created, nil
}

func (s *service) DeleteForOwner(ctx context.Context, ownerID, code string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("referral"),
		logger.Op("DeleteForOwner"),
		logger.UserID(ownerID),
		logger.ReferralCode(code),
	)

	err := s.use(ctx, func(sess repository.Session) error {
		refs := sess.Referrals()

		if _, err := refs.GetByOwner(ctx, ownerID); err != nil {
			if repository.IsNotFound(err) {
				return types.ErrReferralNotFound.WithMessage("Referrer ID does not exists for the user")
			}
			return err
		}
		ref, err := refs.GetByCode(ctx, code)
		if repository.IsNotFound(err) {
			return types.ErrReferralNotFound
		}
		if err != nil {
			return err
		}
		if ref.OwnerUserID != ownerID {
			return types.ErrReferralOwnershipMismatch
		}
		if err := refs.Delete(ctx, ownerID, code); err != nil {
			if repository.IsNotFound(err) {
				return types.ErrReferralNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return infraOr(err, "referral.delete")
	}

	if err := s.deps.Cache.Evict(ctx, code); err != nil {
		log.Error("referral deleted but cache eviction failed", logger.Err(err))
		return err
	}
	log.Info("referral deleted")
	return nil
}

func (s *service) ResolveOwner(ctx context.Context, email string) (*repository.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, types.ErrUnauthorizedAccess
	}
	var out *repository.User
	err := s.use(ctx, func(sess repository.Session) error {
		u, err := sess.Users().GetByEmail(ctx, email)
		if repository.IsNotFound(err) {
			return types.ErrUnauthorizedAccess
		}
		out = u
		return err
	})
	return out, infraOr(err, "referral.resolve_owner")
}

func (s *service) GetActiveByEmail(ctx context.Context, email string) (*repository.Referral, error) {
	now := s.deps.Now()
	var out *repository.Referral
	err := s.use(ctx, func(sess repository.Session) error {
		u, err := sess.Users().GetByEmail(ctx, email)
		if repository.IsNotFound(err) {
			return types.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		ref, err := sess.Referrals().GetByOwner(ctx, u.ID)
		if repository.IsNotFound(err) {
			return types.ErrReferralNotFound.WithMessage("Referrer ID does not exists for the user")
		}
		if err != nil {
			return err
		}
		if !ref.Active(now) {
			return types.ErrReferralExpired.WithMessage("Does not have an active referrer ID")
		}
		out = ref
		return nil
	})
	return out, infraOr(err, "referral.get_active_by_email")
}

func (s *service) ListReferrals(ctx context.Context, code string, page repository.Page) (int, []repository.User, error) {
	page = ClampPage(page)
	var (
		total int
		items []repository.User
	)
	err := s.use(ctx, func(sess repository.Session) error {
		if _, err := sess.Referrals().GetByCode(ctx, code); err != nil {
			if repository.IsNotFound(err) {
				return types.ErrReferralNotFound
			}
			return err
		}
		var err error
		total, items, err = sess.Users().ListByReferralCode(ctx, code, page)
		return err
	})
	if err != nil {
		return 0, nil, infraOr(err, "referral.list_referrals")
	}
	return total, items, nil
}

func (s *service) SweepExpired(ctx context.Context) ([]string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("referral"),
		logger.Op("SweepExpired"),
	)

	var codes []string
	err := s.use(ctx, func(sess repository.Session) error {
		var err error
		codes, err = sess.Referrals().DeleteExpired(ctx, s.deps.Now())
		return err
	})
	if err != nil {
		return nil, infraOr(err, "referral.sweep")
	}

	for _, c := range codes {
		if err := s.deps.Cache.Evict(ctx, c); err != nil {
			log.Warn("sweep eviction failed", logger.ReferralCode(c), logger.Err(err))
		}
	}
	metrics.ReferralSwept(len(codes))
	log.Info("expired referrals swept", logger.Count(len(codes)))
	return codes, nil
}

// ClampPage normaliza la paginación: limit en [1, MaxPageSize] (0 = máximo) y offset >= 0.
func ClampPage(p repository.Page) repository.Page {
	if p.Limit <= 0 || p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type serviceError string

func (e serviceError) Error() string { return string(e) }

const errCodeSpaceExhausted = serviceError("could not generate a unique referral code")

// infraOr deja pasar errores de dominio/validación y marca como
// InfrastructureError las fallas de conectividad del store.
func infraOr(err error, op string) error {
	if err == nil {
		return nil
	}
	if repository.IsUnavailable(err) {
		return types.Infra(op, err)
	}
	return err
}
