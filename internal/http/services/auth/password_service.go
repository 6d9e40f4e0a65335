package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/metrics"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
	"github.com/dropDatabas3/refgate/internal/security/password"
)

// PasswordDeps contiene las dependencias del servicio de password.
type PasswordDeps struct {
	Store     repository.Store
	Hasher    password.Hasher
	Policy    password.Policy
	Referrals ReferralValidator
	Tokens    TokenIssuer
}

type passwordService struct {
	deps PasswordDeps

	// hash señuelo para que un email inexistente cueste lo mismo que una password mala
	dummyOnce sync.Once
	dummyHash string
}

// NewPasswordService crea el servicio de registro/login local.
func NewPasswordService(deps PasswordDeps) PasswordService {
	return &passwordService{deps: deps}
}

func (s *passwordService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.password"),
		logger.Op("Register"),
	)

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Identity = strings.TrimSpace(in.Identity)
	in.ReferralCode = strings.TrimSpace(in.ReferralCode)
	if in.Identity == "" {
		in.Identity = "local:" + in.Email
	}
	if msgs := s.deps.Policy.Validate(in.Password); len(msgs) > 0 {
		return nil, types.Invalid("password", strings.Join(msgs, "; "))
	}

	var user *repository.User
	err := repository.Use(ctx, s.deps.Store, func(sess repository.Session) error {
		users := sess.Users()

		if _, err := users.GetByEmail(ctx, in.Email); err == nil {
			return types.ErrUserAlreadyExists
		} else if !repository.IsNotFound(err) {
			return err
		}

		if in.ReferralCode != "" {
			if s.deps.Referrals == nil {
				return types.ErrReferralInvalid
			}
			if _, err := s.deps.Referrals.Validate(ctx, in.ReferralCode); err != nil {
				log.Debug("referral rejected", logger.ReferralCode(in.ReferralCode), logger.Err(err))
				return err
			}
		}

		hash, err := s.deps.Hasher.Hash(in.Password)
		if err != nil {
			if errors.Is(err, password.ErrTooLong) || errors.Is(err, password.ErrEmptyPassword) {
				return types.Invalid("password", err.Error())
			}
			return err
		}

		user, err = users.Create(ctx, repository.CreateUserInput{
			Email:            in.Email,
			Identity:         in.Identity,
			Name:             strings.TrimSpace(in.Name),
			PasswordHash:     hash,
			ReferralCodeUsed: in.ReferralCode,
		})
		if repository.IsConflict(err) {
			return types.ErrUserAlreadyExists
		}
		return err
	})
	if err != nil {
		return nil, asInfra(err, "auth.register")
	}

	metrics.UserProvisioned("password")
	log.Info("user registered", logger.UserID(user.ID), logger.Email(user.Email))
	return s.issue(user)
}

func (s *passwordService) Login(ctx context.Context, email, plain string) (*Session, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.password"),
		logger.Op("Login"),
	)

	email = strings.ToLower(strings.TrimSpace(email))

	var user *repository.User
	err := repository.Use(ctx, s.deps.Store, func(sess repository.Session) error {
		u, err := sess.Users().GetByEmail(ctx, email)
		if repository.IsNotFound(err) {
			s.deps.Hasher.Verify(plain, s.dummy())
			log.Debug("user not found")
			return types.ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if u.PasswordHash == nil || *u.PasswordHash == "" {
			s.deps.Hasher.Verify(plain, s.dummy())
			log.Debug("no password identity", logger.UserID(u.ID))
			return types.ErrInvalidCredentials
		}
		if !s.deps.Hasher.Verify(plain, *u.PasswordHash) {
			log.Debug("password check failed", logger.UserID(u.ID))
			return types.ErrInvalidCredentials
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, asInfra(err, "auth.login")
	}
	return s.issue(user)
}

func (s *passwordService) issue(u *repository.User) (*Session, error) {
	tok, exp, err := s.deps.Tokens.CreateWithExpiry(SessionPayload(u))
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

func (s *passwordService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.deps.Hasher.Hash("refgate-timing-equalizer")
	})
	return s.dummyHash
}

func asInfra(err error, op string) error {
	if repository.IsUnavailable(err) {
		return types.Infra(op, err)
	}
	return err
}
