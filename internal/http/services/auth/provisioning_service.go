package auth

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/metrics"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// ProvisioningDeps contiene las dependencias del provisioning.
type ProvisioningDeps struct {
	Store repository.Store // fallback cuando el ctx no trae sesión
}

type provisioningService struct {
	deps ProvisioningDeps
}

// NewProvisioningService crea el servicio de provisioning.
func NewProvisioningService(deps ProvisioningDeps) ProvisioningService {
	return &provisioningService{deps: deps}
}

func (s *provisioningService) Ensure(ctx context.Context, c claims.IdentityClaims) (*repository.User, bool, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.provisioning"),
		logger.Op("Ensure"),
		logger.Provider(c.Provider),
		logger.Identity(c.Subject),
	)

	if c.Subject == "" || c.Email == "" {
		return nil, false, fmt.Errorf("%w: identity and email are required", claims.ErrClaims)
	}

	var (
		user    *repository.User
		created bool
	)
	err := repository.Use(ctx, s.deps.Store, func(sess repository.Session) error {
		users := sess.Users()

		// Fast path: ya provisionado.
		exists, err := users.Exists(ctx, c.Subject, c.Email)
		if err != nil {
			return err
		}
		if exists {
			user, err = lookup(ctx, users, c)
			return err
		}

		user, err = users.Create(ctx, repository.CreateUserInput{
			Email:    c.Email,
			Identity: c.Subject,
			Name:     c.Name,
		})
		if repository.IsConflict(err) {
			// Otro callback ganó la carrera; la fila ya existe.
			log.Debug("provisioning race lost, re-fetching")
			user, err = lookup(ctx, users, c)
			return err
		}
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if repository.IsUnavailable(err) {
			return nil, false, types.Infra("auth.provisioning", err)
		}
		return nil, false, err
	}

	if created {
		metrics.UserProvisioned("oauth")
		log.Info("user provisioned", logger.UserID(user.ID))
	}
	return user, created, nil
}

// lookup busca por identity y luego por email.
func lookup(ctx context.Context, users repository.UserRepository, c claims.IdentityClaims) (*repository.User, error) {
	u, err := users.GetByIdentity(ctx, c.Subject)
	if err == nil || !repository.IsNotFound(err) {
		return u, err
	}
	return users.GetByEmail(ctx, c.Email)
}
