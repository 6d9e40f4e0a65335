package auth

import (
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/oauth"
	"github.com/dropDatabas3/refgate/internal/security/password"
)

// Services agrupa todos los services del dominio auth.
type Services struct {
	Provisioning ProvisioningService
	Password     PasswordService
	Providers    ProvidersService
}

// Deps reúne lo que necesitan los services de auth.
type Deps struct {
	Store     repository.Store
	Hasher    password.Hasher
	Policy    password.Policy
	Referrals ReferralValidator
	Tokens    TokenIssuer
	Registry  *oauth.Registry
	BasePath  string
}

// NewServices crea el agregador de services auth.
func NewServices(d Deps) Services {
	return Services{
		Provisioning: NewProvisioningService(ProvisioningDeps{Store: d.Store}),
		Password: NewPasswordService(PasswordDeps{
			Store:     d.Store,
			Hasher:    d.Hasher,
			Policy:    d.Policy,
			Referrals: d.Referrals,
			Tokens:    d.Tokens,
		}),
		Providers: NewProvidersService(ProvidersDeps{Registry: d.Registry, BasePath: d.BasePath}),
	}
}
