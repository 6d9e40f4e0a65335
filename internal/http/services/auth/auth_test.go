package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/refgate/internal/cache"
	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/http/services/referral"
	"github.com/dropDatabas3/refgate/internal/jwt"
	"github.com/dropDatabas3/refgate/internal/oauth"
	"github.com/dropDatabas3/refgate/internal/security/password"
	"github.com/dropDatabas3/refgate/internal/store/memory"
)

type env struct {
	store     *memory.Store
	cache     cache.Client
	codec     *jwt.Codec
	referrals referral.Service
	passwords PasswordService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.New()
	cc := cache.NewMemory("")
	codec, err := jwt.NewCodec("test-secret", "HS256", time.Hour)
	require.NoError(t, err)
	hasher, err := password.NewHasher("bcrypt", 4)
	require.NoError(t, err)

	refs := referral.NewService(referral.Deps{
		Store: st,
		Cache: referral.NewCache(cc, time.Hour),
	})
	return &env{
		store:     st,
		cache:     cc,
		codec:     codec,
		referrals: refs,
		passwords: NewPasswordService(PasswordDeps{
			Store:     st,
			Hasher:    hasher,
			Policy:    password.Policy{MinLength: 8},
			Referrals: refs,
			Tokens:    codec,
		}),
	}
}

func (e *env) userCount(t *testing.T) int {
	t.Helper()
	n := 0
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		if _, err := e.store.Users().GetByEmail(context.Background(), email); err == nil {
			n++
		}
	}
	return n
}

func TestRegister_WithoutReferral(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sess, err := e.passwords.Register(ctx, RegisterInput{
		Email:    "A@x.com ",
		Name:     "A",
		Identity: "local:a",
		Password: "longpass1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Equal(t, "a@x.com", sess.User.Email)

	u, err := e.store.Users().GetByIdentity(ctx, "local:a")
	require.NoError(t, err)
	require.NotNil(t, u.PasswordHash)
	require.NotEqual(t, "longpass1", *u.PasswordHash)
	require.Nil(t, u.ReferralCodeUsed)

	payload, err := e.codec.Decode(sess.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, payload["id"])
	require.Equal(t, "local:a", payload["identity"])
	require.Equal(t, "a@x.com", payload["email"])
}

func TestRegister_DefaultIdentity(t *testing.T) {
	e := newEnv(t)
	sess, err := e.passwords.Register(context.Background(), RegisterInput{Email: "b@x.com", Password: "longpass1"})
	require.NoError(t, err)
	require.Equal(t, "local:b@x.com", sess.User.Identity)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.passwords.Register(ctx, RegisterInput{Email: "a@x.com", Password: "longpass1"})
	require.NoError(t, err)

	_, err = e.passwords.Register(ctx, RegisterInput{Email: "a@x.com", Identity: "local:other", Password: "longpass1"})
	require.ErrorIs(t, err, types.ErrUserAlreadyExists)
}

func TestRegister_PolicyViolation(t *testing.T) {
	e := newEnv(t)
	_, err := e.passwords.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "short"})

	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "password", ve.Fields[0].Field)
	require.Zero(t, e.userCount(t))
}

func TestRegister_WithReferral(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner, err := e.passwords.Register(ctx, RegisterInput{Email: "a@x.com", Password: "longpass1"})
	require.NoError(t, err)
	ref, err := e.referrals.CreateForOwner(ctx, owner.User.ID, nil)
	require.NoError(t, err)
	require.Len(t, ref.Code, referral.CodeLength)

	sess, err := e.passwords.Register(ctx, RegisterInput{
		Email:        "b@x.com",
		Password:     "longpass1",
		ReferralCode: ref.Code,
	})
	require.NoError(t, err)
	require.NotNil(t, sess.User.ReferralCodeUsed)
	require.Equal(t, ref.Code, *sess.User.ReferralCodeUsed)

	cached, err := e.cache.Exists(ctx, "referral:"+ref.Code)
	require.NoError(t, err)
	require.True(t, cached)
}

func TestRegister_UnknownReferralCreatesNothing(t *testing.T) {
	e := newEnv(t)
	_, err := e.passwords.Register(context.Background(), RegisterInput{
		Email:        "c@x.com",
		Password:     "longpass1",
		ReferralCode: "NOPENOPENO",
	})
	require.ErrorIs(t, err, types.ErrReferralInvalid)
	require.Zero(t, e.userCount(t))
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.passwords.Register(ctx, RegisterInput{Email: "a@x.com", Password: "longpass1"})
	require.NoError(t, err)

	sess, err := e.passwords.Login(ctx, " A@X.com", "longpass1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
}

func TestLogin_NoEnumeration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.passwords.Register(ctx, RegisterInput{Email: "a@x.com", Password: "longpass1"})
	require.NoError(t, err)

	_, wrongPass := e.passwords.Login(ctx, "a@x.com", "wrongpass")
	_, noUser := e.passwords.Login(ctx, "ghost@x.com", "longpass1")

	require.ErrorIs(t, wrongPass, types.ErrInvalidCredentials)
	require.ErrorIs(t, noUser, types.ErrInvalidCredentials)
	require.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestLogin_ExternalUserHasNoPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.store.Users().Create(ctx, repository.CreateUserInput{Email: "a@x.com", Identity: "github:1"})
	require.NoError(t, err)

	_, err = e.passwords.Login(ctx, "a@x.com", "anything")
	require.ErrorIs(t, err, types.ErrInvalidCredentials)
}

func TestLogin_StoreDown(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Close())
	_, err := e.passwords.Login(context.Background(), "a@x.com", "longpass1")
	require.True(t, types.IsInfrastructure(err))
}

func TestEnsure_CreatesOnceAndIsIdempotent(t *testing.T) {
	st := memory.New()
	svc := NewProvisioningService(ProvisioningDeps{Store: st})
	ctx := context.Background()
	c := claims.IdentityClaims{Subject: "github:42", Provider: "github", Email: "gh@x.com", Name: "Octo"}

	u, created, err := svc.Ensure(ctx, c)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "github:42", u.Identity)

	again, created, err := svc.Ensure(ctx, c)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, u.ID, again.ID)
}

func TestEnsure_ExistingEmailIsReused(t *testing.T) {
	st := memory.New()
	svc := NewProvisioningService(ProvisioningDeps{Store: st})
	ctx := context.Background()
	local, err := st.Users().Create(ctx, repository.CreateUserInput{Email: "a@x.com", Identity: "local:a"})
	require.NoError(t, err)

	u, created, err := svc.Ensure(ctx, claims.IdentityClaims{Subject: "google-oauth2:9", Email: "a@x.com"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, local.ID, u.ID)
}

func TestEnsure_ConcurrentCallbacksCreateOneRow(t *testing.T) {
	st := memory.New()
	svc := NewProvisioningService(ProvisioningDeps{Store: st})
	c := claims.IdentityClaims{Subject: "github:7", Provider: "github", Email: "race@x.com"}

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]struct{}{}
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, ok, err := svc.Ensure(context.Background(), c)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[u.ID] = struct{}{}
			if ok {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, 1)
	require.Equal(t, 1, created)
}

func TestEnsure_RequiresIdentity(t *testing.T) {
	svc := NewProvisioningService(ProvisioningDeps{Store: memory.New()})
	_, _, err := svc.Ensure(context.Background(), claims.IdentityClaims{Email: "a@x.com"})
	require.ErrorIs(t, err, claims.ErrClaims)
}

type stubProvider struct{ name string }

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) AuthorizationURL(string) string {
	return "https://idp.example/" + p.name
}

func (p stubProvider) Exchange(context.Context, string) (map[string]any, error) {
	return nil, nil
}

func TestProviders(t *testing.T) {
	reg, err := oauth.NewRegistry(stubProvider{"google-oauth2"}, stubProvider{"github"})
	require.NoError(t, err)

	got := NewProvidersService(ProvidersDeps{Registry: reg, BasePath: "/api/v1"}).Providers(context.Background())
	require.Equal(t, []ProviderInfo{
		{Name: "password", Kind: "password"},
		{Name: "github", Kind: "oauth2", AuthorizeURL: "/api/v1/oauth2/github/authorize"},
		{Name: "google-oauth2", Kind: "oauth2", AuthorizeURL: "/api/v1/oauth2/google-oauth2/authorize"},
	}, got)

	require.Len(t, NewProvidersService(ProvidersDeps{}).Providers(context.Background()), 1)
}
