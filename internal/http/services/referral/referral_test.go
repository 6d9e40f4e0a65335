package referral

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/refgate/internal/cache"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/store/memory"
)

type fixture struct {
	store *memory.Store
	cache cache.Client
	svc   Service
	now   time.Time
	codes []string
}

func newFixture(t *testing.T, codes ...string) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		cache: cache.NewMemory("test"),
		now:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		codes: codes,
	}
	var next int
	f.svc = NewService(Deps{
		Store: f.store,
		Cache: NewCache(f.cache, time.Hour),
		Now:   func() time.Time { return f.now },
		NewCode: func() (string, error) {
			if next < len(f.codes) {
				c := f.codes[next]
				next++
				return c, nil
			}
			return "", errors.New("no more codes")
		},
	})
	return f
}

func requireMessage(t *testing.T, err error, msg string) {
	t.Helper()
	var de *types.DomainError
	require.ErrorAs(t, err, &de)
	require.Equal(t, msg, de.Message)
}

func (f *fixture) user(t *testing.T, email string) *repository.User {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), repository.CreateUserInput{
		Email:    email,
		Identity: "local:" + email,
	})
	require.NoError(t, err)
	return u
}

func TestCreateAndValidate(t *testing.T) {
	f := newFixture(t, "ABCDEFGHIJ")
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	ref, err := f.svc.CreateForOwner(ctx, owner.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "ABCDEFGHIJ", ref.Code)
	require.Equal(t, f.now.Add(DefaultTTL), ref.UntilAt)

	// miss -> store -> cache
	got, err := f.svc.Validate(ctx, "ABCDEFGHIJ")
	require.NoError(t, err)
	require.Equal(t, owner.ID, got.OwnerUserID)

	ok, err := f.cache.Exists(ctx, cacheKey("ABCDEFGHIJ"))
	require.NoError(t, err)
	require.True(t, ok)

	// hit
	got, err = f.svc.Validate(ctx, "ABCDEFGHIJ")
	require.NoError(t, err)
	require.Equal(t, ref.ID, got.ID)
}

func TestCreateRejectsSecondActiveReferral(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA", "BBBBBBBBBB")
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	_, err := f.svc.CreateForOwner(ctx, owner.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.CreateForOwner(ctx, owner.ID, nil)
	require.ErrorIs(t, err, types.ErrReferralAlreadyExists)
}

func TestCreateReplacesExpiredReferral(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA", "BBBBBBBBBB")
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	until := f.now.Add(time.Hour)
	_, err := f.svc.CreateForOwner(ctx, owner.ID, &until)
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)
	ref, err := f.svc.CreateForOwner(ctx, owner.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "BBBBBBBBBB", ref.Code)
}

func TestCreateRejectsPastUntilAt(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA")
	owner := f.user(t, "owner@example.com")

	past := f.now.Add(-time.Minute)
	_, err := f.svc.CreateForOwner(context.Background(), owner.ID, &past)

	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "until_at", ve.Fields[0].Field)
}

func TestCreateRetriesOnCodeCollision(t *testing.T) {
	f := newFixture(t, "TAKENTAKEN", "TAKENTAKEN", "FRESHFRESH")
	ctx := context.Background()
	first := f.user(t, "a@example.com")
	second := f.user(t, "b@example.com")

	_, err := f.svc.CreateForOwner(ctx, first.ID, nil)
	require.NoError(t, err)

	ref, err := f.svc.CreateForOwner(ctx, second.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "FRESHFRESH", ref.Code)
}

func TestValidateUnknownAndExpired(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA")
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	_, err := f.svc.Validate(ctx, "NOPENOPENO")
	require.ErrorIs(t, err, types.ErrReferralInvalid)

	_, err = f.svc.Validate(ctx, "   ")
	require.ErrorIs(t, err, types.ErrReferralInvalid)

	until := f.now.Add(time.Hour)
	_, err = f.svc.CreateForOwner(ctx, owner.ID, &until)
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "AAAAAAAAAA")
	require.NoError(t, err)

	// cached snapshot vencido
	f.now = f.now.Add(2 * time.Hour)
	_, err = f.svc.Validate(ctx, "AAAAAAAAAA")
	require.ErrorIs(t, err, types.ErrReferralExpired)
}

func TestDeleteEvictsCache(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA")
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	_, err := f.svc.CreateForOwner(ctx, owner.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "AAAAAAAAAA")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteForOwner(ctx, owner.ID, "AAAAAAAAAA"))

	ok, err := f.cache.Exists(ctx, cacheKey("AAAAAAAAAA"))
	require.NoError(t, err)
	require.False(t, ok)

	_, err = f.svc.Validate(ctx, "AAAAAAAAAA")
	require.ErrorIs(t, err, types.ErrReferralInvalid)
}

func TestDeleteErrors(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA", "BBBBBBBBBB")
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")

	err := f.svc.DeleteForOwner(ctx, alice.ID, "AAAAAAAAAA")
	require.ErrorIs(t, err, types.ErrReferralNotFound)
	requireMessage(t, err, "Referrer ID does not exists for the user")

	_, err = f.svc.CreateForOwner(ctx, alice.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.CreateForOwner(ctx, bob.ID, nil)
	require.NoError(t, err)

	err = f.svc.DeleteForOwner(ctx, alice.ID, "ZZZZZZZZZZ")
	require.ErrorIs(t, err, types.ErrReferralNotFound)
	requireMessage(t, err, "Referrer ID does not exists")

	err = f.svc.DeleteForOwner(ctx, alice.ID, "BBBBBBBBBB")
	require.ErrorIs(t, err, types.ErrReferralOwnershipMismatch)
}

func TestGetActiveByEmail(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA")
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	_, err := f.svc.GetActiveByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, types.ErrUserNotFound)

	_, err = f.svc.GetActiveByEmail(ctx, "owner@example.com")
	require.ErrorIs(t, err, types.ErrReferralNotFound)

	until := f.now.Add(time.Hour)
	_, err = f.svc.CreateForOwner(ctx, owner.ID, &until)
	require.NoError(t, err)

	ref, err := f.svc.GetActiveByEmail(ctx, "OWNER@example.com")
	require.NoError(t, err)
	require.Equal(t, "AAAAAAAAAA", ref.Code)

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.svc.GetActiveByEmail(ctx, "owner@example.com")
	require.ErrorIs(t, err, types.ErrReferralExpired)
}

func TestResolveOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	u, err := f.svc.ResolveOwner(ctx, "owner@example.com")
	require.NoError(t, err)
	require.Equal(t, owner.ID, u.ID)

	_, err = f.svc.ResolveOwner(ctx, "ghost@example.com")
	require.ErrorIs(t, err, types.ErrUnauthorizedAccess)

	_, err = f.svc.ResolveOwner(ctx, "  ")
	require.ErrorIs(t, err, types.ErrUnauthorizedAccess)
}

func TestListReferrals(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA")
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	_, _, err := f.svc.ListReferrals(ctx, "AAAAAAAAAA", repository.Page{})
	require.ErrorIs(t, err, types.ErrReferralNotFound)

	_, err = f.svc.CreateForOwner(ctx, owner.ID, nil)
	require.NoError(t, err)

	for _, e := range []string{"r1@example.com", "r2@example.com", "r3@example.com"} {
		_, err := f.store.Users().Create(ctx, repository.CreateUserInput{
			Email:            e,
			Identity:         "local:" + e,
			ReferralCodeUsed: "AAAAAAAAAA",
		})
		require.NoError(t, err)
	}

	total, items, err := f.svc.ListReferrals(ctx, "AAAAAAAAAA", repository.Page{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 2)

	total, items, err = f.svc.ListReferrals(ctx, "AAAAAAAAAA", repository.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 1)
}

func TestClampPage(t *testing.T) {
	require.Equal(t, repository.Page{Limit: MaxPageSize}, ClampPage(repository.Page{}))
	require.Equal(t, repository.Page{Limit: MaxPageSize}, ClampPage(repository.Page{Limit: 500, Offset: -3}))
	require.Equal(t, repository.Page{Limit: 5, Offset: 10}, ClampPage(repository.Page{Limit: 5, Offset: 10}))
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t, "AAAAAAAAAA", "BBBBBBBBBB")
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")

	short := f.now.Add(time.Hour)
	_, err := f.svc.CreateForOwner(ctx, alice.ID, &short)
	require.NoError(t, err)
	_, err = f.svc.CreateForOwner(ctx, bob.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "AAAAAAAAAA")
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)
	codes, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"AAAAAAAAAA"}, codes)

	ok, err := f.cache.Exists(ctx, cacheKey("AAAAAAAAAA"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreUnavailableIsInfrastructure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	_, err := f.svc.Validate(context.Background(), "AAAAAAAAAA")
	require.True(t, types.IsInfrastructure(err))
}

// countingRefs cuenta las consultas que llegan al store.
type countingRefs struct {
	repository.ReferralRepository
	calls   atomic.Int32
	release chan struct{}
}

func (c *countingRefs) GetActiveByCode(ctx context.Context, code string, now time.Time) (*repository.Referral, error) {
	c.calls.Add(1)
	<-c.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.ReferralRepository.GetActiveByCode(ctx, code, now)
}

// countingStore entrega sesiones cuyo repo de referrals es refs.
type countingStore struct {
	*memory.Store
	refs *countingRefs
}

type countingSession struct {
	repository.Session
	refs repository.ReferralRepository
}

func (s countingSession) Referrals() repository.ReferralRepository { return s.refs }

func (s countingStore) Acquire(ctx context.Context) (repository.Session, error) {
	sess, err := s.Store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return countingSession{Session: sess, refs: s.refs}, nil
}

func sharedCodeStore(t *testing.T) countingStore {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	owner, err := st.Users().Create(ctx, repository.CreateUserInput{Email: "o@example.com", Identity: "local:o"})
	require.NoError(t, err)
	_, err = st.Referrals().Create(ctx, repository.CreateReferralInput{
		OwnerUserID: owner.ID,
		Code:        "SHAREDCODE",
		UntilAt:     time.Now().Add(time.Hour),
	}, time.Now())
	require.NoError(t, err)
	return countingStore{Store: st, refs: &countingRefs{ReferralRepository: st.Referrals(), release: make(chan struct{})}}
}

func TestCacheValidateCoalescesConcurrentMisses(t *testing.T) {
	st := sharedCodeStore(t)
	ctx := context.Background()
	refs := st.refs
	c := NewCache(cache.NewMemory(""), time.Hour)

	const n = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
		errs    = make(chan error, n)
	)
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			_, err := c.Validate(ctx, st, "SHAREDCODE")
			errs <- err
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(refs.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.LessOrEqual(t, refs.calls.Load(), int32(n))
	require.GreaterOrEqual(t, refs.calls.Load(), int32(1))
}

func TestCacheValidateSurvivesCancelledPeer(t *testing.T) {
	st := sharedCodeStore(t)
	c := NewCache(cache.NewMemory(""), time.Hour)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Validate(first, st, "SHAREDCODE")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return st.refs.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared lookup")
	}

	second := make(chan error, 1)
	var got *repository.Referral
	go func() {
		var err error
		got, err = c.Validate(context.Background(), st, "SHAREDCODE")
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(st.refs.release)

	require.NoError(t, <-second)
	require.Equal(t, "SHAREDCODE", got.Code)
	require.Equal(t, int32(1), st.refs.calls.Load())

	_, ok, err := c.Lookup(context.Background(), "SHAREDCODE")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCacheDiscardsCorruptEntries(t *testing.T) {
	client := cache.NewMemory("")
	ctx := context.Background()
	require.NoError(t, client.Set(ctx, cacheKey("BROKEN0000"), "{not json", time.Minute))
	require.NoError(t, client.Set(ctx, cacheKey("OLDVERSION"), `{"v":0,"code":"OLDVERSION"}`, time.Minute))

	c := NewCache(client, time.Minute)
	for _, code := range []string{"BROKEN0000", "OLDVERSION"} {
		_, ok, err := c.Lookup(ctx, code)
		require.NoError(t, err)
		require.False(t, ok)

		exists, err := client.Exists(ctx, cacheKey(code))
		require.NoError(t, err)
		require.False(t, exists)
	}
}
