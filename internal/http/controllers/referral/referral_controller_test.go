package referral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/refgate/internal/cache"
	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/http/middlewares"
	svc "github.com/dropDatabas3/refgate/internal/http/services/referral"
	"github.com/dropDatabas3/refgate/internal/store/memory"
)

type fixture struct {
	store *memory.Store
	ctrl  *ReferralController
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		now:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.ctrl = NewControllers(svc.NewService(svc.Deps{
		Store:   f.store,
		Cache:   svc.NewCache(cache.NewMemory("test"), time.Hour),
		Now:     func() time.Time { return f.now },
		NewCode: func() (string, error) { return "REFCODE001", nil },
	})).Referral
	return f
}

func (f *fixture) user(t *testing.T, email, code string) *repository.User {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), repository.CreateUserInput{
		Email:            email,
		Identity:         "local:" + email,
		Name:             email,
		ReferralCodeUsed: code,
	})
	require.NoError(t, err)
	return u
}

func asUser(r *http.Request, email string) *http.Request {
	ac := middlewares.AuthContext{Authenticated: true, Claims: claims.IdentityClaims{Email: email}}
	return r.WithContext(middlewares.WithAuth(r.Context(), ac))
}

func serve(h http.HandlerFunc, r *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rr := httptest.NewRecorder()
	h(rr, r)
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return rr, body
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	f.user(t, "owner@example.com", "")

	rr, body := serve(f.ctrl.Create, asUser(httptest.NewRequest(http.MethodPost, "/referrer/create", nil), "owner@example.com"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "REFCODE001", body["ref_id"])

	rr, body = serve(f.ctrl.Create, asUser(httptest.NewRequest(http.MethodPost, "/referrer/create", nil), "owner@example.com"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Referrer ID already exists, you can only have one referrer ID", body["error_description"])
}

func TestCreate_Unauthenticated(t *testing.T) {
	f := newFixture(t)

	rr, body := serve(f.ctrl.Create, httptest.NewRequest(http.MethodPost, "/referrer/create", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Could not validate credentials", body["error_description"])

	// sesión válida pero sin usuario local
	rr, _ = serve(f.ctrl.Create, asUser(httptest.NewRequest(http.MethodPost, "/referrer/create", nil), "ghost@example.com"))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreate_BadUntilAt(t *testing.T) {
	f := newFixture(t)
	f.user(t, "owner@example.com", "")

	r := asUser(httptest.NewRequest(http.MethodPost, "/referrer/create?until_at=tomorrow", nil), "owner@example.com")
	rr, body := serve(f.ctrl.Create, r)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotEmpty(t, body["fields"])
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.user(t, "owner@example.com", "")
	f.user(t, "other@example.com", "")

	rr, _ := serve(f.ctrl.Create, asUser(httptest.NewRequest(http.MethodPost, "/referrer/create", nil), "owner@example.com"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = serve(f.ctrl.Delete, asUser(httptest.NewRequest(http.MethodPost, "/referrer/delete", nil), "owner@example.com"))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr, body := serve(f.ctrl.Delete, asUser(httptest.NewRequest(http.MethodPost, "/referrer/delete?referrer_id=REFCODE001", nil), "other@example.com"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Referrer ID does not exists for the user", body["error_description"])

	rr, body = serve(f.ctrl.Delete, asUser(httptest.NewRequest(http.MethodPost, "/referrer/delete?referrer_id=REFCODE001", nil), "owner@example.com"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Referrer ID deleted", body["message"])
}

func TestGetReferrer(t *testing.T) {
	f := newFixture(t)
	f.user(t, "owner@example.com", "")

	rr, body := serve(f.ctrl.GetReferrer, httptest.NewRequest(http.MethodGet, "/referrer/get_referrer?email=not-an-email", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotEmpty(t, body["fields"])

	rr, _ = serve(f.ctrl.GetReferrer, httptest.NewRequest(http.MethodGet, "/referrer/get_referrer?email=owner@example.com", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = serve(f.ctrl.Create, asUser(httptest.NewRequest(http.MethodPost, "/referrer/create", nil), "owner@example.com"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr, body = serve(f.ctrl.GetReferrer, httptest.NewRequest(http.MethodGet, "/referrer/get_referrer?email=owner@example.com", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "REFCODE001", body["ref_id"])
}

func TestGetReferrals(t *testing.T) {
	f := newFixture(t)
	f.user(t, "owner@example.com", "")
	rr, _ := serve(f.ctrl.Create, asUser(httptest.NewRequest(http.MethodPost, "/referrer/create", nil), "owner@example.com"))
	require.Equal(t, http.StatusOK, rr.Code)

	f.user(t, "a@example.com", "REFCODE001")
	f.user(t, "b@example.com", "REFCODE001")
	f.user(t, "c@example.com", "")

	rr, body := serve(f.ctrl.GetReferrals, httptest.NewRequest(http.MethodGet, "/referrer/get_referrals?referrer_id=REFCODE001&limit=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 2, body["total"])
	require.EqualValues(t, 1, body["limit"])
	require.EqualValues(t, 0, body["offset"])
	items := body["items"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, "REFCODE001", items[0].(map[string]any)["referral_id"])

	rr, body = serve(f.ctrl.GetReferrals, httptest.NewRequest(http.MethodGet, "/referrer/get_referrals?referrer_id=REFCODE001", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, svc.MaxPageSize, body["limit"])
	require.Len(t, body["items"].([]any), 2)
}

func TestGetReferrals_InvalidQuery(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing referrer", "?limit=10"},
		{"limit not int", "?referrer_id=X&limit=ten"},
		{"limit too big", "?referrer_id=X&limit=101"},
		{"limit zero", "?referrer_id=X&limit=0"},
		{"negative offset", "?referrer_id=X&offset=-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, _ := serve(f.ctrl.GetReferrals, httptest.NewRequest(http.MethodGet, "/referrer/get_referrals"+tt.query, nil))
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		})
	}

	rr, body := serve(f.ctrl.GetReferrals, httptest.NewRequest(http.MethodGet, "/referrer/get_referrals?referrer_id=UNKNOWN", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Referrer ID does not exists", body["error_description"])
}
