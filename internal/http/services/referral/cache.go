package referral

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/refgate/internal/cache"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/metrics"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

const (
	cacheKeyPrefix = "referral:"

	// defaultLookupTimeout acota la consulta compartida al store en un miss.
	defaultLookupTimeout = 5 * time.Second

	// CacheSchemaVersion se incrementa ante cualquier cambio de CacheRecord.
	// Entradas con otra versión se tratan como miss.
	CacheSchemaVersion = 1
)

// CacheRecord es el formato persistido en el cache para un referral.
type CacheRecord struct {
	V           int       `json:"v"`
	ID          string    `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"created_at"`
	UntilAt     time.Time `json:"until_at"`
}

func recordFrom(r *repository.Referral) CacheRecord {
	return CacheRecord{
		V:           CacheSchemaVersion,
		ID:          r.ID,
		OwnerUserID: r.OwnerUserID,
		Code:        r.Code,
		CreatedAt:   r.CreatedAt.UTC(),
		UntilAt:     r.UntilAt.UTC(),
	}
}

func (c CacheRecord) referral() *repository.Referral {
	return &repository.Referral{
		ID:          c.ID,
		OwnerUserID: c.OwnerUserID,
		Code:        c.Code,
		CreatedAt:   c.CreatedAt,
		UntilAt:     c.UntilAt,
	}
}

// Cache es un read-through cache de referrals delante del store.
// Las entradas pueden quedar stale tras un delete hasta que venza el TTL.
type Cache struct {
	client cache.Client
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group

	lookupTimeout time.Duration
}

// NewCache crea el cache. ttl <= 0 usa una hora.
func NewCache(client cache.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl, now: time.Now, lookupTimeout: defaultLookupTimeout}
}

func cacheKey(code string) string { return cacheKeyPrefix + code }

// Lookup lee el cache sin ir al store. ok=false es miss.
func (c *Cache) Lookup(ctx context.Context, code string) (rec *repository.Referral, ok bool, err error) {
	raw, err := c.client.Get(ctx, cacheKey(code))
	if cache.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.Infra("referral.cache.get", err)
	}

	var cr CacheRecord
	if err := json.Unmarshal([]byte(raw), &cr); err != nil || cr.V != CacheSchemaVersion || cr.Code != code {
		metrics.ReferralCache("corrupt")
		logger.From(ctx).Warn("discarding unreadable referral cache entry",
			logger.Component("referral.cache"), logger.ReferralCode(code))
		_ = c.client.Delete(ctx, cacheKey(code))
		return nil, false, nil
	}
	return cr.referral(), true, nil
}

// Store guarda el snapshot del referral con el TTL configurado.
func (c *Cache) Store(ctx context.Context, r *repository.Referral) error {
	b, err := json.Marshal(recordFrom(r))
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, cacheKey(r.Code), string(b), c.ttl); err != nil {
		return types.Infra("referral.cache.set", err)
	}
	return nil
}

// Evict borra la entrada de code. Borrar algo que no estaba no es error.
func (c *Cache) Evict(ctx context.Context, code string) error {
	if err := c.client.Delete(ctx, cacheKey(code)); err != nil {
		return types.Infra("referral.cache.delete", err)
	}
	metrics.ReferralCache("evict")
	return nil
}

// Validate resuelve code para un registro.
//  1. Hit: vencido ⇒ ReferralExpired; si no, el snapshot.
//  2. Miss: busca en el store un referral activo. No existe ⇒ ReferralInvalid.
//     Existe ⇒ lo cachea y lo devuelve.
//
// Los misses concurrentes del mismo código comparten una sola consulta al store.
// Esa consulta usa su propia sesión y no hereda la cancelación de ningún
// request; cada llamador deja de esperar cuando vence su propio ctx.
func (c *Cache) Validate(ctx context.Context, st repository.Store, code string) (*repository.Referral, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("referral.cache"),
		logger.Op("Validate"),
		logger.ReferralCode(code),
	)

	now := c.now()
	rec, ok, err := c.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if ok {
		if !rec.Active(now) {
			metrics.ReferralCache("expired")
			return nil, types.ErrReferralExpired
		}
		metrics.ReferralCache("hit")
		return rec, nil
	}
	metrics.ReferralCache("miss")
	if st == nil {
		return nil, types.Infra("referral.store.get_active", repository.ErrUnavailable)
	}

	ch := c.group.DoChan(code, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()
		return c.fetch(sctx, log, st, code, now)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		ref, ok := res.Val.(*repository.Referral)
		if !ok {
			return nil, fmt.Errorf("referral: unexpected singleflight result %T", res.Val)
		}
		out := *ref
		return &out, nil
	}
}

func (c *Cache) fetch(ctx context.Context, log *zap.Logger, st repository.Store, code string, now time.Time) (*repository.Referral, error) {
	sess, err := st.Acquire(ctx)
	if err != nil {
		return nil, types.Infra("referral.store.acquire", err)
	}
	defer sess.Close()

	ref, err := sess.Referrals().GetActiveByCode(ctx, code, now)
	if repository.IsNotFound(err) {
		return nil, types.ErrReferralInvalid
	}
	if err != nil {
		return nil, types.Infra("referral.store.get_active", err)
	}
	if err := c.Store(ctx, ref); err != nil {
		// el próximo read vuelve a caer al store
		log.Warn("referral cache populate failed", logger.Err(err))
	}
	return ref, nil
}
