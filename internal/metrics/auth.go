package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de dominio (referral cache, provisioning, tokens). Viven en un
// paquete aparte para que services y middlewares las usen sin importar http.

var (
	ReferralCacheEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_cache_events_total",
		Help: "Eventos del cache de referrals por resultado",
	}, []string{"result"}) // hit|miss|expired|evict|corrupt

	UsersProvisioned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "users_provisioned_total",
		Help: "Usuarios creados por origen",
	}, []string{"source"}) // oauth|password

	TokenDecodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_token_decode_failures_total",
		Help: "Tokens de sesión rechazados por motivo",
	}, []string{"reason"}) // expired|signature|malformed|scheme

	ReferralsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referrals_swept_total",
		Help: "Referrals vencidos eliminados por el sweep",
	})
)

// RegisterAuth registra las métricas de dominio en reg (o el default si es nil).
func RegisterAuth(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{ReferralCacheEvents, UsersProvisioned, TokenDecodeFailures, ReferralsSwept} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func ReferralCache(result string) {
	ReferralCacheEvents.WithLabelValues(result).Inc()
}

func UserProvisioned(source string) {
	UsersProvisioned.WithLabelValues(source).Inc()
}

func TokenDecodeFailure(reason string) {
	TokenDecodeFailures.WithLabelValues(reason).Inc()
}

func ReferralSwept(n int) {
	ReferralsSwept.Add(float64(n))
}
