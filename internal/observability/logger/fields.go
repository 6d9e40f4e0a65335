package logger

import (
	"go.uber.org/zap"

	"github.com/dropDatabas3/refgate/internal/util"
)

// Campos del access log.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Campos de dominio. Email y ReferralCode nunca salen en claro.

func UserID(v string) zap.Field { return zap.String("user_id", v) }
func Provider(v string) zap.Field { return zap.String("provider", v) }

// Identity es la identidad canónica "<provider>:<id>".
func Identity(v string) zap.Field { return zap.String("identity", v) }

func ReferralCode(v string) zap.Field { return zap.String("referral_code", util.MaskSecret(v)) }
func Email(v string) zap.Field { return zap.String("email", util.MaskEmail(v)) }

// Driver es el backend de store o cache (postgres, memory, redis).
func Driver(v string) zap.Field { return zap.String("driver", v) }

// Campos de ubicación: capa, componente y operación.

func Layer(v string) zap.Field { return zap.String("layer", v) }
func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Err(err error) zap.Field { return zap.Error(err) }
func Count(v int) zap.Field { return zap.Int("count", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
