package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configura el logger del proceso.
type Config struct {
	Env         string // APP_ENV o "dev"/"prod"; production ⇒ JSON, el resto consola
	Level       string // debug|info|warn|error; vacío o inválido ⇒ info
	ServiceName string
	Version     string
}

// EnvFromApp traduce APP_ENV (local|staging|production) al modo del logger.
func EnvFromApp(appEnv string) string {
	switch strings.ToLower(strings.TrimSpace(appEnv)) {
	case "production", "prod":
		return "prod"
	default:
		return "dev"
	}
}

func build(cfg Config) *zap.Logger {
	zcfg, opts := zapConfig(cfg)
	l, err := zcfg.Build(opts...)
	if err != nil {
		l, _ = zap.NewProduction()
	}
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		l = l.With(zap.String("version", cfg.Version))
	}
	return l
}

// zapConfig arma la config de zap para cfg. El caller reportado es quien
// llama al *zap.Logger: ningún helper del paquete envuelve los métodos de log.
func zapConfig(cfg Config) (zap.Config, []zap.Option) {
	opts := []zap.Option{zap.AddCaller()}

	var zcfg zap.Config
	if EnvFromApp(cfg.Env) == "prod" {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	return zcfg, opts
}

func parseLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
