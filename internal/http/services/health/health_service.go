package health

import (
	"context"
	"time"

	dto "github.com/dropDatabas3/refgate/internal/http/dto/health"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Pinger es cualquier backend que responde a un ping (store, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Store   Pinger
	Cache   Pinger
	Version string
	Timeout time.Duration // por componente; default 2s
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

// Check hace ping a store y cache. Cualquiera caído deja el servicio "unavailable".
// Los mensajes de error no incluyen la causa: /readyz es público.
func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)

	response := dto.HealthResponse{
		Status:     "ready",
		Components: make(map[string]dto.HealthStatus, 2),
		Version:    s.deps.Version,
		Timestamp:  time.Now().UTC(),
	}

	for name, p := range map[string]Pinger{"store": s.deps.Store, "cache": s.deps.Cache} {
		if p == nil {
			response.Components[name] = dto.HealthStatus{Status: "error", Message: "not initialized"}
			response.Status = "unavailable"
			continue
		}
		if err := s.ping(ctx, p); err != nil {
			log.Error(name+" unavailable", logger.Err(err))
			response.Components[name] = dto.HealthStatus{Status: "error", Message: "unavailable"}
			response.Status = "unavailable"
			continue
		}
		response.Components[name] = dto.HealthStatus{Status: "ok"}
	}
	return response
}

func (s *healthService) ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()
	return p.Ping(ctx)
}
