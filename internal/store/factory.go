// Package store elige e inicializa el backend de persistencia según config.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/store/memory"
	"github.com/dropDatabas3/refgate/internal/store/pg"
)

type Config struct {
	Driver string
	DSN    string
	Pool   pg.PoolConfig
}

// Open devuelve el repository.Store del driver configurado.
func Open(ctx context.Context, cfg Config) (repository.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "pg", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store: postgres driver requires a DSN")
		}
		return pg.New(ctx, cfg.DSN, cfg.Pool)
	case "memory", "mem", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
