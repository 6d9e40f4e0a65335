package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/refgate/internal/observability/logger"
	"github.com/dropDatabas3/refgate/internal/store/pg"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones del esquema postgres",
	}

	dsn := func() (string, error) {
		u := opts.cfg.DatabaseURL()
		if u == "" {
			return "", errors.New("migrate: DATABASE_URL or POSTGRES_* not configured")
		}
		return u, nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := dsn()
			if err != nil {
				return err
			}
			if err := pg.MigrateUp(u); err != nil {
				return err
			}
			logger.L().Info("migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revierte migraciones (--steps N, 0 = todas)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 0 {
				return fmt.Errorf("migrate: --steps must be >= 0")
			}
			u, err := dsn()
			if err != nil {
				return err
			}
			if err := pg.MigrateDown(u, steps); err != nil {
				return err
			}
			logger.L().Info("migrations reverted", logger.Int("steps", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Cantidad de migraciones a revertir (0 = todas)")

	cmd.AddCommand(up, down)
	return cmd
}
