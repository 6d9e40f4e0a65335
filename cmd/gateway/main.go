// Command gateway sirve el gateway de autenticación y expone tareas de
// mantenimiento (migraciones, limpieza de referrals vencidos).
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/refgate/internal/config"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// version se inyecta con -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{
		configPath: os.Getenv("GATEWAY_CONFIG"),
		envFile:    ".env",
	}

	root := &cobra.Command{
		Use:           "gateway",
		Short:         "Gateway de autenticación con OAuth2, login local y referrals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env es opcional; las variables del entorno real tienen prioridad
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("load %s: %w", opts.envFile, err)
				}
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			logger.Init(logger.Config{
				Env:         logger.EnvFromApp(cfg.App.Env),
				Level:       cfg.App.LogLevel,
				ServiceName: cfg.App.ProjectName,
				Version:     version,
			})
			for _, w := range cfg.Warnings {
				logger.L().Warn(w)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "Ruta al config.yaml (env GATEWAY_CONFIG)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", opts.envFile, "Archivo .env a cargar antes de leer el entorno")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newReferralCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Imprime la versión",
			// sin config: no hereda PersistentPreRunE
			PersistentPreRun: func(*cobra.Command, []string) {},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}
