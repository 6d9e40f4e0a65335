package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/refgate/internal/http/server"
	refsvc "github.com/dropDatabas3/refgate/internal/http/services/referral"
	"github.com/dropDatabas3/refgate/internal/metrics"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

func newReferralCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referral",
		Short: "Mantenimiento de referrals",
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Borra los referrals vencidos y los expulsa del cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.ToContext(cmd.Context(), logger.L())
			cfg := opts.cfg

			st, err := server.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			cc, err := server.OpenCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer cc.Close()

			if err := metrics.RegisterAuth(nil); err != nil {
				return err
			}
			svc := refsvc.NewService(refsvc.Deps{
				Store:      st,
				Cache:      refsvc.NewCache(cc, cfg.CacheTTL()),
				DefaultTTL: cfg.Referral.DefaultTTL,
			})
			codes, err := svc.SweepExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swept %d expired referral(s)\n", len(codes))
			return nil
		},
	}

	cmd.AddCommand(sweep)
	return cmd
}
