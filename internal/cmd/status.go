package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parcelops/hubsync/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check connectivity and show rate limit state",
	Long: `Send one lightweight request to HubSpot, then print the limits HubSpot reported for it
next to the local limiter's burst and daily tiers.

The local limiter starts full on every run; HubSpot's numbers are the authoritative view of
today's remaining quota.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			limits, err := s.manager.Ping(cmd.Context())
			if err != nil {
				return err
			}
			if !limits.Present {
				s.logger.Debug("hubspot sent no rate limit headers")
			} else {
				s.logger.Debug("hubspot rate limits",
					zap.Int("remaining", limits.Remaining),
					zap.Int("daily_remaining", limits.DailyRemaining))
			}

			status := &output.Status{
				BaseURL:  s.manager.Config().BaseURL,
				Provider: limits,
				Limiter:  s.manager.Stats(),
			}
			return render(cmd, func(f output.Formatter) (string, error) {
				return f.FormatStatus(status)
			})
		})
	},
}

var ownersCmd = &cobra.Command{
	Use:   "owners",
	Short: "List CRM owners (the ids used by hubspot_owner_id)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			owners, err := s.manager.ListOwners(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, func(f output.Formatter) (string, error) {
				return f.FormatOwners(owners)
			})
		})
	},
}

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List deal pipelines and their stages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			pipelines, err := s.manager.ListDealPipelines(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, func(f output.Formatter) (string, error) {
				return f.FormatPipelines(pipelines)
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, ownersCmd, pipelinesCmd)
}
