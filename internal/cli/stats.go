package cli

import (
	"encoding/json"

	"quiz-attempt-service/internal/config"

	"github.com/spf13/cobra"
)

// NewStatsCmd prints attempt statistics as JSON.
func NewStatsCmd(configPath *string) *cobra.Command {
	var quizID, learnerID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print attempt statistics for a quiz and/or learner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := config.NewLogger(cfg)
			wired, err := buildEngine(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer wired.Close()

			stats, err := wired.engine.Statistics.Statistics(cmd.Context(), quizID, learnerID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "restrict to one quiz id")
	cmd.Flags().StringVar(&learnerID, "learner", "", "restrict to one learner id")
	return cmd
}
