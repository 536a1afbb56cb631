package cli

import (
	"github.com/spf13/cobra"

	"news-impact-alerts/internal/app"
)

var validateHorizon string

var validateCmd = &cobra.Command{
	Use:   "validate <event-id>",
	Short: "Score one stored prediction against a simulated outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ValidateOptions{
			EventID: args[0],
			Horizon: validateHorizon,
		}
		return getApp().Validate(cmd.Context(), opts)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateHorizon, "horizon", "1h", "Validation horizon (1h, 6h, 24h)")
}
