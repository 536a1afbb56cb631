package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"news-impact-alerts/internal/app"
)

var (
	analyzeSource string
	analyzeText   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <headline>",
	Short: "Analyze one headline and print the stored event",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AnalyzeOptions{
			Headline: strings.Join(args, " "),
			Source:   analyzeSource,
			Text:     analyzeText,
		}
		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSource, "source", "", "News source name")
	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "Optional article body")
}
