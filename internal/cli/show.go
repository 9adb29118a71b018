package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"caucion-alerts/internal/app"
)

var (
	showLimit       int
	showTransitions bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent rate history or fired transitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:       showLimit,
			Transitions: showTransitions,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().BoolVar(&showTransitions, "transitions", false, "Show fired transitions instead of samples")
}
