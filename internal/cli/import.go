package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"caucion-alerts/internal/app"
)

var (
	importCSVPath string
	importDryRun  bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an archived history CSV into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importCSVPath == "" {
			return errors.New("--csv is required")
		}

		opts := app.ImportOptions{
			CSVPath: importCSVPath,
			DryRun:  importDryRun,
		}
		return getApp().Import(cmd.Context(), opts)
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "Path to the history CSV (timestamp_utc,source,term,tna)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and report without writing")
}
