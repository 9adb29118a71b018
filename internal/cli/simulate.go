package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"caucion-alerts/internal/app"
	"caucion-alerts/internal/engine"
)

var (
	simulateTNA1D   float64
	simulateTNA7D   float64
	simulateTNA14D  float64
	simulateTNA30D  float64
	simulateDeliver bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-cycle",
	Short: "Run one cycle against supplied TNA values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateTNA1D <= 0 || simulateTNA7D <= 0 {
			return errors.New("--tna-1d and --tna-7d must be greater than 0")
		}

		rates := map[engine.Term]float64{
			engine.Term1D: simulateTNA1D,
			engine.Term7D: simulateTNA7D,
		}
		if simulateTNA14D > 0 {
			rates[engine.Term14D] = simulateTNA14D
		}
		if simulateTNA30D > 0 {
			rates[engine.Term30D] = simulateTNA30D
		}

		return getApp().SimulateCycle(cmd.Context(), app.SimulateOptions{
			Rates:   rates,
			Deliver: simulateDeliver,
		})
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateTNA1D, "tna-1d", 0, "Annualized 1D rate (percent)")
	simulateCmd.Flags().Float64Var(&simulateTNA7D, "tna-7d", 0, "Annualized 7D rate (percent)")
	simulateCmd.Flags().Float64Var(&simulateTNA14D, "tna-14d", 0, "Annualized 14D rate (percent, optional)")
	simulateCmd.Flags().Float64Var(&simulateTNA30D, "tna-30d", 0, "Annualized 30D rate (percent, optional)")
	simulateCmd.Flags().BoolVar(&simulateDeliver, "deliver", false, "Really deliver the rendered notifications")
}
