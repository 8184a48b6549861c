package commands

import (
	"fmt"
	"strconv"

	"procmap/internal/metricfmt"

	"github.com/spf13/cobra"
)

var (
	formatMetric  string
	formatUnit    string
	formatDecimal bool
)

var formatCmd = &cobra.Command{
	Use:   "format <value>",
	Short: "Format a metric value as the dashboard shows it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[0], err)
		}
		s := metricfmt.Format(v, formatMetric, formatUnit)
		if formatDecimal {
			s = metricfmt.Decimal(v, formatMetric, formatUnit)
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	formatCmd.Flags().StringVarP(&formatMetric, "metric", "m", "", "metric name (infers the unit of legacy metrics)")
	formatCmd.Flags().StringVarP(&formatUnit, "unit", "u", "", "explicit unit, e.g. JPY or percent")
	formatCmd.Flags().BoolVar(&formatDecimal, "decimal", false, "use the two-decimal summary style")
}
