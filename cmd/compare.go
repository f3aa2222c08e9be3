package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repotrends/repotrends/pkg/periods"
)

// compareCmd implements: repotrends compare <owner/name> <metric> <period1> <period2>
var compareCmd = &cobra.Command{
	Use:   "compare <owner/name> <clones|views> <period1> <period2>",
	Short: "Compare traffic between two periods (YYYY or YYYY-MM)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(cmd)
		if err != nil {
			return err
		}

		c, err := periods.Compare(cmd.Context(), engine, args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}

		fmt.Printf("%s %s: %s vs %s\n", c.Repository, c.Metric, c.Period1, c.Period2)
		printTotals(c.Period1, c.Totals1)
		printTotals(c.Period2, c.Totals2)
		fmt.Printf("count change:   %s\n", formatChange(c.CountChange))
		fmt.Printf("uniques change: %s\n", formatChange(c.UniquesChange))
		return nil
	},
}

func printTotals(period string, t periods.Totals) {
	fmt.Printf("%s: total %d, unique %d over %d day(s), avg %.1f/day\n",
		period, t.Count, t.Uniques, t.Days, t.AvgCount)
}

func formatChange(c periods.Change) string {
	if c.Infinite {
		return "+∞%"
	}
	return fmt.Sprintf("%+.1f%%", c.Pct)
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
