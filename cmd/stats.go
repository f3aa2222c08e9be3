package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/repotrends/repotrends/pkg/analytics"
)

// statsCmd implements: repotrends stats <owner/name> <clones|views>
var statsCmd = &cobra.Command{
	Use:   "stats <owner/name> <clones|views>",
	Short: "Print aggregated traffic statistics for one repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		rollup, _ := cmd.Flags().GetString("rollup")

		engine, err := newEngine(cmd)
		if err != nil {
			return err
		}

		stats, err := engine.QueryMetric(cmd.Context(), args[0], args[1], from, to)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s: total %d, unique %d (%s .. %s)\n",
			stats.Repository, stats.Metric, stats.TotalCount, stats.TotalUniques,
			stats.PeriodStart, stats.PeriodEnd)

		breakdown := stats.Daily
		label := "DATE"
		switch rollup {
		case "weekly":
			breakdown = analytics.RollupWeekly(stats.Daily)
			label = "WEEK"
		case "monthly":
			breakdown = analytics.RollupMonthly(stats.Daily)
			label = "MONTH"
		case "", "daily":
		default:
			return fmt.Errorf("unknown rollup %q, expected daily, weekly or monthly", rollup)
		}

		if len(breakdown) == 0 {
			fmt.Println("No data for the selected range.")
			return nil
		}

		keys := make([]string, 0, len(breakdown))
		for k := range breakdown {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "%s\tCOUNT\tUNIQUES\t\n", label)
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%d\t%d\t\n", k, breakdown[k].Count, breakdown[k].Uniques)
		}
		w.Flush()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("from", "", "Start date (YYYY-MM-DD, inclusive)")
	statsCmd.Flags().String("to", "", "End date (YYYY-MM-DD, inclusive)")
	statsCmd.Flags().String("rollup", "daily", "Breakdown granularity: daily, weekly or monthly")
}
