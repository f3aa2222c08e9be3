package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// checkCmd implements: repotrends check
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check API connectivity and summarize stored history",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		client, err := newClient()
		if err != nil {
			return err
		}

		if err := client.CheckConnectivity(timeout); err != nil {
			fmt.Printf("API connectivity: FAILED (%v)\n", err)
		} else {
			fmt.Println("API connectivity: OK")
		}

		store, err := openStore(cmd)
		if err != nil {
			return err
		}

		last, err := store.ReadLastFetch()
		if err != nil {
			fmt.Printf("Last fetch: unknown (%v)\n", err)
		} else if last.IsZero() {
			fmt.Println("Last fetch: never")
		} else {
			fmt.Printf("Last fetch: %s (%s ago)\n", last.Format(time.RFC3339), time.Since(last).Round(time.Second))
		}

		stats, err := store.Stats()
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("No snapshots stored yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "REPOSITORY\tMETRIC\tSNAPSHOTS\t")
		total := 0
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%s\t%d\t\n", s.Repository, s.Metric, s.SnapshotCount)
			total += s.SnapshotCount
		}
		fmt.Fprintln(w, " \t \t \t")
		fmt.Fprintf(w, "TOTAL\t\t%d\t\n", total)
		w.Flush()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Duration("timeout", 10*time.Second, "Wall-clock timeout for the connectivity check")
}
