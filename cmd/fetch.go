package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repotrends/repotrends/internal/utils"
)

// fetchCmd implements: repotrends fetch
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch traffic data for all configured repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		f, _, err := newFetcher(cmd)
		if err != nil {
			return err
		}

		summary, err := f.FetchAll(cmd.Context(), force)
		if err != nil {
			return err
		}

		if summary.Skipped {
			fmt.Printf("Skipped: %s (use --force to fetch anyway)\n", summary.Reason)
			return nil
		}

		fmt.Printf("Fetched %d metric(s), %d error(s)\n", len(summary.Success), len(summary.Errors))
		for key, msg := range summary.Errors {
			utils.Log.Warnf("%s: %s", key, msg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolP("force", "f", false, "Fetch even if the minimum interval has not elapsed")
}
