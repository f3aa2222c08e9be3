package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/repotrends/repotrends/internal/utils"
	"github.com/repotrends/repotrends/pkg/analytics"
	"github.com/repotrends/repotrends/pkg/github"
)

// referrersCmd implements: repotrends referrers <owner/name>
var referrersCmd = &cobra.Command{
	Use:   "referrers <owner/name>",
	Short: "Print the current top referrers for one repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		collapse, _ := cmd.Flags().GetBool("collapse")
		titles, _ := cmd.Flags().GetBool("titles")

		engine, err := newEngine(cmd)
		if err != nil {
			return err
		}

		entries, err := engine.TopReferrers(args[0], limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No referrer data. Run 'repotrends fetch' first.")
			return nil
		}

		if collapse {
			entries = analytics.GroupByDomain(entries)
			if len(entries) > limit && limit > 0 {
				entries = entries[:limit]
			}
		}

		if titles {
			for i := range entries {
				title, err := github.FetchPageTitle(entries[i].Name, nil)
				if err != nil {
					utils.Log.Debugf("Could not resolve title for %s: %v", entries[i].Name, err)
					continue
				}
				entries[i].Title = title
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "REFERRER\tCOUNT\tUNIQUES\t")
		for _, e := range entries {
			name := e.Name
			if e.Title != "" {
				name = fmt.Sprintf("%s (%s)", e.Name, e.Title)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t\n", name, e.Count, e.Uniques)
		}
		w.Flush()
		return nil
	},
}

// pathsCmd implements: repotrends paths <owner/name>
var pathsCmd = &cobra.Command{
	Use:   "paths <owner/name>",
	Short: "Print the current popular paths for one repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		engine, err := newEngine(cmd)
		if err != nil {
			return err
		}

		entries, err := engine.TopPaths(args[0], limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No path data. Run 'repotrends fetch' first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "PATH\tTITLE\tCOUNT\tUNIQUES\t")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t\n", e.Name, e.Title, e.Count, e.Uniques)
		}
		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(referrersCmd)
	rootCmd.AddCommand(pathsCmd)
	referrersCmd.Flags().Int("limit", 10, "Maximum entries to print")
	referrersCmd.Flags().Bool("collapse", false, "Group referrers by registered domain")
	referrersCmd.Flags().Bool("titles", false, "Resolve referrer page titles (one HTTP request each)")
	pathsCmd.Flags().Int("limit", 10, "Maximum entries to print")
}
