package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/repotrends/repotrends/internal/utils"
)

// watchCmd implements: repotrends watch
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Fetch traffic on a schedule until interrupted",
	Long: `Runs in the foreground and fetches traffic for all configured repositories
on the schedule from fetch.schedule (cron expression or @every syntax).
The interval gate still applies, so overlapping schedules stay cheap.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, err := newFetcher(cmd)
		if err != nil {
			return err
		}

		schedule := viper.GetString("fetch.schedule")

		run := func() {
			summary, err := f.FetchAll(context.Background(), false)
			if err != nil {
				utils.Log.Errorf("Fetch failed: %v", err)
				return
			}
			if summary.Skipped {
				utils.Log.Debugf("Fetch skipped: %s", summary.Reason)
				return
			}
			utils.Log.Infof("Fetched %d metric(s), %d error(s)", len(summary.Success), len(summary.Errors))
			for key, msg := range summary.Errors {
				utils.Log.Warnf("%s: %s", key, msg)
			}
		}

		c := cron.New()
		if _, err := c.AddFunc(schedule, run); err != nil {
			return err
		}

		utils.Log.Infof("Watching on schedule %q. Press Ctrl+C to stop.", schedule)
		run() // one immediate pass, then the schedule takes over
		c.Start()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		<-c.Stop().Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
