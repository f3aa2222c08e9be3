package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/repotrends/repotrends/internal/utils"
	"github.com/repotrends/repotrends/pkg/analytics"
	"github.com/repotrends/repotrends/pkg/fetcher"
	"github.com/repotrends/repotrends/pkg/github"
	"github.com/repotrends/repotrends/pkg/storage"
)

const indexFileName = "index.sqlite"

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	dataDir, _ := cmd.Flags().GetString("datadir")
	if dataDir == "" {
		dataDir = viper.GetString("datadir")
	}
	dir, err := utils.DefaultDataDir(dataDir)
	if err != nil {
		return nil, err
	}
	return storage.NewStore(dir)
}

// openIndex opens the derived daily-record index. Failures only cost
// speed: callers run without the fast path.
func openIndex(store *storage.Store) *storage.Index {
	ix, err := storage.OpenIndex(filepath.Join(store.Root(), indexFileName))
	if err != nil {
		utils.Log.Warnf("Could not open index, queries will rescan history: %v", err)
		return nil
	}
	return ix
}

func newClient() (*github.Client, error) {
	token, err := github.ResolveToken(viper.GetString("github.token"), viper.GetString("github.token_file"))
	if err != nil {
		return nil, err
	}
	return github.NewClient(token), nil
}

func newFetcher(cmd *cobra.Command) (*fetcher.Fetcher, *storage.Store, error) {
	store, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	client, err := newClient()
	if err != nil {
		return nil, nil, err
	}
	return &fetcher.Fetcher{
		Client:   client,
		Store:    store,
		Index:    openIndex(store),
		Repos:    viper.GetStringSlice("repos"),
		Interval: time.Duration(viper.GetInt("fetch.interval_minutes")) * time.Minute,
	}, store, nil
}

func newEngine(cmd *cobra.Command) (*analytics.Engine, error) {
	store, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	return &analytics.Engine{
		Store: store,
		Index: openIndex(store),
		Repos: viper.GetStringSlice("repos"),
	}, nil
}
