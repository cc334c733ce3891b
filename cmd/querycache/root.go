package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-query-cache/pkg/config"
	"github.com/goliatone/go-query-cache/pkg/di"
	"github.com/goliatone/go-query-cache/querycache"
)

type rootFlags struct {
	configPath string
	connection string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "querycache",
		Short:         "Run cached SQL queries and manage the query cache",
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a TOML or YAML config file")
	pf.StringVar(&flags.connection, "connection", "", "connection to query (default: the configured default)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log executed statements and cache activity")

	root.AddCommand(
		newSelectCommand(flags),
		newAggregateCommand(flags),
		newKeyCommand(flags),
		newFlushCommand(flags),
	)
	return root
}

func (f *rootFlags) loadConfig() (config.Config, error) {
	if f.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(f.configPath)
}

// openContainer builds the container for cmd. The caller closes it.
func (f *rootFlags) openContainer(cmd *cobra.Command) (*di.Container, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}

	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	return di.NewContainer(cmd.Context(), cfg, di.WithLogger(logger))
}

func (f *rootFlags) builder(c *di.Container, table string) (*querycache.Builder, error) {
	b, err := c.Manager().TableOn(f.connection, table)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", table, err)
	}
	return b, nil
}
