package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var aggregateFunctions = []string{"count", "sum", "avg", "min", "max"}

func newSelectCommand(root *rootFlags) *cobra.Command {
	var (
		q       queryFlags
		columns []string
		format  string
		first   bool
	)

	cmd := &cobra.Command{
		Use:   "select TABLE",
		Short: "Run a select, through the cache when --remember or --forever is set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			c, err := root.openContainer(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, c.Close()) }()

			b, err := root.builder(c, args[0])
			if err != nil {
				return err
			}
			if len(columns) > 0 {
				b.Select(columns...)
			}
			if err := q.apply(cmd, b); err != nil {
				return err
			}
			if first {
				b.Limit(1)
			}

			rows, err := b.Get(cmd.Context())
			if err != nil {
				return err
			}
			return writeRows(cmd.OutOrStdout(), format, columns, rows)
		},
	}

	q.register(cmd)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to select (default: *)")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format: table, json or yaml")
	cmd.Flags().BoolVar(&first, "first", false, "return at most one row")
	return cmd
}

func newAggregateCommand(root *rootFlags) *cobra.Command {
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "aggregate FUNCTION TABLE [COLUMN...]",
		Short: "Compute count, sum, avg, min or max over a table",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			function := strings.ToLower(args[0])
			if !slices.Contains(aggregateFunctions, function) {
				return fmt.Errorf("unknown aggregate %q: expected one of %s", args[0], strings.Join(aggregateFunctions, ", "))
			}

			c, err := root.openContainer(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, c.Close()) }()

			b, err := root.builder(c, args[1])
			if err != nil {
				return err
			}
			if err := q.apply(cmd, b); err != nil {
				return err
			}

			value, err := b.Aggregate(cmd.Context(), function, args[2:]...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatValue(value))
			return err
		},
	}

	q.register(cmd)
	return cmd
}

func newKeyCommand(root *rootFlags) *cobra.Command {
	var (
		q       queryFlags
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "key TABLE",
		Short: "Print the cache key, SQL and bindings a select would use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			c, err := root.openContainer(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, c.Close()) }()

			b, err := root.builder(c, args[0])
			if err != nil {
				return err
			}
			if len(columns) > 0 {
				b.Select(columns...)
			}
			if err := q.apply(cmd, b); err != nil {
				return err
			}

			d := b.Directive()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "key:      %s\n", b.CacheKey())
			_, _ = fmt.Fprintf(w, "derived:  %s\n", b.GenerateCacheKey())
			_, _ = fmt.Fprintf(w, "sql:      %s\n", b.ToSQL())
			_, _ = fmt.Fprintf(w, "bindings: %s\n", formatBindings(b.Bindings()))
			_, _ = fmt.Fprintf(w, "duration: %s\n", d.Duration)
			_, err = fmt.Fprintf(w, "tags:     %s\n", strings.Join(d.Tags, ","))
			return err
		},
	}

	q.register(cmd)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to select (default: *)")
	return cmd
}

func newFlushCommand(root *rootFlags) *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Flush the whole cache, or only the entries of the given tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			c, err := root.openContainer(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, c.Close()) }()

			ctx := cmd.Context()
			if len(tags) > 0 {
				if err := c.Cache().FlushTags(ctx, tags...); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "flushed tags %s\n", strings.Join(tags, ","))
				return err
			}

			if err := c.Cache().Flush(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "flushed cache")
			return err
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "only invalidate entries stored under these tags")
	return cmd
}
