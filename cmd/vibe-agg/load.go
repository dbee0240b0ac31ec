package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-agg/internal/duckdb"
)

func newLoadCmd(a *app) *cobra.Command {
	var clearCache bool

	cmd := &cobra.Command{
		Use:   "load <file.ndjson>",
		Short: "Load NDJSON documents into the DuckDB backend",
		Long: `Load newline-delimited JSON documents into the DuckDB database at duckdb.path.
Each line is {"index": "...", "id": "...", "source": {...}}; the id defaults to
the source's variant_id, gene_id or transcript_id. Documents replace those with
the same index and id. Use '-' to read stdin.`,
		Example: `  vibe-agg load gnomad_exomes_r2_1.ndjson
  zcat genes.ndjson.gz | vibe-agg load -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = a.stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			path := a.v.GetString(duckdbPathKey)
			store, err := duckdb.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			store.SetLogger(a.logger)

			start := time.Now()
			n, err := store.LoadNDJSON(cmd.Context(), r)
			if err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}
			if clearCache {
				if err := store.ClearCache(); err != nil {
					return fmt.Errorf("clearing cache: %w", err)
				}
			}

			a.logger.Info("loaded documents",
				zap.Int("count", n),
				zap.String("database", path),
				zap.Duration("elapsed", time.Since(start)))
			fmt.Fprintf(a.stdout, "Loaded %d documents into %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearCache, "clear-cache", true, "clear cached results stored in the same database")
	return cmd
}
