package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwhitton/chattersignal/internal/ingest"
)

func ingestCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load normalized comment records from JSONL",
		Long: `Reads one JSON comment record per line and upserts them into the store.
Re-ingesting the same records is safe: only engagement metrics are refreshed.
Reads stdin unless --file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("ingest: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			var in io.Reader = os.Stdin
			if file != "" {
				f, openErr := os.Open(file)
				if openErr != nil {
					return fmt.Errorf("ingest: opening %s: %w", file, openErr)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			loader := ingest.NewLoader(st, logger)
			loaded, err := loader.LoadJSONL(ctx, in, cfg.Enrich.BatchSize)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("Ingested %d comments\n", loaded)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSONL file to read (default: stdin)")
	return cmd
}
