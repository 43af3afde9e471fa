package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/metroscore/internal/ingest"
	"github.com/sells-group/metroscore/internal/model"
)

var (
	importSheet  string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import city snapshots from CSV, XLSX, or JSON into the store",
	Long: `Reads one or more city snapshot files and upserts them into the configured
store. Later files win when the same city id appears more than once.

Examples:
  import cities.csv
  import --sheet Metrics metrics.xlsx
  import --dry-run snapshot.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records, err := readSnapshots(ctx, args, importSheet)
		if err != nil {
			return err
		}

		if importDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "%d cities parsed from %d file(s)\n", len(records), len(args))
			return nil
		}

		st, err := openStore(ctx, "import")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertCities(ctx, records)
		if err != nil {
			return eris.Wrap(err, "import: upsert cities")
		}

		zap.L().Info("import complete",
			zap.Int("upserted", n),
			zap.Strings("files", args),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cities\n", n)
		return nil
	},
}

// readSnapshots reads every file and merges by city id; the last file wins.
// Output order follows first appearance.
func readSnapshots(ctx context.Context, paths []string, sheet string) ([]model.CityRecord, error) {
	var (
		out   []model.CityRecord
		index = make(map[string]int)
	)
	for _, p := range paths {
		var (
			recs []model.CityRecord
			err  error
		)
		if sheet != "" && strings.EqualFold(filepath.Ext(p), ".xlsx") {
			recs, err = ingest.ReadXLSX(p, ingest.XLSXOptions{SheetName: sheet})
		} else {
			recs, err = ingest.ReadFile(ctx, p)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "import: read %s", p)
		}
		for _, r := range recs {
			if i, ok := index[r.City.ID]; ok {
				out[i] = r
				continue
			}
			index[r.City.ID] = len(out)
			out = append(out, r)
		}
		zap.L().Debug("snapshot read", zap.String("file", p), zap.Int("cities", len(recs)))
	}
	return out, nil
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name for .xlsx files (default: first sheet)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse files without writing to the store")
	rootCmd.AddCommand(importCmd)
}
