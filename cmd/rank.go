package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/metroscore/internal/model"
	"github.com/sells-group/metroscore/internal/scoring"
	"github.com/sells-group/metroscore/internal/store"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank cities against a preference profile",
	Long: `Scores every city against the given preferences and prints them ranked.

Cities come from a snapshot file (--snapshot) or the configured store. The
national reference is computed from exactly the cities being ranked, so
--cities and --states change the 50-point anchor.

Examples:
  # Equal weights, renter, from the store
  rank

  # Profile from a YAML file, top 10 as a table
  rank --prefs me.yaml --top 10

  # Rank a snapshot and export to a workbook
  rank --snapshot cities.csv --format xlsx --output ranking.xlsx

  # Explain one city's score
  rank --prefs me.yaml --explain denver-co

  # Save the ranking to the store
  rank --prefs me.yaml --save`,
	RunE: runRank,
}

func init() {
	f := rankCmd.Flags()
	f.String("prefs", "", "preferences file (YAML or JSON); default equal weights")
	f.String("snapshot", "", "read cities from a CSV, XLSX, or JSON file instead of the store")
	f.String("cities", "", "comma-separated city ids to rank")
	f.String("states", "", "comma-separated state codes to rank")
	f.Int("top", 0, "maximum number of rows to print (0=all)")
	f.String("format", "table", "output format: table, csv, json, or xlsx")
	f.String("output", "", "output file path (default: stdout; required for xlsx)")
	f.String("explain", "", "print the score breakdown for one city id")
	f.Bool("save", false, "save the ranking to the store")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("rank"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "rank"))

	prefsPath, _ := cmd.Flags().GetString("prefs")
	snapshot, _ := cmd.Flags().GetString("snapshot")
	citiesFlag, _ := cmd.Flags().GetString("cities")
	statesFlag, _ := cmd.Flags().GetString("states")
	top, _ := cmd.Flags().GetInt("top")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	explain, _ := cmd.Flags().GetString("explain")
	save, _ := cmd.Flags().GetBool("save")

	switch format {
	case "table", "csv", "json":
	case "xlsx":
		if outputPath == "" {
			return eris.New("rank: --output is required for xlsx")
		}
	default:
		return eris.Errorf("rank: --format must be table, csv, json, or xlsx (got %q)", format)
	}
	if top < 0 {
		return eris.Errorf("rank: --top must be >= 0 (got %d)", top)
	}

	prefs, err := loadPreferences(prefsPath)
	if err != nil {
		return err
	}

	filter := store.CityFilter{IDs: splitAndTrim(citiesFlag), States: splitAndTrim(statesFlag)}

	var st store.Store
	if snapshot == "" || save {
		st, err = openStore(ctx, "rank")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
	}

	records, err := loadRecords(ctx, st, snapshot, filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return eris.New("rank: no cities to rank")
	}

	results, err := scoring.NewEngine(cfg.Scoring).Score(records, prefs)
	if err != nil {
		return eris.Wrap(err, "rank")
	}

	log.Info("ranking complete",
		zap.Int("cities", len(results)),
		zap.String("preferences_hash", store.PreferencesHash(prefs)),
	)

	if explain != "" {
		for _, r := range results {
			if r.CityID == explain {
				return writeExplain(cmd.OutOrStdout(), r)
			}
		}
		return eris.Errorf("rank: city %q is not in the ranking", explain)
	}

	if save {
		saved, err := st.SaveRanking(ctx, model.Ranking{Preferences: prefs, Results: results})
		if err != nil {
			return eris.Wrap(err, "rank: save")
		}
		log.Info("ranking saved", zap.String("ranking_id", saved.ID))
	}

	shown := results
	if top > 0 && top < len(shown) {
		shown = shown[:top]
	}
	return outputRanking(cmd, shown, format, outputPath)
}

// loadPreferences reads a YAML or JSON preference file. An empty path yields
// the defaults.
func loadPreferences(path string) (model.Preferences, error) {
	if path == "" {
		return model.DefaultPreferences(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Preferences{}, eris.Wrapf(err, "rank: read preferences %s", path)
	}

	var p model.Preferences
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return model.Preferences{}, eris.Wrapf(err, "rank: parse preferences %s", path)
	}

	p = p.WithDefaults()
	if err := scoring.ValidatePreferences(p); err != nil {
		return model.Preferences{}, err
	}
	return p, nil
}

// loadRecords reads from the snapshot file when set, else from the store.
func loadRecords(ctx context.Context, st store.Store, snapshot string, filter store.CityFilter) ([]model.CityRecord, error) {
	if snapshot == "" {
		recs, err := st.ListCities(ctx, filter)
		return recs, eris.Wrap(err, "rank: list cities")
	}

	recs, err := readSnapshots(ctx, []string{snapshot}, "")
	if err != nil {
		return nil, err
	}
	return filterRecords(recs, filter), nil
}

// filterRecords applies a CityFilter in memory with the store's semantics.
func filterRecords(recs []model.CityRecord, filter store.CityFilter) []model.CityRecord {
	if len(filter.IDs) == 0 && len(filter.States) == 0 {
		return recs
	}
	ids := make(map[string]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = true
	}
	states := make(map[string]bool, len(filter.States))
	for _, s := range filter.States {
		states[strings.ToUpper(s)] = true
	}

	var out []model.CityRecord
	for _, r := range recs {
		if len(ids) > 0 && !ids[r.City.ID] {
			continue
		}
		if len(states) > 0 && !states[strings.ToUpper(r.City.State)] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
