package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/metroscore/internal/ingest"
	"github.com/sells-group/metroscore/internal/model"
	"github.com/sells-group/metroscore/internal/store"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List cities in the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		states, _ := cmd.Flags().GetString("states")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		st, err := openStore(ctx, "rank")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.ListCities(ctx, store.CityFilter{States: splitAndTrim(states), Limit: limit})
		if err != nil {
			return eris.Wrap(err, "cities: list")
		}

		w := cmd.OutOrStdout()
		switch format {
		case "table":
			formatCitiesList(w, records)
			return nil
		case "csv":
			return ingest.WriteCSV(w, records)
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(records), "cities: encode json")
		}
		return eris.Errorf("cities: --format must be table, csv, or json (got %q)", format)
	},
}

func formatCitiesList(w io.Writer, records []model.CityRecord) {
	fmt.Fprintf(w, "%-24s %-28s %-5s %-7s %s\n", "ID", "NAME", "STATE", "AIRPORT", "TEAMS")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range records {
		airport := "no"
		if r.City.HasMajorAirport {
			airport = "yes"
		}
		leagues := make([]string, 0, len(r.City.Teams))
		for _, t := range r.City.Teams {
			leagues = append(leagues, t.League)
		}
		fmt.Fprintf(w, "%-24s %-28s %-5s %-7s %s\n", r.City.ID, r.City.Name, r.City.State, airport, strings.Join(leagues, ","))
	}
	fmt.Fprintf(w, "\n%d cities\n", len(records))
}

func init() {
	f := citiesCmd.Flags()
	f.String("states", "", "comma-separated state codes")
	f.Int("limit", 0, "maximum number of cities (0=store default)")
	f.String("format", "table", "output format: table, csv, or json")
	rootCmd.AddCommand(citiesCmd)
}
