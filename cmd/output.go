package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/metroscore/internal/ingest"
	"github.com/sells-group/metroscore/internal/model"
)

var titleCaser = cases.Title(language.English)

// categoryLabel turns "quality_of_life" into "Quality Of Life".
func categoryLabel(c model.Category) string {
	return titleCaser.String(strings.ReplaceAll(string(c), "_", " "))
}

func outputRanking(cmd *cobra.Command, results []model.CityScore, format, outputPath string) error {
	if format == "xlsx" {
		header, rows := rankingRows(results)
		return eris.Wrap(ingest.WriteXLSX(outputPath, "Ranking", header, rows), "rank: write xlsx")
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "rank: create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch format {
	case "csv":
		return writeRankCSV(w, results)
	case "json":
		return writeRankJSON(w, results)
	case "table":
		return writeRankTable(w, results)
	default:
		return eris.Errorf("rank: unsupported format %q", format)
	}
}

// rankingRows flattens results for csv and xlsx. Null category scores are blank.
func rankingRows(results []model.CityScore) ([]string, [][]string) {
	header := []string{"rank", "city_id", "name", "state", "total_score"}
	for _, c := range model.Categories {
		header = append(header, string(c))
	}
	header = append(header, "excluded", "exclusion_reason")

	rows := make([][]string, 0, len(results))
	for i, r := range results {
		row := []string{
			fmt.Sprintf("%d", i+1),
			r.CityID,
			r.Name,
			r.State,
			fmt.Sprintf("%.2f", r.TotalScore),
		}
		for _, c := range model.Categories {
			row = append(row, formatScore(r.Categories.Get(c), ""))
		}
		row = append(row, fmt.Sprintf("%v", r.Excluded), r.ExclusionReason)
		rows = append(rows, row)
	}
	return header, rows
}

func writeRankCSV(w io.Writer, results []model.CityScore) error {
	cw := csv.NewWriter(w)
	header, rows := rankingRows(results)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "rank: write CSV header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "rank: write CSV rows")
	}
	return nil
}

func writeRankJSON(w io.Writer, results []model.CityScore) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(results), "rank: encode json")
}

func writeRankTable(w io.Writer, results []model.CityScore) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %-28s %-5s %7s", "Rank", "City", "State", "Total")
	for _, c := range model.Categories {
		fmt.Fprintf(&b, " %8s", abbreviate(categoryLabel(c)))
	}
	b.WriteString("  Status\n")
	b.WriteString(strings.Repeat("-", 49+9*len(model.Categories)+10))
	b.WriteString("\n")

	for i, r := range results {
		name := r.Name
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		fmt.Fprintf(&b, "%-5d %-28s %-5s %7.2f", i+1, name, r.State, r.TotalScore)
		for _, c := range model.Categories {
			fmt.Fprintf(&b, " %8s", formatScore(r.Categories.Get(c), "-"))
		}
		status := "ok"
		if r.Excluded {
			status = "excluded: " + r.ExclusionReason
		}
		fmt.Fprintf(&b, "  %s\n", status)
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "rank: write table")
}

// writeExplain prints the per-category and per-metric breakdown of one city.
func writeExplain(w io.Writer, s model.CityScore) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s (%s)\n", s.Name, s.State, s.CityID)
	fmt.Fprintf(&b, "Total score: %.2f / 100\n", s.TotalScore)
	if s.Excluded {
		fmt.Fprintf(&b, "Excluded:    %s\n", s.ExclusionReason)
	}

	for _, bd := range s.Breakdown {
		fmt.Fprintf(&b, "\n%s: %s (weight %.0f%%)", categoryLabel(bd.Category), formatScore(bd.Score, "no data"), bd.Weight*100)
		if bd.Bonus != nil {
			fmt.Fprintf(&b, " incl. minority bonus %+.2f", *bd.Bonus)
		}
		b.WriteString("\n")
		for _, m := range bd.Metrics {
			flag := ""
			if m.LowConfidence {
				flag = " (low confidence)"
			}
			fmt.Fprintf(&b, "  %-36s raw %12s  score %7s  weight %5.1f%%%s\n",
				m.Label, formatRaw(m.Raw), formatScore(m.Score, "-"), m.EffectiveWeight*100, flag)
		}
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "rank: write explanation")
}

func formatScore(v *float64, missing string) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatRaw(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.4g", *v)
}

// abbreviate keeps table columns narrow: "Quality Of Life" -> "QoL".
func abbreviate(label string) string {
	words := strings.Fields(label)
	if len(words) == 1 {
		if len(label) > 8 {
			return label[:8]
		}
		return label
	}
	var b strings.Builder
	for i, w := range words {
		if i > 0 && len(w) <= 2 {
			b.WriteString(strings.ToLower(w[:1]))
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
	}
	return b.String()
}
