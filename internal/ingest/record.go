// Package ingest loads city reference data and metric snapshots from CSV,
// XLSX, and JSON files.
//
// Tabular files carry one city per row. Recognized columns are id, name,
// state, region, teams, has_major_airport, plus any metric field key such as
// "cost.rpp_all" (see model.Fields). A blank metric cell is unknown, never
// zero. Teams are written "NFL:Broncos;NBA:Nuggets"; "none" records a city
// with no major-league teams, while a blank cell leaves them unknown.
package ingest

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/metroscore/internal/model"
)

const (
	colID      = "id"
	colName    = "name"
	colState   = "state"
	colRegion  = "region"
	colTeams   = "teams"
	colAirport = "has_major_airport"

	noTeams = "none"
)

// ReadFile picks a reader by file extension.
func ReadFile(ctx context.Context, path string) ([]model.CityRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSVFile(ctx, path)
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	case ".json":
		return readJSONFile(ctx, path)
	}
	return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
}

// columnMap resolves header cells to setters once per file.
type columnMap struct {
	header []string
	fields map[int]model.Field
	index  map[string]int
}

func newColumnMap(header []string) (*columnMap, error) {
	cm := &columnMap{
		header: header,
		fields: make(map[int]model.Field),
		index:  make(map[string]int),
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		switch key {
		case colID, colName, colState, colRegion, colTeams, colAirport:
			cm.index[key] = i
			continue
		}
		if f, ok := model.LookupField(key); ok {
			cm.fields[i] = f
			continue
		}
		if key != "" {
			zap.L().Warn("ingest: ignoring unknown column", zap.String("column", h))
		}
	}
	if _, ok := cm.index[colID]; !ok {
		return nil, eris.New("ingest: header has no id column")
	}
	if _, ok := cm.index[colName]; !ok {
		return nil, eris.New("ingest: header has no name column")
	}
	return cm, nil
}

func (cm *columnMap) cell(row []string, col string) string {
	i, ok := cm.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// record converts one data row. line is the 1-based source line for errors.
func (cm *columnMap) record(row []string, line int) (model.CityRecord, error) {
	var rec model.CityRecord

	rec.City.ID = cm.cell(row, colID)
	if rec.City.ID == "" {
		return rec, eris.Errorf("ingest: row %d: empty id", line)
	}
	rec.City.Name = cm.cell(row, colName)
	rec.City.State = cm.cell(row, colState)
	rec.City.Region = cm.cell(row, colRegion)
	rec.City.Teams, rec.City.TeamsKnown = parseTeams(cm.cell(row, colTeams))

	if v := cm.cell(row, colAirport); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return rec, eris.Errorf("ingest: row %d column %s: invalid boolean %q", line, colAirport, v)
		}
		rec.City.HasMajorAirport = b
	}

	for i, f := range cm.fields {
		if i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil {
			return rec, eris.Errorf("ingest: row %d column %s: invalid number %q", line, cm.header[i], v)
		}
		f.Set(&rec.Metrics, &n)
	}
	return rec, nil
}

// parseTeams reads "League:Name;League:Name". A bare league is allowed.
// known is true only for the explicit "none" marker; a listed team already
// makes the count known.
func parseTeams(s string) (teams []model.Team, known bool) {
	if strings.EqualFold(s, noTeams) {
		return nil, true
	}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		league, name, _ := strings.Cut(part, ":")
		teams = append(teams, model.Team{
			League: strings.ToUpper(strings.TrimSpace(league)),
			Name:   strings.TrimSpace(name),
		})
	}
	return teams, false
}

// FormatTeams is the inverse of parseTeams.
func FormatTeams(c model.City) string {
	if len(c.Teams) == 0 && c.TeamsKnown {
		return noTeams
	}
	teams := c.Teams
	parts := make([]string, len(teams))
	for i, t := range teams {
		if t.Name == "" {
			parts[i] = t.League
			continue
		}
		parts[i] = t.League + ":" + t.Name
	}
	return strings.Join(parts, ";")
}

// Header returns the canonical column order for exports.
func Header() []string {
	h := []string{colID, colName, colState, colRegion, colTeams, colAirport}
	for _, f := range model.Fields {
		h = append(h, f.Key)
	}
	return h
}

// Row renders rec in Header order. Unknown metrics are blank.
func Row(rec model.CityRecord) []string {
	row := []string{
		rec.City.ID,
		rec.City.Name,
		rec.City.State,
		rec.City.Region,
		FormatTeams(rec.City),
		strconv.FormatBool(rec.City.HasMajorAirport),
	}
	for _, f := range model.Fields {
		v := f.Get(&rec.Metrics)
		if v == nil {
			row = append(row, "")
			continue
		}
		row = append(row, strconv.FormatFloat(*v, 'f', -1, 64))
	}
	return row
}
