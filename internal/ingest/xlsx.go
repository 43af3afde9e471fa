package ingest

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/metroscore/internal/model"
)

// XLSXOptions selects the worksheet holding the city table.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX parses a city worksheet whose first row is the header. Fully
// blank rows are skipped.
func ReadXLSX(path string, opts XLSXOptions) ([]model.CityRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var (
		cm      *columnMap
		records []model.CityRecord
	)
	for i, row := range sheet.Rows {
		cells := cellText(row)
		if blank(cells) {
			continue
		}
		if cm == nil {
			cm, err = newColumnMap(cells)
			if err != nil {
				return nil, err
			}
			continue
		}
		rec, err := cm.record(cells, i+1)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if cm == nil {
		return nil, eris.New("ingest: worksheet is empty")
	}
	return records, nil
}

// WriteXLSX saves records as a single-sheet workbook with the canonical header.
func WriteXLSX(path, sheetName string, header []string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}
	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, r := range rows {
		xr := sheet.AddRow()
		for _, v := range r {
			xr.AddCell().SetString(v)
		}
	}
	return eris.Wrap(f.Save(path), "xlsx: save")
}

// pickSheet finds the city worksheet. Names match case-insensitively so
// "Cities" and "cities" exports both load.
func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName == "" {
		if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
			return nil, eris.Errorf("xlsx: sheet index %d out of range (workbook has %d)", opts.SheetIndex, len(f.Sheets))
		}
		return f.Sheets[opts.SheetIndex], nil
	}
	for _, sh := range f.Sheets {
		if strings.EqualFold(sh.Name, opts.SheetName) {
			return sh, nil
		}
	}
	return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
}

func cellText(row *xlsx.Row) []string {
	out := make([]string, 0, len(row.Cells))
	for _, c := range row.Cells {
		out = append(out, strings.TrimSpace(c.String()))
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
