package ingest

import (
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/metroscore/internal/model"
)

// CSVOptions tunes StreamCSV. The zero value reads plain comma-separated
// rows with ragged lengths allowed.
type CSVOptions struct {
	Delimiter rune // ',' when zero
	Comment   rune // lines starting with it are skipped; zero disables
	TrimSpace bool
}

func (o CSVOptions) reader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = cmp.Or(o.Delimiter, ',')
	cr.Comment = o.Comment
	cr.FieldsPerRecord = -1
	return cr
}

// StreamCSV sends each row of r to the returned channel from a background
// goroutine. Both channels close when the input ends or ctx is done; at most
// one error is sent.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rows := make(chan []string, 64)
	errs := make(chan error, 1)
	cr := opts.reader(r)

	go func() {
		defer close(errs)
		defer close(rows)

		for n := 1; ; n++ {
			if err := ctx.Err(); err != nil {
				errs <- eris.Wrap(err, "csv: context cancelled")
				return
			}
			row, err := cr.Read()
			switch {
			case errors.Is(err, io.EOF):
				return
			case err != nil:
				errs <- eris.Wrapf(err, "csv: read record %d", n)
				return
			}
			if opts.TrimSpace {
				for i := range row {
					row[i] = strings.TrimSpace(row[i])
				}
			}

			select {
			case rows <- row:
			case <-ctx.Done():
				errs <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rows, errs
}

// ReadCSV parses a city CSV whose first non-comment row is the header.
// Lines starting with '#' are ignored.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.CityRecord, error) {
	rows, errs := StreamCSV(ctx, r, CSVOptions{Comment: '#', TrimSpace: true})

	var (
		cm       *columnMap
		records  []model.CityRecord
		firstErr error
		line     int
	)
	for row := range rows {
		line++
		switch {
		case firstErr != nil:
			// keep draining so StreamCSV can exit
		case cm == nil:
			cm, firstErr = newColumnMap(row)
		default:
			rec, err := cm.record(row, line)
			if err != nil {
				firstErr = err
				continue
			}
			records = append(records, rec)
		}
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if cm == nil {
		return nil, eris.New("ingest: csv is empty")
	}
	return records, nil
}

func readCSVFile(ctx context.Context, path string) ([]model.CityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(ctx, f)
}

// WriteCSV writes records with the canonical header.
func WriteCSV(w io.Writer, records []model.CityRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, rec := range records {
		if err := cw.Write(Row(rec)); err != nil {
			return eris.Wrapf(err, "csv: write row %s", rec.City.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}
