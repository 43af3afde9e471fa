package ingest

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/metroscore/internal/model"
)

// citiesKey is the array field read from wrapped exports such as the
// GET /v1/cities response body.
const citiesKey = "cities"

// DecodeJSONArray streams the elements of a JSON array to a channel. The
// input is either a bare array or an object whose "cities" field holds the
// array; other fields of the object are skipped. Both channels are closed
// when decoding stops and at most one error is sent.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		dec := json.NewDecoder(r)
		ok, err := seekArray(dec)
		if err != nil {
			errCh <- err
			return
		}
		if !ok {
			return
		}

		for i := 0; dec.More(); i++ {
			var item T
			if err := dec.Decode(&item); err != nil {
				errCh <- eris.Wrapf(err, "json: decode element %d", i)
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := dec.Token(); err != nil {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// seekArray positions dec just inside the record array. It reports false for
// empty input.
func seekArray(dec *json.Decoder) (bool, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "json: read opening token")
	}

	switch tok {
	case json.Delim('['):
		return true, nil
	case json.Delim('{'):
	default:
		return false, eris.Errorf("json: expected '[' or '{', got %v", tok)
	}

	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return false, eris.Wrap(err, "json: read object key")
		}
		if key != citiesKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return false, eris.Wrapf(err, "json: skip field %v", key)
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return false, eris.Wrap(err, "json: read cities")
		}
		if tok != json.Delim('[') {
			return false, eris.Errorf("json: %q must be an array", citiesKey)
		}
		return true, nil
	}
	return false, eris.Errorf("json: object has no %q array", citiesKey)
}

// ReadJSON parses city records, each {"city": {...}, "metrics": {...}}.
func ReadJSON(ctx context.Context, r io.Reader) ([]model.CityRecord, error) {
	outCh, errCh := DecodeJSONArray[model.CityRecord](ctx, r)

	var records []model.CityRecord
	for rec := range outCh {
		records = append(records, rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	for i, rec := range records {
		if rec.City.ID == "" {
			return nil, eris.Errorf("ingest: element %d: empty city id", i)
		}
	}
	return records, nil
}

func readJSONFile(ctx context.Context, path string) ([]model.CityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open json")
	}
	defer f.Close() //nolint:errcheck
	return ReadJSON(ctx, f)
}
