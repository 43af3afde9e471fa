package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/metroscore/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas apply to every pooled connection through the modernc
// _pragma DSN parameter.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

func sqliteDSN(path string) string {
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

// NewSQLite opens the city database file at path, creating it if needed.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "sqlite: connect %s", path)
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	state      TEXT NOT NULL DEFAULT '',
	region     TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL,
	metrics    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS rankings (
	id               TEXT PRIMARY KEY,
	preferences_hash TEXT NOT NULL,
	preferences      TEXT NOT NULL,
	results          TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cities_state ON cities(state);
CREATE INDEX IF NOT EXISTS idx_rankings_hash ON rankings(preferences_hash);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCities(ctx context.Context, records []model.CityRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert cities")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cities (id, name, state, region, city, metrics, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			region = excluded.region,
			city = excluded.city,
			metrics = excluded.metrics,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert cities")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range records {
		cityJSON, metricsJSON, err := marshalRecord(r)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, r.City.ID, r.City.Name, r.City.State, r.City.Region,
			string(cityJSON), string(metricsJSON), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert city %s", r.City.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert cities")
	}
	return len(records), nil
}

func (s *SQLiteStore) ListCities(ctx context.Context, filter CityFilter) ([]model.CityRecord, error) {
	query := `SELECT city, metrics FROM cities WHERE 1=1`
	var args []any

	if len(filter.IDs) > 0 {
		query += ` AND id IN (` + placeholders(len(filter.IDs)) + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if len(filter.States) > 0 {
		query += ` AND upper(state) IN (` + placeholders(len(filter.States)) + `)`
		for _, st := range filter.States {
			args = append(args, strings.ToUpper(st))
		}
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, defaultLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cities")
	}
	defer rows.Close()

	var out []model.CityRecord
	for rows.Next() {
		var cityJSON, metricsJSON string
		if err := rows.Scan(&cityJSON, &metricsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan city")
		}
		rec, err := unmarshalRecord([]byte(cityJSON), []byte(metricsJSON))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list cities iterate")
}

func (s *SQLiteStore) GetCity(ctx context.Context, id string) (*model.CityRecord, error) {
	var cityJSON, metricsJSON string
	err := s.db.QueryRowContext(ctx, `SELECT city, metrics FROM cities WHERE id = ?`, id).
		Scan(&cityJSON, &metricsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "city %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get city %s", id)
	}
	rec, err := unmarshalRecord([]byte(cityJSON), []byte(metricsJSON))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) SaveRanking(ctx context.Context, r model.Ranking) (*model.Ranking, error) {
	r.ID = uuid.New().String()
	r.PreferencesHash = PreferencesHash(r.Preferences)
	r.CreatedAt = time.Now().UTC()

	prefsJSON, err := json.Marshal(r.Preferences)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal preferences")
	}
	resultsJSON, err := json.Marshal(r.Results)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal results")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rankings (id, preferences_hash, preferences, results, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.PreferencesHash, string(prefsJSON), string(resultsJSON), r.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert ranking")
	}
	return &r, nil
}

func (s *SQLiteStore) GetRanking(ctx context.Context, id string) (*model.Ranking, error) {
	var r model.Ranking
	var prefsJSON, resultsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, preferences_hash, preferences, results, created_at FROM rankings WHERE id = ?`, id,
	).Scan(&r.ID, &r.PreferencesHash, &prefsJSON, &resultsJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "ranking %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get ranking %s", id)
	}

	if err := json.Unmarshal([]byte(prefsJSON), &r.Preferences); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal preferences")
	}
	if err := json.Unmarshal([]byte(resultsJSON), &r.Results); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal results")
	}
	return &r, nil
}

// helpers

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func marshalRecord(r model.CityRecord) (cityJSON, metricsJSON []byte, err error) {
	cityJSON, err = json.Marshal(r.City)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "store: marshal city %s", r.City.ID)
	}
	metricsJSON, err = json.Marshal(r.Metrics)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "store: marshal metrics for %s", r.City.ID)
	}
	return cityJSON, metricsJSON, nil
}

func unmarshalRecord(cityJSON, metricsJSON []byte) (model.CityRecord, error) {
	var rec model.CityRecord
	if err := json.Unmarshal(cityJSON, &rec.City); err != nil {
		return rec, eris.Wrap(err, "store: unmarshal city")
	}
	if err := json.Unmarshal(metricsJSON, &rec.Metrics); err != nil {
		return rec, eris.Wrapf(err, "store: unmarshal metrics for %s", rec.City.ID)
	}
	return rec, nil
}
