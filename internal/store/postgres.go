package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/metroscore/internal/config"
	"github.com/sells-group/metroscore/internal/db"
	"github.com/sells-group/metroscore/internal/model"
	"github.com/sells-group/metroscore/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"get_city":        `SELECT city, metrics FROM cities WHERE id = $1`,
	"insert_ranking":  `INSERT INTO rankings (id, preferences_hash, preferences, created_at) VALUES ($1, $2, $3, $4)`,
	"get_ranking":     `SELECT id, preferences_hash, preferences, created_at FROM rankings WHERE id = $1`,
	"ranking_results": `SELECT result FROM ranking_results WHERE ranking_id = $1 ORDER BY position`,
}

var cityColumns = []string{"id", "name", "state", "region", "city", "metrics", "updated_at"}

var rankingResultColumns = []string{"ranking_id", "position", "city_id", "total_score", "excluded", "result"}

// Pool sizing used when StoreConfig leaves a bound at zero.
const (
	defaultMaxConns = 10
	defaultMinConns = 2
)

// NewPostgres connects to cfg.DatabaseURL, preparing the store's statements on
// every new connection. The initial connect is retried while the server is
// unreachable.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse database url")
	}
	pc.MaxConns = cmp.Or(max(cfg.MaxConns, 0), defaultMaxConns)
	pc.MinConns = min(cmp.Or(max(cfg.MinConns, 0), defaultMinConns), pc.MaxConns)
	pc.MaxConnLifetime = 30 * time.Minute
	pc.MaxConnIdleTime = 5 * time.Minute
	pc.AfterConnect = prepareStatements

	var pool *pgxpool.Pool
	retry := resilience.ConnectPolicy()
	retry.Notify = resilience.LogRetries(zap.L(), "postgres connect")
	err = retry.Run(ctx, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, pc)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

func prepareStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range preparedStatements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return eris.Wrapf(err, "postgres: prepare %s", name)
		}
	}
	return nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	state      TEXT NOT NULL DEFAULT '',
	region     TEXT NOT NULL DEFAULT '',
	city       JSONB NOT NULL,
	metrics    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cities_state ON cities(upper(state));

CREATE TABLE IF NOT EXISTS rankings (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	preferences_hash TEXT NOT NULL,
	preferences      JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rankings_hash ON rankings(preferences_hash);

CREATE TABLE IF NOT EXISTS ranking_results (
	ranking_id  TEXT NOT NULL REFERENCES rankings(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	city_id     TEXT NOT NULL,
	total_score DOUBLE PRECISION NOT NULL,
	excluded    BOOLEAN NOT NULL DEFAULT false,
	result      JSONB NOT NULL,
	PRIMARY KEY (ranking_id, position)
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertCities(ctx context.Context, records []model.CityRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		cityJSON, metricsJSON, err := marshalRecord(r)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{r.City.ID, r.City.Name, r.City.State, r.City.Region, cityJSON, metricsJSON, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "cities",
		Columns:      cityColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert cities")
	}

	zap.L().Info("postgres: upserted cities", zap.Int64("rows", n))
	return int(n), nil
}

func (s *PostgresStore) ListCities(ctx context.Context, filter CityFilter) ([]model.CityRecord, error) {
	query := `SELECT city, metrics FROM cities WHERE true`
	args := []any{}
	argIdx := 1

	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(` AND id = ANY($%d)`, argIdx)
		args = append(args, filter.IDs)
		argIdx++
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, st := range filter.States {
			states[i] = strings.ToUpper(st)
		}
		query += fmt.Sprintf(` AND upper(state) = ANY($%d)`, argIdx)
		args = append(args, states)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, argIdx)
	args = append(args, defaultLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cities")
	}
	defer rows.Close()

	var out []model.CityRecord
	for rows.Next() {
		var cityJSON, metricsJSON []byte
		if err := rows.Scan(&cityJSON, &metricsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city")
		}
		rec, err := unmarshalRecord(cityJSON, metricsJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list cities iterate")
}

func (s *PostgresStore) GetCity(ctx context.Context, id string) (*model.CityRecord, error) {
	var cityJSON, metricsJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT city, metrics FROM cities WHERE id = $1`, id).
		Scan(&cityJSON, &metricsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "city %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get city %s", id)
	}
	rec, err := unmarshalRecord(cityJSON, metricsJSON)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveRanking writes the ranking header and COPYs one row per result in a
// single transaction.
func (s *PostgresStore) SaveRanking(ctx context.Context, r model.Ranking) (*model.Ranking, error) {
	r.ID = uuid.New().String()
	r.PreferencesHash = PreferencesHash(r.Preferences)
	r.CreatedAt = time.Now().UTC()

	prefsJSON, err := json.Marshal(r.Preferences)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal preferences")
	}

	rows := make([][]any, len(r.Results))
	for i, res := range r.Results {
		resJSON, err := json.Marshal(res)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal result for %s", res.CityID)
		}
		rows[i] = []any{r.ID, i + 1, res.CityID, res.TotalScore, res.Excluded, resJSON}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin save ranking")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO rankings (id, preferences_hash, preferences, created_at) VALUES ($1, $2, $3, $4)`,
		r.ID, r.PreferencesHash, prefsJSON, r.CreatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: insert ranking")
	}

	if _, err := db.CopyFrom(ctx, tx, "ranking_results", rankingResultColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy ranking results")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit ranking")
	}

	zap.L().Info("postgres: saved ranking",
		zap.String("ranking_id", r.ID),
		zap.Int("results", len(r.Results)),
	)
	return &r, nil
}

func (s *PostgresStore) GetRanking(ctx context.Context, id string) (*model.Ranking, error) {
	var r model.Ranking
	var prefsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, preferences_hash, preferences, created_at FROM rankings WHERE id = $1`, id,
	).Scan(&r.ID, &r.PreferencesHash, &prefsJSON, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "ranking %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get ranking %s", id)
	}
	if err := json.Unmarshal(prefsJSON, &r.Preferences); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal preferences")
	}

	rows, err := s.pool.Query(ctx, `SELECT result FROM ranking_results WHERE ranking_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query ranking results %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var resJSON []byte
		if err := rows.Scan(&resJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ranking result")
		}
		var cs model.CityScore
		if err := json.Unmarshal(resJSON, &cs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal ranking result")
		}
		r.Results = append(r.Results, cs)
	}
	return &r, eris.Wrap(rows.Err(), "postgres: ranking results iterate")
}
