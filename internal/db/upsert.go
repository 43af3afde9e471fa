package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig names the target of a BulkUpsert.
type UpsertConfig struct {
	Table        string   // may be schema-qualified
	Columns      []string // column order of each row
	ConflictKeys []string // unique key of Table
	UpdateCols   []string // overwritten on conflict; nil means every non-key column
}

// upsertPlan is the SQL for one BulkUpsert, built before the transaction
// opens.
type upsertPlan struct {
	stage  pgx.Identifier
	create string
	dedup  string
	merge  string
}

func planUpsert(cfg UpsertConfig) (upsertPlan, error) {
	if len(cfg.Columns) == 0 {
		return upsertPlan{}, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return upsertPlan{}, eris.New("db: upsert: no conflict keys specified")
	}

	stage := pgx.Identifier{stagingTable(cfg.Table)}
	st := stage.Sanitize()
	target := identifier(cfg.Table).Sanitize()
	cols := quoteAndJoin(cfg.Columns)

	// Rows repeating a key collapse onto the last one copied, since
	// ON CONFLICT cannot update the same target row twice.
	same := make([]string, len(cfg.ConflictKeys))
	for i, k := range cfg.ConflictKeys {
		q := pgx.Identifier{k}.Sanitize()
		same[i] = "older." + q + " = newer." + q
	}

	action := "DO NOTHING"
	if set := updateList(cfg); len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}

	return upsertPlan{
		stage:  stage,
		create: fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", st, target),
		dedup: fmt.Sprintf("DELETE FROM %s older USING %s newer WHERE older.ctid < newer.ctid AND %s",
			st, st, strings.Join(same, " AND ")),
		merge: fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
			target, cols, cols, st, quoteAndJoin(cfg.ConflictKeys), action),
	}, nil
}

func updateList(cfg UpsertConfig) []string {
	cols := cfg.UpdateCols
	if cols == nil {
		for _, c := range cfg.Columns {
			key := false
			for _, k := range cfg.ConflictKeys {
				key = key || k == c
			}
			if !key {
				cols = append(cols, c)
			}
		}
	}
	set := make([]string, len(cols))
	for i, c := range cols {
		q := pgx.Identifier{c}.Sanitize()
		set[i] = q + " = EXCLUDED." + q
	}
	return set
}

// BulkUpsert stages rows in a temp table with COPY and merges them into
// cfg.Table in a single transaction. It returns the rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	plan, err := planUpsert(cfg)
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, plan.create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: stage", cfg.Table)
	}
	if _, err := tx.CopyFrom(ctx, plan.stage, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: copy", cfg.Table)
	}
	if _, err := tx.Exec(ctx, plan.dedup); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: dedup", cfg.Table)
	}
	tag, err := tx.Exec(ctx, plan.merge)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func stagingTable(table string) string {
	return "stage_" + strings.ReplaceAll(table, ".", "_")
}

// identifier splits a possibly schema-qualified table name.
func identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
