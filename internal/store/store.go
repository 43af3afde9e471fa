// Package store persists city reference data, metric snapshots, and saved
// rankings. SQLite serves single-user CLI use; Postgres serves the API.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/metroscore/internal/config"
	"github.com/sells-group/metroscore/internal/model"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = eris.New("store: not found")

// CityFilter narrows ListCities. Empty slices match everything.
type CityFilter struct {
	IDs    []string `json:"ids,omitempty"`
	States []string `json:"states,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

// Store defines the persistence interface for cities and rankings.
type Store interface {
	// Cities
	UpsertCities(ctx context.Context, records []model.CityRecord) (int, error)
	ListCities(ctx context.Context, filter CityFilter) ([]model.CityRecord, error)
	GetCity(ctx context.Context, id string) (*model.CityRecord, error)

	// Rankings
	SaveRanking(ctx context.Context, r model.Ranking) (*model.Ranking, error)
	GetRanking(ctx context.Context, id string) (*model.Ranking, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg)
	}
	return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
}

// PreferencesHash returns a short SHA-256 of the preferences' JSON form, so
// rankings produced under identical preferences can be grouped.
func PreferencesHash(p model.Preferences) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16])
}

func defaultLimit(n int) int {
	if n <= 0 {
		return 1000
	}
	return n
}
