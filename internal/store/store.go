// Package store persists which studies have already triggered an alert.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spp-monitor/internal/config"
	"github.com/sells-group/spp-monitor/internal/model"
)

// Store is the durable seen-study record. Implementations load state at
// construction and persist on every mutating call. Missing or corrupt state
// recovers to empty with a logged warning; losing history is acceptable,
// crashing is not. Identities are append-only: once written they are
// removed only by Clear.
type Store interface {
	// IsNew reports whether the study's identity has never been recorded.
	IsNew(ctx context.Context, study model.Study) (bool, error)

	// FindNew filters studies to the not-yet-seen subset, preserving input
	// order. Reading never mutates state.
	FindNew(ctx context.Context, studies []model.Study) ([]model.Study, error)

	// MarkSeen records each study with a first-seen timestamp, refreshes the
	// last-check timestamp, and persists. Already-present identities keep
	// their original first-seen time.
	MarkSeen(ctx context.Context, studies []model.Study) error

	// UpdateLastCheck persists only the last-check timestamp, so a cycle
	// that saw nothing new is still distinguishable from never checking.
	UpdateLastCheck(ctx context.Context) error

	// Clear resets the store to empty and persists. Irreversible.
	Clear(ctx context.Context) error

	SeenCount(ctx context.Context) (int, error)
	LastCheck(ctx context.Context) (string, error)
	Close() error
}

// New constructs the backend selected by the config.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFile(cfg.Path), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
