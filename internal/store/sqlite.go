package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/spp-monitor/internal/model"
)

// SQLiteStore implements Store on modernc.org/sqlite, for operators who
// track enough history that rewriting one JSON document per cycle gets
// uncomfortable. The contract is identical to FileStore.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS seen_studies (
	identity   TEXT PRIMARY KEY,
	first_seen TEXT NOT NULL,
	study      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS monitor_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const lastCheckKey = "last_check"

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. The parent directory is created if absent.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "store: create directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "store: migrate sqlite")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) IsNew(ctx context.Context, study model.Study) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM seen_studies WHERE identity = ?`, study.Identity(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "store: query seen")
	}
	return false, nil
}

func (s *SQLiteStore) FindNew(ctx context.Context, studies []model.Study) ([]model.Study, error) {
	var fresh []model.Study
	for _, st := range studies {
		isNew, err := s.IsNew(ctx, st)
		if err != nil {
			return nil, err
		}
		if isNew {
			fresh = append(fresh, st)
		}
	}
	return fresh, nil
}

func (s *SQLiteStore) MarkSeen(ctx context.Context, studies []model.Study) error {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, st := range studies {
		payload, err := json.Marshal(st)
		if err != nil {
			return eris.Wrap(err, "store: marshal study")
		}
		// OR IGNORE keeps the original first_seen for re-marked identities.
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO seen_studies (identity, first_seen, study) VALUES (?, ?, ?)`,
			st.Identity(), now, string(payload),
		); err != nil {
			return eris.Wrap(err, "store: insert seen")
		}
	}
	if err := setMeta(ctx, tx, lastCheckKey, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "store: commit tx")
	}
	return nil
}

func (s *SQLiteStore) UpdateLastCheck(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return setMeta(ctx, s.db, lastCheckKey, now)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_studies`); err != nil {
		return eris.Wrap(err, "store: clear seen")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM monitor_meta`); err != nil {
		return eris.Wrap(err, "store: clear meta")
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "store: commit tx")
	}
	return nil
}

func (s *SQLiteStore) SeenCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_studies`,
	).Scan(&count); err != nil {
		return 0, eris.Wrap(err, "store: count seen")
	}
	return count, nil
}

func (s *SQLiteStore) LastCheck(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM monitor_meta WHERE key = ?`, lastCheckKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "store: query last check")
	}
	return value, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// execer covers both *sql.DB and *sql.Tx for the meta upsert.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setMeta(ctx context.Context, db execer, key, value string) error {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO monitor_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return eris.Wrapf(err, "store: set meta %s", key)
	}
	return nil
}
