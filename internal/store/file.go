package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spp-monitor/internal/model"
)

// FileStore keeps the seen set in a single JSON document, loaded once at
// construction and rewritten whole on every mutation. The flush goes
// through a temp file and rename so a crash mid-write never truncates the
// state.
type FileStore struct {
	path  string
	state model.StoreState
}

// NewFile opens (or initializes) the state file at path.
func NewFile(path string) *FileStore {
	f := &FileStore{
		path:  path,
		state: emptyState(),
	}
	f.load()
	return f
}

func emptyState() model.StoreState {
	return model.StoreState{Seen: make(map[string]model.SeenRecord)}
}

func (f *FileStore) load() {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Info("store: no existing state, starting fresh", zap.String("path", f.path))
		return
	}
	if err != nil {
		zap.L().Warn("store: state file unreadable, starting fresh",
			zap.String("path", f.path),
			zap.Error(err),
		)
		return
	}

	var state model.StoreState
	if err := json.Unmarshal(data, &state); err != nil {
		zap.L().Warn("store: state file corrupt, starting fresh",
			zap.String("path", f.path),
			zap.Error(err),
		)
		return
	}
	if state.Seen == nil {
		state.Seen = make(map[string]model.SeenRecord)
	}
	f.state = state
	zap.L().Info("store: loaded seen studies",
		zap.String("path", f.path),
		zap.Int("count", len(state.Seen)),
	)
}

func (f *FileStore) flush() error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "store: create directory %s", dir)
		}
	}

	data, err := json.MarshalIndent(f.state, "", "  ")
	if err != nil {
		return eris.Wrap(err, "store: marshal state")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "store: write %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return eris.Wrapf(err, "store: rename %s", tmp)
	}
	return nil
}

func (f *FileStore) IsNew(_ context.Context, study model.Study) (bool, error) {
	_, seen := f.state.Seen[study.Identity()]
	return !seen, nil
}

func (f *FileStore) FindNew(_ context.Context, studies []model.Study) ([]model.Study, error) {
	var fresh []model.Study
	for _, s := range studies {
		if _, seen := f.state.Seen[s.Identity()]; !seen {
			fresh = append(fresh, s)
		}
	}
	zap.L().Info("store: diffed studies",
		zap.Int("new", len(fresh)),
		zap.Int("total", len(studies)),
	)
	return fresh, nil
}

func (f *FileStore) MarkSeen(_ context.Context, studies []model.Study) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, s := range studies {
		id := s.Identity()
		if _, seen := f.state.Seen[id]; seen {
			continue
		}
		f.state.Seen[id] = model.SeenRecord{FirstSeen: now, Study: s}
	}
	f.state.LastCheck = now
	return f.flush()
}

func (f *FileStore) UpdateLastCheck(_ context.Context) error {
	f.state.LastCheck = time.Now().UTC().Format(time.RFC3339)
	return f.flush()
}

func (f *FileStore) Clear(_ context.Context) error {
	f.state = emptyState()
	return f.flush()
}

func (f *FileStore) SeenCount(_ context.Context) (int, error) {
	return len(f.state.Seen), nil
}

func (f *FileStore) LastCheck(_ context.Context) (string, error) {
	return f.state.LastCheck, nil
}

func (f *FileStore) Close() error { return nil }
