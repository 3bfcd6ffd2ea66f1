package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/parley-ai/parley/internal/log"
)

const (
	filePrefix = "chat_history_"
	fileSuffix = ".json"
)

// Store reads and appends conversation logs under a single data
// directory. The zero value is not usable; construct with NewStore.
type Store struct {
	dir    string
	logger log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates the data directory if needed and returns a store
// rooted there.
func NewStore(dir string, logger log.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("session store: empty data directory")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// History returns the persisted turns for id in append order. A session
// that was never written is empty, not an error.
func (s *Store) History(ctx context.Context, id string) ([]Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("%w: %q", err, id)
	}
	return s.readLog(id)
}

// Append validates id, then appends turns to its log under the
// per-session locks. The full array is rewritten to a temp file, synced
// and renamed into place, so readers never observe a partial log.
func (s *Store) Append(ctx context.Context, id string, turns ...Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return fmt.Errorf("%w: %q", err, id)
	}
	if len(turns) == 0 {
		return nil
	}

	mu := s.sessionLock(id)
	mu.Lock()
	defer mu.Unlock()

	fl := flock.New(s.path(id) + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("locking session %s: %w", id, err)
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("failed to release session file lock", "session_id", id, "error", err)
		}
	}()

	existing, err := s.readLog(id)
	if err != nil {
		return err
	}

	updated := append(existing, turns...)
	if err := s.writeLog(id, updated); err != nil {
		return err
	}

	s.logger.Debug("session appended",
		"session_id", id,
		"new_turns", len(turns),
		"total_turns", len(updated))
	return nil
}

// List returns the ids of every stored session, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing session directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if validateID(id) == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// sessionLock returns the in-process mutex for id, creating it on first
// use.
func (s *Store) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	return mu
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileSuffix)
}

func (s *Store) readLog(id string) ([]Turn, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", ErrCorruptLog, id, err)
	}
	return turns, nil
}

func (s *Store) writeLog(id string, turns []Turn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(s.dir, filePrefix+id+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp log for session %s: %w", id, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing session %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session %s: %w", id, err)
	}

	if err := os.Rename(tmpName, s.path(id)); err != nil {
		return fmt.Errorf("replacing session %s: %w", id, err)
	}
	return nil
}
