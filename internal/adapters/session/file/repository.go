// Package file stores the session record in a JSON file under the user's
// config directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/incident-cli/internal/adapters/session"
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	PathKey         = "session.path"
	sessionFileMode = 0o600
	sessionDirMode  = 0o700
	sessionDir      = ".incident"
	sessionFile     = "session.json"
	tempFilePattern = ".session-*.json.tmp"
)

// Repository keeps a small key/value document on disk, the way a browser
// keeps local storage, with the session record under session.Key.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*Repository)(nil)

// DefaultPath is ~/.incident/session.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, sessionDir, sessionFile), nil
}

// NewRepository resolves the file from session.path in cfg.
func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	if cfg.GetString(PathKey) == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfg.SetDefault(PathKey, defaultPath)
	}

	return NewRepositoryAt(cfg.GetString(PathKey))
}

func NewRepositoryAt(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("session path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve session path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Repository{path: absPath, mu: lockForPath(absPath)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Load(ctx context.Context) (domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionRecord{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	store, err := r.readStore()
	if err != nil {
		return domain.SessionRecord{}, err
	}

	raw, ok := store[session.Key]
	if !ok {
		return domain.SessionRecord{}, domain.ErrNoActiveSession
	}
	return session.Decode(raw)
}

func (r *Repository) Save(ctx context.Context, record domain.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := session.Encode(record)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	store, err := r.readStore()
	if err != nil && !errors.Is(err, domain.ErrCorruptSession) {
		return err
	}
	if store == nil {
		store = map[string]json.RawMessage{}
	}
	store[session.Key] = data

	return r.writeStore(store)
}

// Delete removes the record. Deleting a missing record is not an error.
func (r *Repository) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	store, err := r.readStore()
	if err != nil {
		if errors.Is(err, domain.ErrCorruptSession) {
			return r.remove()
		}
		return err
	}
	if _, ok := store[session.Key]; !ok {
		return nil
	}
	delete(store, session.Key)

	if len(store) == 0 {
		return r.remove()
	}
	return r.writeStore(store)
}

func (r *Repository) readStore() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	store := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("%w: decode session file: %v", domain.ErrCorruptSession, err)
	}
	return store, nil
}

func (r *Repository) remove() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (r *Repository) writeStore(store map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(r.path), sessionDirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tempFile.Chmod(sessionFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	cleanup = false

	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
