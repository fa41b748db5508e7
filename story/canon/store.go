package canon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	lockRetryDelay = 20 * time.Millisecond
	staleLockAge   = 2 * time.Minute
)

// Store persists the story canon as a plain text file. Writes are atomic
// (temp file + rename) and guarded by a lock file so two application
// instances editing the same story cannot interleave writes.
type Store struct {
	path     string
	lockPath string
	mu       sync.Mutex
}

// NewStore creates a file-backed canon store.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("canon: story path is required")
	}
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}, nil
}

// Path returns the underlying story file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the story file and segments it into a Canon. A missing file
// yields an empty Canon.
func (s *Store) Load(ctx context.Context) (*Canon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("canon: read %s: %w", s.path, err)
	}
	return New(SplitChunks(string(data))...), nil
}

// Save writes the full canon text to disk.
func (s *Store) Save(ctx context.Context, c *Canon) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return s.writeAtomic([]byte(c.Text()))
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmpFile, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err == nil {
		return nil
	}
	// Windows does not always allow rename-over-existing semantics.
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) acquireLock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return nil, err
	}
	for {
		lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = fmt.Fprintf(lock, "pid=%d\n", os.Getpid())
			_ = lock.Close()
			return func() {
				_ = os.Remove(s.lockPath)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		stale, staleErr := s.isLockStale()
		if staleErr == nil && stale {
			_ = os.Remove(s.lockPath)
			continue
		}
		timer := time.NewTimer(lockRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Store) isLockStale() (bool, error) {
	info, err := os.Stat(s.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return time.Since(info.ModTime()) > staleLockAge, nil
}
