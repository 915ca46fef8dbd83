package tokencache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/giantswarm/azauth/pkg/logging"
)

// DefaultCacheFile is the cache file location relative to the user's home directory.
const DefaultCacheFile = ".config/azauth/tokencache.json"

// FileStore persists a Cache to a JSON file shared between processes.
//
// Security properties:
//   - The directory is created with 0700 and the file with 0600 permissions
//   - Every read and write happens under an exclusive advisory lock on a sibling .lock file
//   - Writes go to a temporary file that is renamed over the cache file, so a crash
//     never leaves a truncated cache behind
type FileStore struct {
	path     string
	lockPath string
	retry    retryPolicy
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLockRetry sets how many times a held lock is tried and the delay between tries.
func WithLockRetry(attempts int, delay time.Duration) FileStoreOption {
	return func(s *FileStore) {
		if attempts > 0 {
			s.retry.attempts = attempts
		}
		if delay >= 0 {
			s.retry.delay = delay
		}
	}
}

// DefaultPath returns ~/.config/azauth/tokencache.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, DefaultCacheFile), nil
}

// NewFileStore creates a store for path, or DefaultPath when path is empty.
// Nothing is created on disk until the first access.
func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	s := &FileStore{
		path:     path,
		lockPath: path + ".lock",
		retry:    defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFileCache creates a Cache persisted by a FileStore at path.
func NewFileCache(path string, opts ...FileStoreOption) (*Cache, error) {
	store, err := NewFileStore(path, opts...)
	if err != nil {
		return nil, err
	}
	return New(WithHooks(store)), nil
}

// Path returns the cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// BeforeAccess loads the cache file into c. A missing file yields an empty cache;
// an undecodable one is logged and treated as empty.
func (s *FileStore) BeforeAccess(ctx context.Context, c *Cache) error {
	var data []byte
	err := s.withLock(ctx, func() error {
		var readErr error
		data, readErr = os.ReadFile(s.path)
		if errors.Is(readErr, fs.ErrNotExist) {
			data = nil
			return nil
		}
		return readErr
	})
	if err != nil {
		return s.ioError("read", err)
	}

	if err := c.Deserialize(data); err != nil {
		logging.Warn("TokenCache", "Ignoring unreadable token cache %s: %v", s.path, err)
		return c.Deserialize(nil)
	}

	logging.Debug("TokenCache", "Loaded %d token cache items from %s", c.Count(), s.path)
	return nil
}

// AfterAccess writes c to the cache file.
func (s *FileStore) AfterAccess(ctx context.Context, c *Cache) error {
	data, err := c.Serialize()
	if err != nil {
		return s.ioError("encode", err)
	}

	if err := s.withLock(ctx, func() error { return s.writeAtomic(data) }); err != nil {
		return s.ioError("write", err)
	}

	logging.Debug("TokenCache", "Persisted %d token cache items to %s", c.Count(), s.path)
	return nil
}

// Remove deletes the cache file under the lock. The lock file stays in place
// so that every process keeps locking the same inode.
func (s *FileStore) Remove(ctx context.Context) error {
	err := s.withLock(ctx, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
	if err != nil {
		return s.ioError("remove", err)
	}
	return nil
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer f.Close()

	attempt := 0
	err = s.retry.do(ctx, func() error {
		attempt++
		err := tryLock(f)
		if errors.Is(err, errLocked) {
			logging.Debug("TokenCache", "Lock %s is held, attempt %d of %d", s.lockPath, attempt, s.retry.attempts)
		}
		return err
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := unlockFile(f); err != nil {
			logging.Warn("TokenCache", "Failed to release lock %s: %v", s.lockPath, err)
		}
	}()

	return fn()
}

func (s *FileStore) writeAtomic(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *FileStore) ioError(op string, err error) error {
	return &IOError{Op: op, Path: s.path, Err: err}
}
