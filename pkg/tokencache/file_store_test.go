package tokencache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tokencache.json")

	writer, err := NewFileCache(path, WithLockRetry(1, 0))
	require.NoError(t, err)

	require.NoError(t, writer.BeforeAccess(ctx))
	assert.Equal(t, 0, writer.Count())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing is written before a change")

	writer.Store(testKey("res", "uid", "user"), testItem("a"))
	require.NoError(t, writer.AfterAccess(ctx))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
		dirInfo, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
	}

	reader, err := NewFileCache(path)
	require.NoError(t, err)
	require.NoError(t, reader.BeforeAccess(ctx))
	assert.Equal(t, writer.Items(), reader.Items())

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary files are cleaned up")
}

func TestFileStoreIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokencache.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0600))

	c, err := NewFileCache(path)
	require.NoError(t, err)
	require.NoError(t, c.BeforeAccess(context.Background()))
	assert.Equal(t, 0, c.Count())
}

func TestFileStoreLockExhaustion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokencache.json")

	holder, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	require.NoError(t, err)
	defer holder.Close()
	require.NoError(t, tryLock(holder))
	defer unlockFile(holder)

	c, err := NewFileCache(path, WithLockRetry(3, 10*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	err = c.BeforeAccess(context.Background())

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "expected IOError, got %v", err)
	assert.Equal(t, "read", ioErr.Op)
	assert.Equal(t, path, ioErr.Path)
	assert.True(t, errors.Is(err, ErrLockTimeout))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "two delays between three attempts")
}

func TestFileStoreLockHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokencache.json")

	holder, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	require.NoError(t, err)
	defer holder.Close()
	require.NoError(t, tryLock(holder))
	defer unlockFile(holder)

	c, err := NewFileCache(path, WithLockRetry(100, time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = c.BeforeAccess(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestFileStoreLockReleasedAfterHolderUnlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokencache.json")

	holder, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	require.NoError(t, err)
	defer holder.Close()
	require.NoError(t, tryLock(holder))

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = unlockFile(holder)
	}()

	c, err := NewFileCache(path, WithLockRetry(20, 10*time.Millisecond))
	require.NoError(t, err)
	assert.NoError(t, c.BeforeAccess(context.Background()))
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokencache.json")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := NewFileCache(path, WithLockRetry(50, 5*time.Millisecond))
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, c.BeforeAccess(ctx))
			c.Store(testKey("res", "uid", "user"), testItem("writer"))
			assert.NoError(t, c.AfterAccess(ctx))
		}(i)
	}
	wg.Wait()

	c, err := NewFileCache(path)
	require.NoError(t, err)
	require.NoError(t, c.BeforeAccess(ctx))
	assert.Equal(t, 1, c.Count())
}

func TestFileStoreRemove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokencache.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	c := New(WithHooks(store))
	c.Store(testKey("res", "uid", "user"), testItem("a"))
	require.NoError(t, c.AfterAccess(ctx))

	require.NoError(t, store.Remove(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err, "the lock file is kept")

	// Removing twice is fine.
	assert.NoError(t, store.Remove(ctx))
}

func TestFileStoreRemoveKeepsLockExclusive(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokencache.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.AfterAccess(ctx, New()))

	// Another process opened the lock file before the removal and locks it afterwards.
	waiting, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	require.NoError(t, err)
	defer waiting.Close()

	require.NoError(t, store.Remove(ctx))
	require.NoError(t, tryLock(waiting))
	defer unlockFile(waiting)

	other, err := NewFileStore(path, WithLockRetry(2, 5*time.Millisecond))
	require.NoError(t, err)
	entered := false
	err = other.withLock(ctx, func() error {
		entered = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrLockTimeout), "got %v", err)
	assert.False(t, entered, "second locker must not enter while the first holds the lock")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("USERPROFILE", "/home/tester")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", DefaultCacheFile), path)

	store, err := NewFileStore("")
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
}

func TestWatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename events differ on windows")
	}

	path := filepath.Join(t.TempDir(), "tokencache.json")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan ChangeEvent, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(e ChangeEvent) { events <- e })
	}()

	c, err := NewFileCache(path)
	require.NoError(t, err)

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	c.Store(testKey("res", "uid", "user"), testItem("a"))
	require.NoError(t, c.AfterAccess(ctx))

	select {
	case e := <-events:
		assert.Equal(t, path, e.Path)
		assert.Equal(t, OperationWrite, e.Operation)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event received")
	}

	// Writes to unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("{}"), 0600))
	select {
	case e := <-events:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-done)
}
