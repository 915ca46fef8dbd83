package tokencache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/giantswarm/azauth/pkg/logging"
)

// DefaultWatchDebounce coalesces the events produced by one atomic cache write.
const DefaultWatchDebounce = 200 * time.Millisecond

// ChangeOperation describes what happened to a watched cache file.
type ChangeOperation string

const (
	OperationWrite  ChangeOperation = "write"
	OperationRemove ChangeOperation = "remove"
)

// ChangeEvent reports a change to a watched cache file.
type ChangeEvent struct {
	Path      string
	Operation ChangeOperation
	Timestamp time.Time
}

// Watch reports changes to the cache file at path until ctx is done. The parent
// directory is watched because writes replace the file by rename. Bursts of
// events are debounced into one call to fn.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func(ChangeEvent)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Info("TokenCache", "Watching %s for token cache changes", path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			change := ChangeEvent{Path: target, Operation: OperationWrite}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if _, err := os.Stat(target); os.IsNotExist(err) {
					change.Operation = OperationRemove
				}
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				change.Timestamp = time.Now()
				fn(change)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("TokenCache", err, "Token cache watcher error")
		}
	}
}
