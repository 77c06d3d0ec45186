package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the quiet period after the last file event before the
// seed is reloaded. Editors often truncate and write in separate steps.
const watchDebounce = 100 * time.Millisecond

// Watch reloads the seed file at path whenever it changes.
//
// The parent directory is watched rather than the file itself, so saves that
// replace the file (write to a temp file, then rename) are detected. After a
// burst of events settles, the file is reloaded: successful loads are passed
// to onChange, failures to onError. Both callbacks run on the calling
// goroutine; onError may be nil.
//
// Watch blocks until ctx is cancelled and returns nil, or returns an error if
// the watcher cannot be set up.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve seed path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	report := func(err error) {
		if onError != nil {
			onError(err)
		}
	}

	// nil until an event arms the debounce
	var reload <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reload = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			report(fmt.Errorf("watcher error: %w", err))

		case <-reload:
			reload = nil
			cfg, err := Load(abs)
			if err != nil {
				report(err)
				continue
			}
			onChange(cfg)
		}
	}
}
