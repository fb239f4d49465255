package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/verte-zerg/schneider/internal/model"
)

// Follow streams samples from path as they are appended, calling fn for each
// one in order. It returns nil when the file is removed or renamed, the
// context error on cancellation, and the first error returned by fn.
func Follow(ctx context.Context, path string, fn func(model.TelemetrySample) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open telemetry: %w", err)
	}
	defer func() { _ = f.Close() }()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	r := newFollowReader(f)
	for {
		if err := drain(r, fn); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return nil
			}
			// An unlinked file that is still open only reports a chmod.
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}

func drain(r *Reader, fn func(model.TelemetrySample) error) error {
	for {
		sample, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(sample); err != nil {
			return err
		}
	}
}
