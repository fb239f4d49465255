package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/records"
)

// FileStore keeps best times in a TOML file with one table per course.
type FileStore struct {
	path string
}

type fileTimes struct {
	Lap  string `toml:"lap,omitempty"`
	Race string `toml:"race,omitempty"`
}

// NewFileStore returns a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the record file. A missing file yields no records.
func (f *FileStore) Load(_ context.Context) (records.BestTimes, error) {
	var times records.BestTimes
	if _, err := os.Stat(f.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return times, nil
		}
		return times, fmt.Errorf("failed to stat records: %w", err)
	}

	var doc map[string]fileTimes
	if _, err := toml.DecodeFile(f.path, &doc); err != nil {
		return times, fmt.Errorf("failed to decode records: %w", err)
	}
	for name, entry := range doc {
		v, err := course.ParseVariant(name)
		if err != nil {
			return records.BestTimes{}, err
		}
		for _, k := range records.Kinds {
			raw := entry.Lap
			if k == records.Race {
				raw = entry.Race
			}
			if raw == "" {
				continue
			}
			d, err := time.ParseDuration(raw)
			if err != nil {
				return records.BestTimes{}, fmt.Errorf("%s %s: %w", name, k, err)
			}
			times.Set(v, k, d)
		}
	}
	return times, nil
}

// Save writes times to the record file, replacing it atomically.
func (f *FileStore) Save(_ context.Context, times records.BestTimes) error {
	doc := make(map[string]fileTimes, len(course.Variants))
	for _, v := range course.Variants {
		var entry fileTimes
		if d, ok := times.Get(v, records.Lap); ok {
			entry.Lap = d.String()
		}
		if d, ok := times.Get(v, records.Race); ok {
			entry.Race = d.String()
		}
		if entry != (fileTimes{}) {
			doc[strings.ToLower(v.String())] = entry
		}
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create records dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(f.path), "times-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp records: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := toml.NewEncoder(tmpFile).Encode(doc); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close records: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}
