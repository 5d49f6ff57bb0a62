package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/ancestry/internal/model"
)

// FreshnessThreshold is the maximum age of a snapshot worth rehydrating.
// Older snapshots describe a site that may have changed and are ignored.
const FreshnessThreshold = 12 * time.Hour

// ErrInvalidSnapshot is returned when a fresh snapshot cannot be decoded.
// The returned cache is empty and usable.
var ErrInvalidSnapshot = errors.New("invalid cache snapshot")

// PersonSource provides the stored people a snapshot is rehydrated from.
// *database.TreeDB implements it.
type PersonSource interface {
	ListPeople(ctx context.Context) ([]*model.Person, error)
}

// IsFresh reports whether the snapshot at path exists, is not empty and was
// written less than FreshnessThreshold before now.
func IsFresh(path string, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return false
	}
	return now.Sub(info.ModTime()) < FreshnessThreshold
}

// Load rebuilds the cache from the snapshot at path.
//
// A missing, empty or stale snapshot yields an empty cache and no error.
// Otherwise every reference whose permalink has a row in src is resolved to
// that live record; references without a row are dropped and will be
// crawled again. A nil src yields an empty cache.
func Load(ctx context.Context, path string, src PersonSource, now time.Time) (*Visited, error) {
	v := NewVisited()
	if src == nil || !IsFresh(path, now) {
		return v, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return v, fmt.Errorf("failed to read cache snapshot: %w", err)
	}

	var snapshot map[string]string
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return v, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, path, err)
	}
	if len(snapshot) == 0 {
		return v, nil
	}

	people, err := src.ListPeople(ctx)
	if err != nil {
		return v, fmt.Errorf("failed to rehydrate cache: %w", err)
	}
	byLink := make(map[string]*model.Person, len(people))
	for _, p := range people {
		byLink[p.Permalink] = p
	}

	for ref, permalink := range snapshot {
		if p, ok := byLink[permalink]; ok {
			v.Resolve(ref, p)
		}
	}
	return v, nil
}

// Save writes the resolved entries of v to path as a JSON object mapping
// references to permalinks. The file is replaced atomically so an interrupt
// never leaves a truncated snapshot behind.
func (v *Visited) Save(path string) error {
	data, err := json.Marshal(v.Permalinks())
	if err != nil {
		return fmt.Errorf("failed to encode cache snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace cache snapshot: %w", err)
	}
	return nil
}
