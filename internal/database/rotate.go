package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// rotatedSuffix is appended to the base name of a rotated database.
const rotatedSuffix = "_old"

// sidecarSuffixes are the files SQLite may keep next to a database.
var sidecarSuffixes = []string{"-journal", "-wal", "-shm"}

// RotatedPath returns the path an existing database is moved to when the
// next crawl starts, e.g. "tree.sqlite3" becomes "tree_old.sqlite3".
func RotatedPath(dbPath string) string {
	ext := filepath.Ext(dbPath)
	return strings.TrimSuffix(dbPath, ext) + rotatedSuffix + ext
}

// rotate moves dbPath to RotatedPath(dbPath), replacing an older rotated
// database. A missing dbPath is not an error.
func rotate(dbPath string) error {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to check database path: %w", err)
	}

	old := RotatedPath(dbPath)
	for _, suffix := range append([]string{""}, sidecarSuffixes...) {
		if err := os.Remove(old + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove rotated database: %w", err)
		}
	}

	if err := os.Rename(dbPath, old); err != nil {
		return fmt.Errorf("failed to rotate database: %w", err)
	}
	for _, suffix := range sidecarSuffixes {
		if err := os.Rename(dbPath+suffix, old+suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to rotate database: %w", err)
		}
	}
	return nil
}
