package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Discover lists the supported files directly inside dir, sorted by name.
// Hidden files and subdirectories are skipped.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan source dir: %w", err)
	}

	var found []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || len(name) == 0 || name[0] == '.' {
			continue
		}
		if Supported(name) {
			found = append(found, filepath.Join(dir, name))
		}
	}

	sort.Strings(found)
	return found, nil
}

// DiscoverFirst returns the first supported file in dir, or "" if none.
func DiscoverFirst(dir string) (string, error) {
	found, err := Discover(dir)
	if err != nil || len(found) == 0 {
		return "", err
	}
	return found[0], nil
}
