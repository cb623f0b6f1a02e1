package site

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// Scan returns a lazy, restartable sequence of valid sites under root. A
// subdirectory is a valid site when it contains the configuration file
// marker; other entries are silently skipped. Ordering follows filesystem
// enumeration order and is not guaranteed to be stable across runs.
func Scan(root, marker string) iter.Seq[Site] {
	return func(yield func(Site) bool) {
		entries, err := os.ReadDir(root)
		if err != nil {
			return
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			configPath := filepath.Join(root, entry.Name(), marker)
			if _, err := os.Stat(configPath); err != nil {
				continue
			}

			s := Site{
				Name:       entry.Name(),
				Path:       filepath.Join(root, entry.Name()),
				ConfigPath: configPath,
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Discover materializes the scan of root and returns the discovered sites.
// It returns ErrNoSitesFound when no subdirectory carries the marker, and a
// distinct error when the root directory itself cannot be read.
func Discover(root, marker string) ([]Site, error) {
	if _, err := os.ReadDir(root); err != nil {
		return nil, fmt.Errorf("failed to read root directory %s: %w", root, err)
	}

	var sites []Site
	for s := range Scan(root, marker) {
		sites = append(sites, s)
	}

	if len(sites) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoSitesFound, root)
	}

	return sites, nil
}
