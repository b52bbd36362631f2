package datasets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListDirs returns the names of the subdirectories of dir in lexicographic
// order. Hidden entries (starting with ".") are skipped.
func ListDirs(dir string) ([]string, error) {
	return listEntries(dir, true)
}

// ListFiles returns the names of the regular files in dir in lexicographic
// order. Hidden entries are skipped.
func ListFiles(dir string) ([]string, error) {
	return listEntries(dir, false)
}

func listEntries(dir string, dirs bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", filepath.Join(dir, e.Name()), err)
			}
			isDir = info.IsDir()
		}
		if isDir == dirs {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// SplitPoint returns how many of k samples go to the training split for the
// given train fraction, i.e. floor(k*fraction).
func SplitPoint(k int, fraction float64) int {
	return int(float64(k) * fraction)
}
