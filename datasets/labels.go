package datasets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LabelMap assigns dense class indices to class names in the order they are
// added.
type LabelMap struct {
	index map[string]int
	names []string
}

// NewLabelMap creates an empty label map.
func NewLabelMap() *LabelMap {
	return &LabelMap{index: make(map[string]int)}
}

// Add registers name and returns its index. Adding an existing name returns
// the index it already has.
func (m *LabelMap) Add(name string) int {
	if idx, ok := m.index[name]; ok {
		return idx
	}
	idx := len(m.names)
	m.index[name] = idx
	m.names = append(m.names, name)
	return idx
}

// Index returns the class index for name.
func (m *LabelMap) Index(name string) (int, bool) {
	idx, ok := m.index[name]
	return idx, ok
}

// Len returns the number of classes.
func (m *LabelMap) Len() int {
	return len(m.names)
}

// Names returns the class names ordered by index.
func (m *LabelMap) Names() []string {
	return append([]string(nil), m.names...)
}

// Manifest maps an image filename to its class name, as listed in a
// validation annotations file.
type Manifest map[string]string

// ReadManifest parses a whitespace-delimited annotations file. The first two
// tokens of every line are the filename and the class name; remaining tokens
// (bounding boxes) are ignored.
func ReadManifest(path string) (Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer file.Close()

	m, err := ParseManifest(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest reads manifest lines from r. Blank lines are skipped.
func ParseManifest(r io.Reader) (Manifest, error) {
	m := make(Manifest)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		words := strings.Fields(scanner.Text())
		if len(words) == 0 {
			continue
		}
		if len(words) < 2 {
			return nil, fmt.Errorf("line %d %q: %w", lineNo, scanner.Text(), ErrMalformedManifest)
		}
		m[words[0]] = words[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
