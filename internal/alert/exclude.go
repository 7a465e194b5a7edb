package alert

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ExcludeSet is the list of alert searches whose hits should be flagged in
// reports. Membership is by the alert's search text. Excluded pairings are
// never removed: a cluster can still be legitimately new through another,
// non-excluded alert.
type ExcludeSet struct {
	searches map[string]bool
}

// LoadExcludeSet reads a newline-delimited file of alert search strings.
// An empty path yields an empty set.
func LoadExcludeSet(path string) (*ExcludeSet, error) {
	es := &ExcludeSet{searches: make(map[string]bool)}
	if path == "" {
		return es, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening exclude list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		es.searches[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclude list: %w", err)
	}
	return es, nil
}

// Contains reports whether a's search text is on the exclude list.
func (es *ExcludeSet) Contains(a *Alert) bool {
	return es.searches[strings.TrimSpace(a.Search)]
}
