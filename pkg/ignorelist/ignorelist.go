// Package ignorelist loads the set of machine IDs that a run must skip.
//
// The source is a plain text file with one integer per line. Blank lines are
// ignored and surrounding whitespace is trimmed. A missing file is not an
// error: it yields an empty set and a warning.
package ignorelist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"htbwriteups/pkg/logger"
)

// Set is an immutable-by-convention set of machine IDs
type Set map[int]struct{}

// Contains reports whether the ID is ignored
func (s Set) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ignored IDs
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the IDs in ascending order
func (s Set) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Load reads the ignore list at path
func Load(path string, log logger.Logger) (Set, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", path).Warn("Ignore list not found, no ID will be ignored")
			return Set{}, nil
		}
		return nil, fmt.Errorf("failed to open ignore list: %w", err)
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.DebugWithFields("Ignore list loaded", map[string]interface{}{
		"path":  path,
		"count": set.Len(),
		"ids":   set.Sorted(),
	})
	return set, nil
}

// Parse reads newline-delimited IDs. Any non-blank line that is not an
// integer fails the whole parse.
func Parse(r io.Reader) (Set, error) {
	set := Set{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid machine ID %q: %w", lineNo, line, err)
		}
		set[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore list: %w", err)
	}
	return set, nil
}
