// Package sanitize turns user input and API-provided machine names into safe
// filesystem paths. Both sanitizers are pure character filters; they do not
// protect against traversal beyond removing dots.
package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Extension is appended to every writeup file name
const Extension = ".pdf"

var (
	unsafePathChars = regexp.MustCompile(`[^\p{L}\p{N}_\s/-]`)
	unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
)

// ErrEmptyName is returned when a machine name has no safe characters left
var ErrEmptyName = errors.New("sanitized file name is empty")

// Path keeps word characters, whitespace, '/' and '-' and resolves the
// result to an absolute path.
func Path(p string) (string, error) {
	clean := unsafePathChars.ReplaceAllString(p, "")
	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", clean, err)
	}
	return abs, nil
}

// Filename keeps word characters, whitespace and '-' and trims the result
func Filename(name string) string {
	return strings.TrimSpace(unsafeNameChars.ReplaceAllString(name, ""))
}

// OutputPath builds <Path(dir)>/<Filename(name)>.pdf
func OutputPath(dir, name string) (string, error) {
	cleanDir, err := Path(dir)
	if err != nil {
		return "", err
	}
	cleanName := Filename(name)
	if cleanName == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyName, name)
	}
	return filepath.Join(cleanDir, cleanName+Extension), nil
}
