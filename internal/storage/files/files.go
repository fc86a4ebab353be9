// Package files persists pipeline artifacts as JSON on local disk and finds
// the newest intermediate results for stage-only runs.
package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// TimestampLayout is the suffix used in results file names.
const TimestampLayout = "20060102_150405"

// ErrNoResults is returned when no results file matches.
var ErrNoResults = errors.New("no results file found")

// WriteJSON writes v as indented JSON, creating parent directories. The file
// is written to a temporary name first and renamed into place.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadJSON decodes the file at path into v.
func ReadJSON(path string, v any) error {
	// #nosec G304 -- paths come from configuration or CLI flags.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// LoadRecords reads a JSON array of ad records.
func LoadRecords(path string) ([]creative.Record, error) {
	var records []creative.Record
	if err := ReadJSON(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ResultsPath builds "<dir>/<prefix>_<YYYYmmdd_HHMMSS>.json".
func ResultsPath(dir, prefix string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", prefix, at.Format(TimestampLayout)))
}

// Latest returns the newest "<dir>/<prefix>_*.json". The timestamp suffix
// sorts lexically, so the last name wins.
func Latest(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.json"))
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", prefix, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s in %s", ErrNoResults, prefix, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// ArtifactPath builds "<dir>/<id>_<kind>.json". The id is passed through
// SafeName since it comes from scraped markup.
func ArtifactPath(dir, id, kind string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", SafeName(id), kind))
}

// SafeName turns s into a single file name element: path separators become
// underscores and ".." runs are broken up so the result stays inside its
// directory. Empty input yields "unknown".
func SafeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "..", "_")
	if s == "" || s == "." {
		return "unknown"
	}
	return s
}
