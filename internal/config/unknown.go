package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys of each config section.
var knownKeys = map[string][]string{
	"api":     {"base_url", "auth_url", "session_token_url"},
	"silo":    {"photo_size", "album_results", "icon_url"},
	"storage": {"token_backend", "database_path", "token_dir"},
	"logging": {"log_level", "log_format"},
	"server":  {"listen", "events"},
}

// knownSections is the sorted list of section names, for deterministic
// suggestions when two candidates tie.
var knownSections = func() []string {
	sections := make([]string, 0, len(knownKeys))
	for s := range knownKeys {
		sections = append(sections, s)
	}

	sort.Strings(sections)

	return sections
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		keyStr := key.String()
		if seen[keyStr] {
			continue
		}

		seen[keyStr] = true

		errs = append(errs, unknownKeyError(key))
	}

	return errors.Join(errs...)
}

// unknownKeyError describes one undecoded key. A known section with an
// unknown field suggests a field of that section; anything else suggests a
// section name.
func unknownKeyError(key toml.Key) error {
	section := key[0]

	fields, ok := knownKeys[section]
	if !ok {
		if suggestion := closestMatch(section, knownSections); suggestion != "" {
			return fmt.Errorf("unknown config section %q, did you mean %q?", section, suggestion)
		}

		return fmt.Errorf("unknown config section %q", section)
	}

	field := strings.Join(key[1:], ".")

	if suggestion := closestMatch(field, fields); suggestion != "" {
		return fmt.Errorf("unknown key %q in [%s], did you mean %q?", field, section, suggestion)
	}

	return fmt.Errorf("unknown key %q in [%s]", field, section)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings using a
// single-row table.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
