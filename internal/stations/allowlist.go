package stations

import (
	"bufio"
	"os"
	"slices"
	"strings"

	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/logger"
)

// FilterReport is the outcome of filtering an allowlist against the table.
type FilterReport struct {
	// Kept holds the resolvable names as given, sorted ascending
	Kept []string
	// Rejected holds names with no station info, in input order
	Rejected []string
}

// FilterAllowlist keeps the names that resolve to a station and reports the rest.
func (s *Store) FilterAllowlist(names []string) FilterReport {
	var report FilterReport
	for _, name := range names {
		if _, ok := s.lookup(name); !ok {
			report.Rejected = append(report.Rejected, name)
			continue
		}
		report.Kept = append(report.Kept, name)
	}
	slices.Sort(report.Kept)

	if s.log != nil {
		for _, name := range report.Rejected {
			s.log.Warn("Could not find station info for station", logger.String("station", name))
		}
	}
	return report
}

// FilterByAllowlist returns the resolvable names, sorted ascending.
// Unresolvable names are logged, not returned as errors.
func (s *Store) FilterByAllowlist(names []string) []string {
	return s.FilterAllowlist(names).Kept
}

// ReadAllowlist reads a line-delimited list of station names in the given
// encoding (cp1252 when empty). Lines are trimmed and blank lines skipped.
func ReadAllowlist(path, encodingName string) ([]string, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(err, path)
	}
	text, err := decodeText(data, enc)
	if err != nil {
		return nil, err
	}

	var names []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("stations").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	return names, nil
}
