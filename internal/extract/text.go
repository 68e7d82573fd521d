package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"unicode"
)

// extractCSV renders the header and rows as aligned columns.
func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse csv: %w", err)
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, record := range records {
		if _, err := fmt.Fprintln(w, strings.Join(record, "\t")); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// minDocRun is the shortest printable run kept from a legacy .doc file.
const minDocRun = 4

// extractDoc recovers printable text runs from a legacy Word binary file.
// Formatting tables and embedded objects produce some noise.
func (e *Extractor) extractDoc(path string) (string, error) {
	e.logger.Warn("Limited support for DOC format", "file_path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return printableRuns(data, minDocRun), nil
}

// printableRuns returns the runs of at least minLen printable characters in
// data, separated by newlines.
func printableRuns(data []byte, minLen int) string {
	var (
		runs    []string
		current []rune
	)
	flush := func() {
		if run := strings.TrimSpace(string(current)); len(run) >= minLen {
			runs = append(runs, run)
		}
		current = current[:0]
	}

	for _, b := range data {
		r := rune(b)
		if r < unicode.MaxASCII && (unicode.IsPrint(r) || r == '\t') {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()

	return strings.Join(runs, "\n")
}
