package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/frameview/internal/frame"
)

func init() {
	Register(Format{
		Name:       "csv",
		Label:      "CSV file",
		Extensions: []string{".csv", ".tsv"},
		Decode:     decodeCSV,
	})
}

// sanitizeReader strips a UTF-8 BOM (common in files saved by Excel) and
// replaces invalid UTF-8 sequences with U+FFFD while streaming.
func sanitizeReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// detectSeparator picks the most frequent of the common separators in the
// header line, defaulting to comma.
func detectSeparator(header string) rune {
	candidates := []rune{',', ';', '\t', '|'}

	best, bestCount := ',', 0
	for _, sep := range candidates {
		if n := strings.Count(header, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// decodeCSV reads a single CSV table with a header row. CSV carries no
// attributes, so the table always gets a positional default name.
func decodeCSV(ctx context.Context, r io.Reader, _ Options) (any, error) {
	br := bufio.NewReader(sanitizeReader(r))

	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("encoding error: %w", err)
	}
	if strings.TrimSpace(header) == "" {
		return nil, ErrEmptyFile
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	cr.Comma = detectSeparator(header)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	columns, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	var rows [][]any
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		rows = append(rows, row)
	}

	f, err := frame.New(columns, rows, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return []*frame.Frame{f}, nil
}
