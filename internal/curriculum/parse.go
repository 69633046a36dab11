package curriculum

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	entrySeparator = ";"
	fieldSeparator = "|"
	fieldCount     = 3
)

// ErrTooFewColumns is returned when a workbook has fewer than three columns.
var ErrTooFewColumns = errors.New("curriculum sheet must have at least 3 columns: subject, unit, topic")

// ParseText parses "Subject | Unit | Topic" entries separated by semicolons.
// Blank entries are skipped. Entries without exactly three non-empty fields are
// dropped and reported in Rejected.
func ParseText(input string) ParseResult {
	var res ParseResult
	for _, raw := range strings.Split(input, entrySeparator) {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, fieldSeparator)
		if len(parts) != fieldCount {
			res.Rejected = append(res.Rejected, entry)
			continue
		}

		p := Path{
			Subject: strings.TrimSpace(parts[0]),
			Unit:    strings.TrimSpace(parts[1]),
			Topic:   strings.TrimSpace(parts[2]),
		}
		if !p.Valid() {
			res.Rejected = append(res.Rejected, entry)
			continue
		}
		res.Paths = append(res.Paths, p)
	}
	return res
}

// ParseRows reads subject, unit and topic from the first three columns of each
// row. Extra columns are ignored; rows missing a field are rejected.
func ParseRows(rows [][]string) ParseResult {
	var res ParseResult
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}

		p := Path{
			Subject: cell(row, 0),
			Unit:    cell(row, 1),
			Topic:   cell(row, 2),
		}
		if !p.Valid() {
			res.Rejected = append(res.Rejected, strings.Join(row, " | "))
			continue
		}
		res.Paths = append(res.Paths, p)
	}
	return res
}

// ParseWorkbook parses the first sheet of an .xlsx workbook. The first row is
// treated as a header and skipped whatever its contents.
func ParseWorkbook(r io.Reader) (ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ParseResult{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ParseResult{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return ParseResult{}, nil
	}

	if columnCount(rows) < fieldCount {
		return ParseResult{}, ErrTooFewColumns
	}

	return ParseRows(rows[1:]), nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columnCount returns the widest row, since excelize trims trailing empty cells.
func columnCount(rows [][]string) int {
	n := 0
	for _, row := range rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}
