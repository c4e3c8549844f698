package seqio

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// row is one non-blank, non-comment line of a TSV file
type row struct {
	line    int
	columns []string
}

// readRows reads the rows of a tab separated file. Blank lines and lines
// starting with '#' are skipped. When header is the first column of the
// first row, that row is skipped too
func readRows(name string, r io.Reader, minColumns int, header string) ([]row, error) {
	var rows []row

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}

		columns := strings.Split(text, "\t")
		for i := range columns {
			columns[i] = strings.TrimSpace(columns[i])
		}
		if len(rows) == 0 && header != "" && strings.EqualFold(columns[0], header) {
			continue
		}
		if len(columns) < minColumns {
			return nil, fmt.Errorf("%s line %d: expected %d tab separated columns, got %d", name, lineNum, minColumns, len(columns))
		}

		rows = append(rows, row{line: lineNum, columns: columns})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return rows, nil
}
