// Package sourcereader loads spreadsheet exports into a RawTable.
package sourcereader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser/entities"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options selects what to read from a source file.
type Options struct {
	// Sheet names the worksheet of an .xlsx file. Empty means the first sheet.
	Sheet string
}

// Read loads a .csv, .tsv, .txt or .xlsx file. Fully blank rows are dropped.
// Any failure is structural: nothing downstream can run without a table.
func Read(path string, opts Options) (*entities.RawTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: source file not found: %s", entities.ErrStructural, path)
		}
		return nil, fmt.Errorf("%w: cannot access source %s: %v", entities.ErrStructural, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: source %s is a directory", entities.ErrStructural, path)
	}

	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path, opts.Sheet)
	case ".csv":
		rows, err = readDelimited(path, 0)
	case ".tsv", ".txt":
		rows, err = readDelimited(path, '\t')
	default:
		return nil, fmt.Errorf("%w: unsupported source format %q", entities.ErrStructural, ext)
	}
	if err != nil {
		return nil, err
	}

	return toTable(path, rows)
}

func toTable(path string, rows [][]string) (*entities.RawTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", entities.ErrStructural, path)
	}

	headers := rows[0]
	data := make([][]string, 0, len(rows)-1)
	skippedBlankRows := 0
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			skippedBlankRows++
			continue
		}
		data = append(data, row)
	}

	if skippedBlankRows > 0 {
		logging.Info("Source skip statistics",
			"file", filepath.Base(path),
			"blank_rows", skippedBlankRows,
			"rows_kept", len(data))
	}

	return entities.NewRawTable(headers, data)
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook %s: %v", entities.ErrStructural, path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close workbook", "error", err)
		}
	}()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook %s has no sheets", entities.ErrStructural, path)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found in %s", entities.ErrStructural, sheet, path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", entities.ErrStructural, sheet, err)
	}
	if len(rows) == 0 {
		return rows, nil
	}

	// Trailing empty cells are not returned by excelize.
	width := len(rows[0])
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) < width {
			padded := make([]string, width)
			copy(padded, rows[i])
			rows[i] = padded
		}
	}

	logging.Debug("Workbook sheet loaded", "sheet", sheet, "rows", len(rows), "columns", width)
	return rows, nil
}

// readDelimited parses a delimited text file. A zero delimiter is sniffed
// from the header line.
func readDelimited(path string, delimiter rune) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", entities.ErrStructural, path, err)
	}

	content, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", entities.ErrStructural, path, err)
	}

	if delimiter == 0 {
		delimiter = sniffDelimiter(content)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", entities.ErrStructural, path, err)
	}
	return rows, nil
}

// decode strips a UTF-8 BOM and converts ISO-8859-1 input to UTF-8.
func decode(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	return io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw)))
}

// sniffDelimiter picks the most frequent of , ; and tab on the first line.
// Ties go to the comma.
func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, candidate := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(candidate))); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
