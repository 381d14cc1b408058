package sourcereader

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/giygas/drugcompat/matrixparser/entities"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestRead_DelimitedFormats(t *testing.T) {
	expectedHeaders := []string{"FARMACO", "A", "B"}
	expectedRows := [][]string{{"A", "null", "Y"}, {"B", "Y", "null"}}

	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{"comma csv", "m.csv", "FARMACO,A,B\nA,null,Y\nB,Y,null\n"},
		{"semicolon csv", "m.csv", "FARMACO;A;B\nA;null;Y\nB;Y;null\n"},
		{"tab csv", "m.csv", "FARMACO\tA\tB\nA\tnull\tY\nB\tY\tnull\n"},
		{"tsv", "m.tsv", "FARMACO\tA\tB\nA\tnull\tY\nB\tY\tnull\n"},
		{"txt", "m.TXT", "FARMACO\tA\tB\nA\tnull\tY\nB\tY\tnull\n"},
		{"crlf and blank rows", "m.csv", "FARMACO,A,B\r\nA,null,Y\r\n,,\r\n\r\nB,Y,null\r\n"},
		{"quoted cells", "m.csv", "\"FARMACO\",\"A\",\"B\"\n\"A\",null,Y\nB,Y,\"null\"\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := Read(writeFile(t, tc.file, []byte(tc.content)), Options{})
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !reflect.DeepEqual(table.Headers, expectedHeaders) {
				t.Errorf("Expected headers %v, got %v", expectedHeaders, table.Headers)
			}
			if !reflect.DeepEqual(table.Rows, expectedRows) {
				t.Errorf("Expected rows %v, got %v", expectedRows, table.Rows)
			}
		})
	}
}

func TestRead_BOMAndLatin1(t *testing.T) {
	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte("NECESSITÀ DI CVC;A\nA;null\n")...)
	table, err := Read(writeFile(t, "bom.csv", bom), Options{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Headers[0] != "NECESSITÀ DI CVC" {
		t.Errorf("Expected BOM to be stripped, got %q", table.Headers[0])
	}

	// "Fotosensibilità" in ISO-8859-1
	latin1 := []byte("FARMACO;Fotosensibilit\xe0\nA;SI\n")
	table, err = Read(writeFile(t, "latin1.csv", latin1), Options{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Headers[1] != "Fotosensibilità" {
		t.Errorf("Expected Latin-1 to be decoded, got %q", table.Headers[1])
	}
}

func TestRead_StructuralErrors(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.csv")},
		{"directory", dir},
		{"unsupported", writeFile(t, "m.json", []byte("{}"))},
		{"empty", writeFile(t, "empty.csv", nil)},
		{"header only", writeFile(t, "h.csv", []byte("FARMACO,A\n"))},
		{"ragged", writeFile(t, "r.csv", []byte("FARMACO,A,B\nA,Y\n"))},
		{"not a workbook", writeFile(t, "bad.xlsx", []byte("plain text"))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(tc.path, Options{})
			if !errors.Is(err, entities.ErrStructural) {
				t.Errorf("Expected structural error, got %v", err)
			}
		})
	}
}

func writeWorkbook(t *testing.T, sheets map[string][][]any, order []string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("Failed to rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("Failed to create sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("Bad coordinates: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("Failed to write row: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "matrice.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	return path
}

func TestRead_Workbook(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Matrice": {
			{"FARMACO", "FOTOSENSIBILE", "A", "B"},
			{"A", "SI", "null", "Y"},
			{"B"},
		},
		"Note": {
			{"FARMACO", "X"},
			{"X", "Y"},
		},
	}, []string{"Matrice", "Note"})

	table, err := Read(path, Options{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(table.Headers, []string{"FARMACO", "FOTOSENSIBILE", "A", "B"}) {
		t.Errorf("Unexpected headers %v", table.Headers)
	}
	// Trailing empty cells are padded to the header width
	if !reflect.DeepEqual(table.Rows[1], []string{"B", "", "", ""}) {
		t.Errorf("Expected padded row, got %q", table.Rows[1])
	}

	table, err = Read(path, Options{Sheet: "Note"})
	if err != nil {
		t.Fatalf("Read of named sheet failed: %v", err)
	}
	if table.Headers[1] != "X" || len(table.Rows) != 1 {
		t.Errorf("Expected the Note sheet, got %v / %v", table.Headers, table.Rows)
	}

	_, err = Read(path, Options{Sheet: "Missing"})
	if !errors.Is(err, entities.ErrStructural) {
		t.Errorf("Expected structural error for missing sheet, got %v", err)
	}
}

func TestSniffDelimiter(t *testing.T) {
	testCases := []struct {
		content  string
		expected rune
	}{
		{"a,b,c", ','},
		{"a;b;c\n1,2,3,4,5", ';'},
		{"a\tb\tc", '\t'},
		{"a;b,c", ','},
		{"single", ','},
	}

	for _, tc := range testCases {
		if got := sniffDelimiter([]byte(tc.content)); got != tc.expected {
			t.Errorf("sniffDelimiter(%q): expected %q, got %q", tc.content, tc.expected, got)
		}
	}
}
