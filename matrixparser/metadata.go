package matrixparser

import (
	"fmt"
	"strings"

	"github.com/giygas/drugcompat/matrixparser/entities"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	truthyTokens = map[string]bool{"yes": true, "si": true, "true": true, "1": true, "x": true}
	falsyTokens  = map[string]bool{"no": true, "false": true, "0": true}
)

// MetadataExtractor builds one DrugRecord per resolved drug column.
type MetadataExtractor struct {
	normalizer *Normalizer
	categories *CategoryClassifier
}

func NewMetadataExtractor(normalizer *Normalizer, categories *CategoryClassifier) *MetadataExtractor {
	return &MetadataExtractor{normalizer: normalizer, categories: categories}
}

// Extract returns records in column order. A drug without a metadata row
// gets defaults: flags false and empty texts.
func (m *MetadataExtractor) Extract(table *entities.RawTable, layout entities.ColumnLayout, columns []entities.ResolvedColumn) ([]entities.DrugRecord, []entities.Diagnostic) {
	var diags []entities.Diagnostic
	nameCol := layout.NameColumnIndex()

	byLabel := make(map[string]int, len(table.Rows))
	byID := make(map[entities.DrugID]int, len(table.Rows))
	for r, row := range table.Rows {
		label := strings.TrimSpace(row[nameCol])
		if label == "" {
			continue
		}
		if _, seen := byLabel[label]; !seen {
			byLabel[label] = r
		}
		if id, err := m.normalizer.Normalize(label); err == nil {
			if _, seen := byID[id]; !seen {
				byID[id] = r
			}
		}
	}

	title := cases.Title(language.Italian)
	records := make([]entities.DrugRecord, 0, len(columns))

	for _, col := range columns {
		label := strings.TrimSpace(col.Header)
		record := entities.DrugRecord{
			ID:          col.ID,
			DisplayName: m.displayName(title, label, col.ID),
			Category:    m.categories.Classify(col.ID),
		}

		r, found := byLabel[label]
		if !found {
			r, found = byID[col.ID]
		}
		if !found {
			records = append(records, record)
			continue
		}
		row := table.Rows[r]

		if idx, ok := layout.Column(entities.RolePhotosensitive); ok {
			value, _, recognized := parseFlag(row[idx])
			record.IsPhotosensitive = value
			if !recognized {
				diags = append(diags, flagDiagnostic(entities.RolePhotosensitive, r, idx, col.ID, row[idx]))
			}
		}

		if idx, ok := layout.Column(entities.RoleCentralLine); ok {
			value, qualified, recognized := parseFlag(row[idx])
			record.RequiresCentralLine = value
			if !recognized {
				diags = append(diags, flagDiagnostic(entities.RoleCentralLine, r, idx, col.ID, row[idx]))
			}
			if qualified {
				raw := strings.TrimSpace(row[idx])
				record.SpecialNotes = entities.Wrap("Accesso venoso centrale: "+raw, "Central line: "+raw)
			}
		}

		if idx, ok := layout.Column(entities.RoleConcentrationNotes); ok {
			record.ConcentrationNotes = freeText(row[idx])
		}
		if idx, ok := layout.Column(entities.RolePhlebitisRisk); ok {
			record.PhlebitisRisk = freeText(row[idx])
		}

		records = append(records, record)
	}

	return records, diags
}

// displayName keeps the sheet label in Italian and uses the aliased id as
// the English name when an alias applied.
func (m *MetadataExtractor) displayName(title cases.Caser, label string, id entities.DrugID) entities.BilingualText {
	primary := title.String(strings.ToLower(label))
	if _, aliased, err := m.normalizer.Resolve(label); err == nil && aliased {
		return entities.Wrap(primary, title.String(strings.ReplaceAll(string(id), "_", " ")))
	}
	return entities.Wrap(primary)
}

// parseFlag reads a yes/no cell. A "+" splits a head token from a
// qualifier, as in "SI + C". recognized is false for values outside the
// known vocabulary, which read as false.
func parseFlag(cell string) (value, qualified, recognized bool) {
	s := strings.TrimSpace(cell)
	if isAbsent(s) {
		return false, false, true
	}

	head := s
	if i := strings.Index(s, "+"); i >= 0 {
		head = strings.TrimSpace(s[:i])
		qualified = true
	}

	token := strings.ToLower(foldAccents(head))
	switch {
	case truthyTokens[token]:
		return true, qualified, true
	case falsyTokens[token], token == "":
		return false, qualified, true
	}
	return false, false, false
}

func flagDiagnostic(role entities.Role, row, col int, id entities.DrugID, raw string) entities.Diagnostic {
	return entities.Diagnostic{
		Kind:    entities.KindUnrecognizedFlag,
		Row:     row,
		Column:  col,
		DrugID:  id,
		Value:   raw,
		Message: fmt.Sprintf("unrecognized %s value %q for %s, defaulting to false", role, strings.TrimSpace(raw), id),
	}
}

func freeText(cell string) entities.BilingualText {
	if isAbsent(cell) {
		return entities.BilingualText{}
	}
	return entities.Wrap(cell)
}
