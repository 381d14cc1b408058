package matrixparser

import (
	"fmt"
	"strings"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

// MatrixExtractor turns the N×N block into unordered compatibility entries.
type MatrixExtractor struct {
	normalizer *Normalizer
}

func NewMatrixExtractor(normalizer *Normalizer) *MatrixExtractor {
	return &MatrixExtractor{normalizer: normalizer}
}

// Extract walks rows top to bottom and drug columns left to right. The first
// valid cell of a pair wins; its mirror is still read so contradictions are
// reported. Entries come out in traversal order with Drug1 < Drug2.
func (m *MatrixExtractor) Extract(table *entities.RawTable, layout entities.ColumnLayout, columns []entities.ResolvedColumn) ([]entities.CompatibilityEntry, []entities.Diagnostic) {
	var (
		diags   []entities.Diagnostic
		entries []entities.CompatibilityEntry
	)
	nameCol := layout.NameColumnIndex()

	known := make(map[entities.DrugID]bool, len(columns))
	for _, col := range columns {
		known[col.ID] = true
	}

	emitted := make(map[entities.PairKey]entities.CompatibilityCode)
	seenRows := make(map[entities.DrugID]int)

	for r, row := range table.Rows {
		label := strings.TrimSpace(row[nameCol])
		if label == "" {
			diags = append(diags, entities.Diagnostic{
				Kind: entities.KindEmptyLabel, Row: r, Column: nameCol,
				Message: fmt.Sprintf("row %d has no drug name, skipped", r),
			})
			continue
		}

		d1, err := m.normalizer.Normalize(label)
		if err != nil {
			diags = append(diags, entities.Diagnostic{
				Kind: entities.KindEmptyLabel, Row: r, Column: nameCol, Value: label,
				Message: fmt.Sprintf("row %d: %v", r, err),
			})
			continue
		}
		if !known[d1] {
			diags = append(diags, entities.Diagnostic{
				Kind: entities.KindOrphanRow, Row: r, Column: nameCol, DrugID: d1, Value: label,
				Message: fmt.Sprintf("row %q has no matching drug column, skipped", label),
			})
			continue
		}
		if first, dup := seenRows[d1]; dup {
			diags = append(diags, entities.Diagnostic{
				Kind: entities.KindDuplicateRow, Row: r, Column: nameCol, DrugID: d1, Value: label,
				Message: fmt.Sprintf("row %q repeats row %d, skipped", label, first),
			})
			continue
		}
		seenRows[d1] = r

		for _, col := range columns {
			d2 := col.ID
			if d1 == d2 {
				continue
			}
			key := entities.NewPairKey(d1, d2)
			raw := strings.TrimSpace(row[col.Index])
			code, valid := entities.ParseCode(raw)

			if !valid {
				diags = append(diags, entities.Diagnostic{
					Kind: entities.KindInvalidCode, Row: r, Column: col.Index, DrugID: d1, Value: raw,
					Message: fmt.Sprintf("invalid compatibility code %q for %s + %s, cell skipped", raw, d1, d2),
				})
				continue
			}

			if previous, done := emitted[key]; done {
				if code != previous {
					diags = append(diags, entities.Diagnostic{
						Kind: entities.KindAsymmetric, Row: r, Column: col.Index, DrugID: d1, Value: raw,
						Message: fmt.Sprintf("%s + %s reads %q here but %q in the mirrored cell, keeping %q", d1, d2, code, previous, previous),
					})
				}
				continue
			}

			emitted[key] = code
			entries = append(entries, newEntry(key, code))
		}
	}

	return entries, diags
}

func newEntry(key entities.PairKey, code entities.CompatibilityCode) entities.CompatibilityEntry {
	return entities.CompatibilityEntry{
		Drug1:       key.A,
		Drug2:       key.B,
		Code:        code,
		Description: code.Description(),
		Notes: entities.Wrap(
			fmt.Sprintf("Compatibilità %s + %s", key.A, key.B),
			fmt.Sprintf("Compatibility %s + %s", key.A, key.B),
		),
	}
}
