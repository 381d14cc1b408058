// Package matrixparser turns a drug compatibility spreadsheet into a
// normalized bilingual dataset.
package matrixparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser/entities"
)

// Result is everything one pipeline run extracted from a table.
type Result struct {
	Layout        entities.ColumnLayout
	Columns       []entities.ResolvedColumn
	Drugs         []entities.DrugRecord
	Compatibility []entities.CompatibilityEntry
	Diagnostics   *entities.Diagnostics
}

// Pipeline wires the classifier and both extractors around one ruleset.
type Pipeline struct {
	normalizer *Normalizer
	classifier *Classifier
	metadata   *MetadataExtractor
	matrix     *MatrixExtractor
}

func NewPipeline(rules *Ruleset) *Pipeline {
	if rules == nil {
		rules = DefaultRuleset()
	}
	normalizer := NewNormalizer(rules.Suffixes, rules.Aliases)
	return &Pipeline{
		normalizer: normalizer,
		classifier: NewClassifier(rules.RoleVariants),
		metadata:   NewMetadataExtractor(normalizer, NewCategoryClassifier(rules.Categories)),
		matrix:     NewMatrixExtractor(normalizer),
	}
}

// Normalizer exposes the identifier normalizer used by the pipeline.
func (p *Pipeline) Normalizer() *Normalizer {
	return p.normalizer
}

// Run processes a table. Only structural problems return an error; every
// cell-level problem ends up in Result.Diagnostics.
func (p *Pipeline) Run(table *entities.RawTable) (*Result, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: no table to process", entities.ErrStructural)
	}

	diags := &entities.Diagnostics{}

	layout, layoutDiags := p.classifier.Classify(table.Headers)
	diags.Add(layoutDiags...)

	columns, columnDiags := p.resolveColumns(layout)
	diags.Add(columnDiags...)
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no usable drug columns in header", entities.ErrStructural)
	}

	drugs, metaDiags := p.metadata.Extract(table, layout, columns)
	diags.Add(metaDiags...)

	entries, matrixDiags := p.matrix.Extract(table, layout, columns)
	diags.Add(matrixDiags...)

	for _, d := range diags.Items {
		logging.Warn("Data quality issue",
			"kind", d.Kind,
			"row", d.Row,
			"column", d.Column,
			"drug", d.DrugID,
			"value", d.Value,
			"message", d.Message,
		)
	}

	counts := diags.CountByKind()
	logging.Info("Compatibility matrix processed",
		"rules_version", p.classifier.Version(),
		"drugs", len(drugs),
		"entries", len(entries),
		"diagnostics", diags.Len(),
		"invalid_codes", counts[entities.KindInvalidCode],
		"asymmetric", counts[entities.KindAsymmetric],
		"layout_fallback", layout.UsedFallback(),
	)

	return &Result{
		Layout:        layout,
		Columns:       columns,
		Drugs:         drugs,
		Compatibility: entries,
		Diagnostics:   diags,
	}, nil
}

// resolveColumns normalizes every drug header once. Blank or suffix-only
// headers and ids already taken by an earlier column are dropped.
func (p *Pipeline) resolveColumns(layout entities.ColumnLayout) ([]entities.ResolvedColumn, []entities.Diagnostic) {
	var diags []entities.Diagnostic
	drugColumns := layout.DrugColumns()
	resolved := make([]entities.ResolvedColumn, 0, len(drugColumns))
	owner := make(map[entities.DrugID]entities.DrugColumn, len(drugColumns))

	for _, col := range drugColumns {
		id, err := p.normalizer.Normalize(col.Header)
		if err != nil {
			msg := fmt.Sprintf("drug column %d has no name, skipped", col.Index)
			if !errors.Is(err, ErrEmptyLabel) || strings.TrimSpace(col.Header) != "" {
				msg = fmt.Sprintf("drug column %d: %v", col.Index, err)
			}
			diags = append(diags, entities.Diagnostic{
				Kind: entities.KindEmptyLabel, Row: -1, Column: col.Index, Value: col.Header, Message: msg,
			})
			continue
		}

		if first, taken := owner[id]; taken {
			diags = append(diags, entities.Diagnostic{
				Kind:    entities.KindDuplicateID,
				Row:     -1,
				Column:  col.Index,
				DrugID:  id,
				Value:   col.Header,
				Message: fmt.Sprintf("column %q normalizes to %s like column %q, dropped", col.Header, id, first.Header),
			})
			continue
		}

		if stray := strayRunes(col.Header); stray != "" {
			diags = append(diags, entities.Diagnostic{
				Kind:    entities.KindStrayCharacters,
				Row:     -1,
				Column:  col.Index,
				DrugID:  id,
				Value:   col.Header,
				Message: fmt.Sprintf("column %q: characters %q are not part of drug ids, read as %s", col.Header, stray, id),
			})
		}

		owner[id] = col
		resolved = append(resolved, entities.ResolvedColumn{DrugColumn: col, ID: id})
	}

	return resolved, diags
}
