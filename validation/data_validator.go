// Package validation checks dataset integrity and user input.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/giygas/drugcompat/interfaces"
	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser/entities"
)

// Pre-compiled patterns, compiled once at package initialization
var (
	// Search input: letters with Italian accents, digits and safe punctuation
	inputRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\+'/%()àèéìíîòóùúÀÈÉÌÍÎÒÓÙÚ]+$`)

	// Canonical drug identifiers as produced by the normalizer: words of
	// id characters joined by single underscores
	drugIDRegex = regexp.MustCompile(`^[a-z0-9%+().,'-]+(_[a-z0-9%+().,'-]+)*$`)

	errDrugIDCharacters = errors.New("drug id contains invalid characters. Only lowercase letters, digits, " +
		"single underscores between words and - + % ( ) . , ' are allowed")

	// strings.Contains is cheaper than regex for these
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
	}
)

const (
	maxDrugIDLength  = 80
	maxTextLength    = 200
	maxNotesLength   = 2000
	maxSamplesLogged = 10
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateDrug checks if a drug record is valid
func (v *DataValidatorImpl) ValidateDrug(d *entities.DrugRecord) error {
	if d == nil {
		return fmt.Errorf("drug is nil")
	}

	if _, err := v.ValidateDrugID(string(d.ID)); err != nil {
		return fmt.Errorf("invalid drug id %q: %w", d.ID, err)
	}
	if string(d.ID) != strings.TrimSpace(string(d.ID)) || strings.ToLower(string(d.ID)) != string(d.ID) {
		return fmt.Errorf("drug id %q is not canonical", d.ID)
	}

	if strings.TrimSpace(d.DisplayName.Primary) == "" {
		return fmt.Errorf("empty display name for drug %s", d.ID)
	}
	if len(d.DisplayName.Primary) > maxTextLength || len(d.DisplayName.Secondary) > maxTextLength {
		return fmt.Errorf("display name too long for drug %s", d.ID)
	}

	if d.Category.IsEmpty() {
		return fmt.Errorf("missing category for drug %s", d.ID)
	}

	for name, text := range map[string]entities.BilingualText{
		"concentration notes": d.ConcentrationNotes,
		"phlebitis risk":      d.PhlebitisRisk,
		"special notes":       d.SpecialNotes,
	} {
		if len(text.Primary) > maxNotesLength || len(text.Secondary) > maxNotesLength {
			return fmt.Errorf("%s too long for drug %s", name, d.ID)
		}
	}

	return nil
}

// ValidateDataset performs integrity checks and returns the first problem
func (v *DataValidatorImpl) ValidateDataset(ds *entities.Dataset) error {
	if ds == nil {
		return fmt.Errorf("dataset is nil")
	}
	if len(ds.Drugs) == 0 {
		return fmt.Errorf("no drugs found")
	}

	known := make(map[entities.DrugID]bool, len(ds.Drugs))
	for i := range ds.Drugs {
		d := &ds.Drugs[i]
		if known[d.ID] {
			return fmt.Errorf("duplicate drug id found: %s", d.ID)
		}
		known[d.ID] = true

		if err := v.ValidateDrug(d); err != nil {
			return fmt.Errorf("invalid drug at position %d: %w", i, err)
		}
	}

	seen := make(map[entities.PairKey]bool, len(ds.Compatibility))
	var stats entities.CompatibilityStats
	for i, e := range ds.Compatibility {
		if e.Drug1 == e.Drug2 {
			return fmt.Errorf("entry %d pairs %s with itself", i, e.Drug1)
		}
		if e.Drug1 > e.Drug2 {
			return fmt.Errorf("entry %d is not in canonical order: %s, %s", i, e.Drug1, e.Drug2)
		}
		if !known[e.Drug1] || !known[e.Drug2] {
			return fmt.Errorf("entry %d references unknown drug: %s + %s", i, e.Drug1, e.Drug2)
		}
		if _, ok := entities.ParseCode(string(e.Code)); !ok {
			return fmt.Errorf("entry %d has invalid code %q", i, e.Code)
		}
		key := e.Pair()
		if seen[key] {
			return fmt.Errorf("duplicate entry for pair %s + %s", key.A, key.B)
		}
		seen[key] = true
		stats.Add(e.Code)
	}

	if ds.Metadata.TotalDrugs != len(ds.Drugs) {
		return fmt.Errorf("metadata totalDrugs is %d, dataset has %d", ds.Metadata.TotalDrugs, len(ds.Drugs))
	}
	if ds.Metadata.TotalCompatibilityEntries != len(ds.Compatibility) {
		return fmt.Errorf("metadata totalCompatibilityEntries is %d, dataset has %d",
			ds.Metadata.TotalCompatibilityEntries, len(ds.Compatibility))
	}
	if ds.Metadata.CompatibilityStats != stats {
		return fmt.Errorf("metadata compatibilityStats do not match entries")
	}

	return nil
}

// ReportDataQuality lists every integrity problem instead of stopping at the first
func (v *DataValidatorImpl) ReportDataQuality(ds *entities.Dataset) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateDrugIDs:  []entities.DrugID{},
		DuplicatePairs:    []entities.PairKey{},
		SelfPairs:         []entities.DrugID{},
		UnknownDrugPairs:  []entities.PairKey{},
		DrugsWithoutPairs: []entities.DrugID{},
	}
	if ds == nil {
		return report
	}

	// Check 1: duplicate ids and missing categories
	known := make(map[entities.DrugID]bool, len(ds.Drugs))
	for _, d := range ds.Drugs {
		if known[d.ID] {
			report.DuplicateDrugIDs = append(report.DuplicateDrugIDs, d.ID)
		}
		known[d.ID] = true
		if d.Category.IsEmpty() {
			report.UncategorizedDrugs++
		}
	}

	// Check 2: entry level problems
	seen := make(map[entities.PairKey]bool, len(ds.Compatibility))
	paired := make(map[entities.DrugID]bool, len(ds.Drugs))
	var stats entities.CompatibilityStats
	for _, e := range ds.Compatibility {
		if e.Drug1 == e.Drug2 {
			report.SelfPairs = append(report.SelfPairs, e.Drug1)
			continue
		}
		if e.Drug1 > e.Drug2 {
			report.MisorderedPairs++
		}
		key := e.Pair()
		if !known[key.A] || !known[key.B] {
			report.UnknownDrugPairs = append(report.UnknownDrugPairs, key)
		}
		if seen[key] {
			report.DuplicatePairs = append(report.DuplicatePairs, key)
		}
		seen[key] = true
		if _, ok := entities.ParseCode(string(e.Code)); !ok {
			report.InvalidCodes++
		}
		stats.Add(e.Code)
		paired[e.Drug1] = true
		paired[e.Drug2] = true
	}

	// Check 3: coverage of the full matrix
	for _, d := range ds.Drugs {
		if !paired[d.ID] {
			report.DrugsWithoutPairs = append(report.DrugsWithoutPairs, d.ID)
		}
	}
	n := len(known)
	if expected := n * (n - 1) / 2; expected > len(seen) {
		report.MissingPairs = expected - len(seen)
	}

	// Check 4: metadata counters
	report.StatsMismatch = ds.Metadata.TotalDrugs != len(ds.Drugs) ||
		ds.Metadata.TotalCompatibilityEntries != len(ds.Compatibility) ||
		ds.Metadata.CompatibilityStats != stats

	if len(report.DuplicateDrugIDs) > 0 || len(report.DuplicatePairs) > 0 || len(report.UnknownDrugPairs) > 0 {
		logging.Error("Dataset integrity problems detected",
			"duplicate_ids", sample(report.DuplicateDrugIDs),
			"duplicate_pairs", len(report.DuplicatePairs),
			"unknown_drug_pairs", len(report.UnknownDrugPairs))
	}

	return report
}

// ValidateInput validates free-text search input
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) < 2 {
		return fmt.Errorf("input too short: minimum 2 characters")
	}

	if len(input) > 50 {
		return fmt.Errorf("input too long: maximum 50 characters")
	}

	words := strings.Fields(input)
	if len(words) > 6 {
		return fmt.Errorf("search query too complex: maximum 6 words allowed")
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces, hyphens, apostrophes, periods, slashes, parentheses, percent and plus signs are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateDrugID validates a drug identifier. Case and surrounding spaces
// are forgiven; anything else must already be canonical.
func (v *DataValidatorImpl) ValidateDrugID(input string) (entities.DrugID, error) {
	id := strings.ToLower(strings.TrimSpace(input))
	if id == "" {
		return "", fmt.Errorf("drug id cannot be empty")
	}

	if len(id) > maxDrugIDLength {
		return "", fmt.Errorf("drug id too long: maximum %d characters", maxDrugIDLength)
	}

	if !drugIDRegex.MatchString(id) {
		return "", errDrugIDCharacters
	}

	return entities.DrugID(id), nil
}

// ValidateCode validates a compatibility code filter
func (v *DataValidatorImpl) ValidateCode(input string) (entities.CompatibilityCode, error) {
	code, ok := entities.ParseCode(strings.TrimSpace(input))
	if !ok {
		return "", fmt.Errorf("unknown compatibility code %q, expected one of %v", input, entities.Codes)
	}
	return code, nil
}

// hasExcessiveRepetition reports the same byte repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	run := 1
	for i := 1; i < len(input); i++ {
		if input[i] == input[i-1] {
			run++
			if run > 10 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func sample(ids []entities.DrugID) []entities.DrugID {
	if len(ids) > maxSamplesLogged {
		return ids[:maxSamplesLogged]
	}
	return ids
}
