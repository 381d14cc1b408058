package entities

import "time"

// SchemaVersion is bumped whenever the shape of the output documents changes.
const SchemaVersion = 2

// CompatibilityStats counts entries per code. Field order is fixed so the
// serialized envelope is stable.
type CompatibilityStats struct {
	Compatible   int `json:"Y"`
	Caution      int `json:"C"`
	Incompatible int `json:"I"`
	Severe       int `json:"!"`
	Unknown      int `json:"null"`
}

// Add counts one entry.
func (s *CompatibilityStats) Add(c CompatibilityCode) {
	switch c {
	case CodeCompatible:
		s.Compatible++
	case CodeCaution:
		s.Caution++
	case CodeIncompatible:
		s.Incompatible++
	case CodeSevere:
		s.Severe++
	case CodeUnknown:
		s.Unknown++
	}
}

// Count returns the number of entries with the given code.
func (s CompatibilityStats) Count(c CompatibilityCode) int {
	switch c {
	case CodeCompatible:
		return s.Compatible
	case CodeCaution:
		return s.Caution
	case CodeIncompatible:
		return s.Incompatible
	case CodeSevere:
		return s.Severe
	case CodeUnknown:
		return s.Unknown
	}
	return 0
}

// Metadata is the envelope shared by both output documents.
type Metadata struct {
	Version                   string             `json:"version"`
	SchemaVersion             int                `json:"schemaVersion"`
	GeneratedAt               time.Time          `json:"generatedAt"`
	Source                    string             `json:"source"`
	GeneratedBy               string             `json:"generatedBy"`
	TotalDrugs                int                `json:"totalDrugs"`
	TotalCompatibilityEntries int                `json:"totalCompatibilityEntries"`
	CompatibilityStats        CompatibilityStats `json:"compatibilityStats"`
}

// Dataset is the full output of one run. It is rebuilt from scratch every
// time and never patched.
type Dataset struct {
	Metadata      Metadata             `json:"metadata"`
	Drugs         []DrugRecord         `json:"drugs"`
	Compatibility []CompatibilityEntry `json:"compatibility"`
}

// IndexDocument is the on-disk shape of index.json.
type IndexDocument struct {
	Metadata Metadata     `json:"metadata"`
	Drugs    []DrugRecord `json:"drugs"`
}

// CompatibilityDocument is the on-disk shape of compatibility.json.
type CompatibilityDocument struct {
	Metadata      Metadata             `json:"metadata"`
	Compatibility []CompatibilityEntry `json:"compatibility"`
}
