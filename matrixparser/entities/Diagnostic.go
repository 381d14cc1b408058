package entities

// DiagnosticKind classifies a recoverable data-quality problem.
type DiagnosticKind string

const (
	KindInvalidCode      DiagnosticKind = "invalid-code"
	KindUnrecognizedFlag DiagnosticKind = "unrecognized-flag"
	KindDuplicateID      DiagnosticKind = "duplicate-id"
	KindEmptyLabel       DiagnosticKind = "empty-label"
	KindLayoutFallback   DiagnosticKind = "layout-fallback"
	KindDuplicateRole    DiagnosticKind = "duplicate-role"
	KindAsymmetric       DiagnosticKind = "asymmetric"
	KindOrphanRow        DiagnosticKind = "orphan-row"
	KindDuplicateRow     DiagnosticKind = "duplicate-row"
	KindStrayCharacters  DiagnosticKind = "stray-characters"
)

// Diagnostic is one warning raised while processing a table. Row and Column
// are 0-based indexes into RawTable.Rows and the header; -1 when not
// applicable.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Row     int            `json:"row"`
	Column  int            `json:"column"`
	DrugID  DrugID         `json:"drugId,omitempty"`
	Value   string         `json:"value,omitempty"`
	Message string         `json:"message"`
}

// Diagnostics accumulates warnings in the order they were raised.
type Diagnostics struct {
	Items []Diagnostic `json:"items"`
}

// Add appends diagnostics.
func (d *Diagnostics) Add(items ...Diagnostic) {
	d.Items = append(d.Items, items...)
}

// Len returns the number of diagnostics.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Items)
}

// CountByKind groups diagnostics by kind.
func (d *Diagnostics) CountByKind() map[DiagnosticKind]int {
	counts := make(map[DiagnosticKind]int)
	if d == nil {
		return counts
	}
	for _, item := range d.Items {
		counts[item.Kind]++
	}
	return counts
}

// OfKind returns the diagnostics of one kind.
func (d *Diagnostics) OfKind(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	if d == nil {
		return out
	}
	for _, item := range d.Items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}
