package entities

// DrugID is a stable lowercase identifier with no whitespace.
type DrugID string

// DrugRecord is the per-drug entry of the index document.
type DrugRecord struct {
	ID                  DrugID        `json:"id"`
	DisplayName         BilingualText `json:"displayName"`
	Category            BilingualText `json:"category"`
	IsPhotosensitive    bool          `json:"isPhotosensitive"`
	RequiresCentralLine bool          `json:"requiresCentralLine"`
	ConcentrationNotes  BilingualText `json:"concentrationNotes"`
	PhlebitisRisk       BilingualText `json:"phlebitisRisk"`
	SpecialNotes        BilingualText `json:"specialNotes"`
}

// ResolvedColumn is a drug column whose header normalized to a unique id.
type ResolvedColumn struct {
	DrugColumn
	ID DrugID
}
