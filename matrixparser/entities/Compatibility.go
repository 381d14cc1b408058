package entities

// CompatibilityCode is a closed vocabulary of Y-site compatibility codes.
// The string value is the wire token.
type CompatibilityCode string

const (
	CodeCompatible   CompatibilityCode = "Y"
	CodeCaution      CompatibilityCode = "C"
	CodeIncompatible CompatibilityCode = "I"
	CodeSevere       CompatibilityCode = "!"
	CodeUnknown      CompatibilityCode = "null"
)

// Codes lists the vocabulary in severity order, unknown last.
var Codes = []CompatibilityCode{CodeCompatible, CodeCaution, CodeIncompatible, CodeSevere, CodeUnknown}

var codeDescriptions = map[CompatibilityCode]BilingualText{
	CodeCompatible:   Wrap("Compatibile - Somministrazione simultanea sicura", "Compatible - Safe simultaneous administration"),
	CodeCaution:      Wrap("Compatibile con cautela - Monitorare reazioni avverse", "Compatible with caution - Monitor adverse reactions"),
	CodeIncompatible: Wrap("Incompatibile - NON somministrare insieme", "Incompatible - DO NOT administer together"),
	CodeSevere:       Wrap("Incompatibilità grave - Rischio clinico elevato", "Severe incompatibility - High clinical risk"),
	CodeUnknown:      Wrap("Dati non disponibili - Richiedere consulto farmacologico", "Data not available - Request pharmacological consultation"),
}

var codeSeverity = map[CompatibilityCode]int{
	CodeUnknown:      -1,
	CodeCompatible:   0,
	CodeCaution:      1,
	CodeIncompatible: 2,
	CodeSevere:       3,
}

// ParseCode validates a trimmed cell value. Matching is exact.
func ParseCode(raw string) (CompatibilityCode, bool) {
	c := CompatibilityCode(raw)
	if _, ok := codeDescriptions[c]; ok {
		return c, true
	}
	return "", false
}

// Description returns the fixed bilingual description of the code.
func (c CompatibilityCode) Description() BilingualText {
	return codeDescriptions[c]
}

// Severity ranks codes: unknown -1, compatible 0 up to severe 3.
func (c CompatibilityCode) Severity() int {
	if s, ok := codeSeverity[c]; ok {
		return s
	}
	return -1
}

// RequiresWarning is true for caution and worse.
func (c CompatibilityCode) RequiresWarning() bool {
	return c.Severity() >= 1
}

// IsCritical is true only for severe incompatibility.
func (c CompatibilityCode) IsCritical() bool {
	return c == CodeSevere
}

// PairKey is an unordered drug pair stored in lexicographic order.
type PairKey struct {
	A DrugID
	B DrugID
}

// NewPairKey orders the two ids.
func NewPairKey(x, y DrugID) PairKey {
	if y < x {
		x, y = y, x
	}
	return PairKey{A: x, B: y}
}

// CompatibilityEntry is one unordered pair of the compatibility document.
// Drug1 sorts before Drug2.
type CompatibilityEntry struct {
	Drug1       DrugID            `json:"drug1Id"`
	Drug2       DrugID            `json:"drug2Id"`
	Code        CompatibilityCode `json:"compatibility"`
	Description BilingualText     `json:"description"`
	Notes       BilingualText     `json:"notes"`
}

// Pair returns the entry's pair key.
func (e CompatibilityEntry) Pair() PairKey {
	return NewPairKey(e.Drug1, e.Drug2)
}
