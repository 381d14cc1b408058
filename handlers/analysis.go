package handlers

import (
	"fmt"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

// Warning levels of a combination analysis
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelInfo     = "info"
)

// PairResult is the compatibility of one pair inside an analysis.
// Found is false when the dataset has no entry for the pair.
type PairResult struct {
	Drug1       entities.DrugID            `json:"drug1Id"`
	Drug2       entities.DrugID            `json:"drug2Id"`
	Code        entities.CompatibilityCode `json:"compatibility"`
	Severity    int                        `json:"severity"`
	Description entities.BilingualText     `json:"description"`
	Found       bool                       `json:"found"`
}

// AnalysisWarning flags a pair that needs attention.
type AnalysisWarning struct {
	Level   string                 `json:"level"`
	Drugs   [2]entities.DrugID     `json:"drugs"`
	Message entities.BilingualText `json:"message"`
	Action  entities.BilingualText `json:"action"`
}

// Analysis is the result of checking every pair of a drug combination.
type Analysis struct {
	Drugs           []entities.DrugID                       `json:"drugs"`
	Pairs           []PairResult                            `json:"pairs"`
	Groups          map[entities.CompatibilityCode][]string `json:"groups"`
	WorstCode       entities.CompatibilityCode              `json:"worstCompatibility"`
	Warnings        []AnalysisWarning                       `json:"warnings"`
	Photosensitive  []entities.DrugID                       `json:"photosensitive"`
	CentralLine     []entities.DrugID                       `json:"centralLine"`
	Recommendations []entities.BilingualText                `json:"recommendations"`
}

var (
	recommendSeparateLines = entities.Wrap(
		"Incompatibilità critiche presenti: utilizzare linee IV separate o somministrare in tempi diversi",
		"Critical incompatibilities found: use separate IV lines or stagger administration")
	recommendMonitor = entities.Wrap(
		"Combinazioni da usare con cautela: monitorare il paziente e consultare la farmacia",
		"Combinations requiring caution: monitor the patient and consult the pharmacy")
	recommendNoData = entities.Wrap(
		"Dati di compatibilità mancanti: richiedere consulto farmacologico",
		"Missing compatibility data: request a pharmacological consultation")
	recommendCheckDilution = entities.Wrap(
		"Nessuna incompatibilità critica: verificare comunque diluizioni e concentrazioni",
		"No critical incompatibilities: still check dilutions and concentrations")
	recommendProtectLight = entities.Wrap(
		"Farmaci fotosensibili presenti: proteggere dalla luce",
		"Photosensitive drugs present: protect from light")
	recommendCentralLine = entities.Wrap(
		"Farmaci che richiedono accesso venoso centrale presenti",
		"Drugs requiring central venous access present")
)

// Analyze checks every unordered pair of ids, in input order. ids must be
// distinct and present in drugs.
func Analyze(ids []entities.DrugID, drugs map[entities.DrugID]entities.DrugRecord, pairs map[entities.PairKey]entities.CompatibilityEntry) *Analysis {
	a := &Analysis{
		Drugs:           ids,
		Pairs:           []PairResult{},
		Groups:          make(map[entities.CompatibilityCode][]string),
		WorstCode:       entities.CodeUnknown,
		Warnings:        []AnalysisWarning{},
		Photosensitive:  []entities.DrugID{},
		CentralLine:     []entities.DrugID{},
		Recommendations: []entities.BilingualText{},
	}

	for _, id := range ids {
		if drugs[id].IsPhotosensitive {
			a.Photosensitive = append(a.Photosensitive, id)
		}
		if drugs[id].RequiresCentralLine {
			a.CentralLine = append(a.CentralLine, id)
		}
	}

	var critical, caution, missing bool
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			key := entities.NewPairKey(ids[i], ids[j])
			entry, found := pairs[key]
			code := entities.CodeUnknown
			if found {
				code = entry.Code
			}

			a.Pairs = append(a.Pairs, PairResult{
				Drug1:       key.A,
				Drug2:       key.B,
				Code:        code,
				Severity:    code.Severity(),
				Description: code.Description(),
				Found:       found,
			})
			a.Groups[code] = append(a.Groups[code], fmt.Sprintf("%s+%s", key.A, key.B))

			if code.Severity() > a.WorstCode.Severity() {
				a.WorstCode = code
			}

			switch {
			case code.Severity() >= entities.CodeIncompatible.Severity():
				critical = true
				a.Warnings = append(a.Warnings, pairWarning(LevelCritical, key, code,
					"Utilizzare linee IV separate o somministrare in tempi diversi",
					"Use separate IV lines or administer at different times"))
			case code.RequiresWarning():
				caution = true
				a.Warnings = append(a.Warnings, pairWarning(LevelWarning, key, code,
					"Monitorare reazioni avverse",
					"Monitor for adverse reactions"))
			case code == entities.CodeUnknown:
				missing = true
				a.Warnings = append(a.Warnings, pairWarning(LevelInfo, key, code,
					"Richiedere consulto farmacologico",
					"Request a pharmacological consultation"))
			}
		}
	}

	if critical {
		a.Recommendations = append(a.Recommendations, recommendSeparateLines)
	}
	if caution {
		a.Recommendations = append(a.Recommendations, recommendMonitor)
	}
	if missing {
		a.Recommendations = append(a.Recommendations, recommendNoData)
	}
	if !critical && !caution {
		a.Recommendations = append(a.Recommendations, recommendCheckDilution)
	}
	if len(a.Photosensitive) > 0 {
		a.Recommendations = append(a.Recommendations, recommendProtectLight)
	}
	if len(a.CentralLine) > 0 {
		a.Recommendations = append(a.Recommendations, recommendCentralLine)
	}

	return a
}

func pairWarning(level string, key entities.PairKey, code entities.CompatibilityCode, actionIT, actionEN string) AnalysisWarning {
	desc := code.Description()
	return AnalysisWarning{
		Level: level,
		Drugs: [2]entities.DrugID{key.A, key.B},
		Message: entities.Wrap(
			fmt.Sprintf("%s + %s: %s", key.A, key.B, desc.Primary),
			fmt.Sprintf("%s + %s: %s", key.A, key.B, desc.Secondary)),
		Action: entities.Wrap(actionIT, actionEN),
	}
}
