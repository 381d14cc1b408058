package matrixparser

import (
	"fmt"
	"os"

	"github.com/giygas/drugcompat/matrixparser/entities"
	"gopkg.in/yaml.v3"
)

// Ruleset is the configuration data behind normalization and classification.
// It is loaded once and injected into the components that need it; nothing
// mutates it after construction.
type Ruleset struct {
	Suffixes     []string          `yaml:"suffixes"`
	Aliases      map[string]string `yaml:"aliases"`
	Categories   []Category        `yaml:"categories"`
	RoleVariants RoleVariants      `yaml:"roleVariants"`
}

// Category is a bilingual drug class matched by keywords contained in a drug id.
type Category struct {
	IT       string   `yaml:"it"`
	EN       string   `yaml:"en"`
	Keywords []string `yaml:"keywords"`
}

// RoleVariants is the versioned table of accepted header spellings.
// Variants is keyed by role name (see entities.Role.String). Unassigned lists
// headers that are known metadata columns without a role.
type RoleVariants struct {
	Version    string              `yaml:"version"`
	Variants   map[string][]string `yaml:"variants"`
	Unassigned []string            `yaml:"unassigned"`
}

// DefaultRuleset returns the tables used by the hospital reference sheet.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Suffixes: []string{
			// Italian
			"CLORIDRATO", "DICLORIDRATO", "SOLFATO", "SODICO", "SODICA", "DISODICO",
			"FOSFATO", "ANIDRO", "BESILATO", "TARTRATO",
			// English
			"HYDROCHLORIDE", "DIHYDROCHLORIDE", "SULFATE", "SULPHATE", "DISODIUM", "SODIUM",
			"PHOSPHATE", "ANHYDROUS", "BESYLATE", "TARTRATE",
		},
		Aliases: map[string]string{
			"vancomicina":       "vancomycin",
			"amikacina":         "amikacin",
			"gentamicina":       "gentamicin",
			"noradrenalina":     "norepinephrine",
			"adrenalina":        "epinephrine",
			"dopamina":          "dopamine",
			"dobutamina":        "dobutamine",
			"eparina":           "heparin",
			"morfina":           "morphine",
			"fentanile":         "fentanyl",
			"insulina":          "insulin",
			"piperacillina":     "piperacillin",
			"lidocaina":         "lidocaine",
			"nitroglicerina":    "nitroglycerin",
			"vasopressina":      "vasopressin",
			"acido_tranexamico": "tranexamic_acid",
		},
		Categories: []Category{
			{IT: "Antibiotici", EN: "Antibiotics", Keywords: []string{"vancomycin", "amikacin", "gentamicin", "ceftriaxone", "piperacillin", "meropenem", "cillin", "mycin", "floxacin", "cef"}},
			{IT: "Diuretici", EN: "Diuretics", Keywords: []string{"furosemide", "bumetanide", "torasemide", "mannitol"}},
			{IT: "Vasopressori", EN: "Vasopressors", Keywords: []string{"norepinephrine", "epinephrine", "dopamine", "dobutamine", "vasopressin"}},
			{IT: "Sedativi/Analgesici", EN: "Sedatives/Analgesics", Keywords: []string{"midazolam", "propofol", "fentanyl", "remifentanil", "alfentanil", "dexmedetomidine", "ketamine", "morphine", "tramadol"}},
			{IT: "Anticoagulanti", EN: "Anticoagulants", Keywords: []string{"heparin", "enoxaparin", "alteplase", "tranexamic"}},
			{IT: "Antiaritmici", EN: "Antiarrhythmics", Keywords: []string{"amiodarone", "lidocaine", "procainamide"}},
			{IT: "Cardiovascolari", EN: "Cardiovascular", Keywords: []string{"diltiazem", "verapamil", "nitroglycerin", "adenosine"}},
			{IT: "Insuline", EN: "Insulins", Keywords: []string{"insulin"}},
			{IT: "Elettroliti", EN: "Electrolytes", Keywords: []string{"potassium", "potassio", "calcium", "calcio", "magnesium", "magnesio"}},
		},
		RoleVariants: RoleVariants{
			Version: "2025.12",
			Variants: map[string][]string{
				entities.RolePrimaryName.String(): {
					"PRINCIPIO ATTIVO", "PRINCIPI ATTIVI", "FARMACO", "FARMACI", "NOME", "DRUG", "ACTIVE INGREDIENT",
				},
				entities.RolePhotosensitive.String(): {
					"FOTOSENSIBILE", "FOTOSENSIBILITÀ", "FOTOSENSIBILITA'", "PHOTOSENSITIVE", "LIGHT SENSITIVE",
				},
				entities.RoleCentralLine.String(): {
					"NECESSITÀ DI CVC", "NECESSITA' DI CVC", "NECESSITÀ CVC", "CVC",
					"VIA CENTRALE / PERIFERICA", "VIA CENTRALE/PERIFERICA", "VIA CENTRALE",
					"CENTRAL LINE", "REQUIRES CVC",
				},
				entities.RoleConcentrationNotes.String(): {
					"NOTES/CONCENTRAZIONI", "NOTE/CONCENTRAZIONI", "NOTE / CONCENTRAZIONI", "NOTE CONCENTRAZIONI",
					"CONCENTRAZIONI", "CONCENTRAZIONE", "CONCENTRATION NOTES", "NOTES", "NOTE",
				},
				entities.RolePhlebitisRisk.String(): {
					"NOTO RISCHIO FLEBITE", "RISCHIO FLEBITE", "RISCHIO DI FLEBITE", "FLEBITE", "PHLEBITIS RISK",
				},
			},
			Unassigned: []string{"#", "N.", "N", "ID", "ATC", "NOTE INTERNE"},
		},
	}
}

// LoadRuleset reads a YAML ruleset. Sections missing from the file keep
// their defaults.
func LoadRuleset(path string) (*Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset %s: %w", path, err)
	}

	var loaded Ruleset
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset %s: %w", path, err)
	}

	rules := DefaultRuleset()
	if len(loaded.Suffixes) > 0 {
		rules.Suffixes = loaded.Suffixes
	}
	if len(loaded.Aliases) > 0 {
		rules.Aliases = loaded.Aliases
	}
	if len(loaded.Categories) > 0 {
		rules.Categories = loaded.Categories
	}
	if len(loaded.RoleVariants.Variants) > 0 {
		rules.RoleVariants = loaded.RoleVariants
	}

	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks that every role name is known and categories are named.
func (r *Ruleset) Validate() error {
	for name := range r.RoleVariants.Variants {
		if _, ok := entities.ParseRole(name); !ok {
			return fmt.Errorf("unknown role %q in role variants", name)
		}
	}
	for i, c := range r.Categories {
		if c.IT == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if len(c.Keywords) == 0 {
			return fmt.Errorf("category %q has no keywords", c.IT)
		}
	}
	return nil
}
