package matrixparser

import (
	"strings"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

// DefaultCategory is assigned when no keyword matches.
var DefaultCategory = entities.Wrap("Altro", "Other")

type categoryRule struct {
	label    entities.BilingualText
	keywords []string
}

// CategoryClassifier assigns a therapeutic class from the drug id.
// Rules are tried in order and the first keyword contained in the id wins.
type CategoryClassifier struct {
	rules []categoryRule
}

func NewCategoryClassifier(categories []Category) *CategoryClassifier {
	rules := make([]categoryRule, 0, len(categories))
	for _, c := range categories {
		keywords := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			if k = canonicalForm(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		rules = append(rules, categoryRule{label: entities.Wrap(c.IT, c.EN), keywords: keywords})
	}
	return &CategoryClassifier{rules: rules}
}

func (c *CategoryClassifier) Classify(id entities.DrugID) entities.BilingualText {
	for _, rule := range c.rules {
		for _, k := range rule.keywords {
			if strings.Contains(string(id), k) {
				return rule.label
			}
		}
	}
	return DefaultCategory
}
