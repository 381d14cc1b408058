package matrixparser

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

// ErrEmptyLabel is returned when a label has nothing left to identify a drug.
var ErrEmptyLabel = errors.New("empty drug label")

// idPunctuation lists the characters besides a-z and 0-9 kept in ids.
// Anything else acts as a word joiner.
const idPunctuation = "%+().,'-"

// Normalizer maps free-text drug labels to canonical identifiers.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	suffixes []string
	aliases  map[string]entities.DrugID
}

// NewNormalizer builds a normalizer. Suffixes are matched longest first so
// that DICLORIDRATO is removed before CLORIDRATO can split it.
// Alias keys are normalized the same way labels are.
func NewNormalizer(suffixes []string, aliases map[string]string) *Normalizer {
	sorted := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		s = strings.ToUpper(foldAccents(strings.TrimSpace(s)))
		if s != "" {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	normalizedAliases := make(map[string]entities.DrugID, len(aliases))
	for from, to := range aliases {
		normalizedAliases[canonicalForm(from)] = entities.DrugID(canonicalForm(to))
	}

	return &Normalizer{suffixes: sorted, aliases: normalizedAliases}
}

// Normalize returns the canonical identifier for a label.
func (n *Normalizer) Normalize(raw string) (entities.DrugID, error) {
	id, _, err := n.Resolve(raw)
	return id, err
}

// Resolve is Normalize that also reports whether an alias was applied.
func (n *Normalizer) Resolve(raw string) (entities.DrugID, bool, error) {
	if strings.TrimSpace(raw) == "" {
		return "", false, ErrEmptyLabel
	}

	name := strings.ToUpper(foldAccents(raw))
	for _, suffix := range n.suffixes {
		name = strings.ReplaceAll(name, suffix, " ")
	}

	base := canonicalForm(name)
	if base == "" {
		return "", false, fmt.Errorf("%w: %q has no name left after suffix removal", ErrEmptyLabel, raw)
	}

	if alias, ok := n.aliases[base]; ok {
		return alias, true, nil
	}
	return entities.DrugID(base), false, nil
}

func isIDRune(r rune) bool {
	return ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || strings.ContainsRune(idPunctuation, r)
}

// canonicalForm lower-cases, folds accents and joins the runs of id
// characters with single underscores. Unicode spaces, slashes and any
// symbol outside the id alphabet separate words.
func canonicalForm(s string) string {
	s = strings.ToLower(foldAccents(s))

	var b strings.Builder
	b.Grow(len(s))
	join := false
	for _, r := range s {
		if !isIDRune(r) {
			join = true
			continue
		}
		if join && b.Len() > 0 {
			b.WriteByte('_')
		}
		join = false
		b.WriteRune(r)
	}
	return b.String()
}

// strayRunes returns the characters of a label that are neither id
// characters nor separators, in order of appearance.
func strayRunes(label string) string {
	var stray []rune
	for _, r := range strings.ToLower(foldAccents(label)) {
		if isIDRune(r) || unicode.IsSpace(r) || r == '/' || r == '\\' || r == '_' {
			continue
		}
		stray = append(stray, r)
	}
	return string(stray)
}
