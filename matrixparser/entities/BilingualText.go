package entities

import "strings"

// BilingualText holds a human-facing string in the primary (Italian) and
// secondary (English) locale.
type BilingualText struct {
	Primary   string `json:"it"`
	Secondary string `json:"en"`
}

// Wrap builds a BilingualText. The secondary text defaults to the trimmed
// primary when no translation is given or the translation is blank.
func Wrap(primary string, secondary ...string) BilingualText {
	p := strings.TrimSpace(primary)
	s := p
	if len(secondary) > 0 {
		if t := strings.TrimSpace(secondary[0]); t != "" {
			s = t
		}
	}
	return BilingualText{Primary: p, Secondary: s}
}

// IsEmpty reports whether the text represents "no data".
func (b BilingualText) IsEmpty() bool {
	return b.Primary == "" && b.Secondary == ""
}
