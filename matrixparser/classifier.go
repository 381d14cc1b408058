package matrixparser

import (
	"fmt"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

// DefaultDrugOffset is the first drug column of the reference sheet layout,
// used when no header marks the start of the drug block.
const DefaultDrugOffset = 5

// Classifier assigns roles to header columns and finds the drug block.
type Classifier struct {
	version    string
	variants   map[string]entities.Role
	unassigned map[string]bool
	offset     int
}

func NewClassifier(rv RoleVariants) *Classifier {
	c := &Classifier{
		version:    rv.Version,
		variants:   make(map[string]entities.Role),
		unassigned: make(map[string]bool),
		offset:     DefaultDrugOffset,
	}
	for name, spellings := range rv.Variants {
		role, ok := entities.ParseRole(name)
		if !ok {
			continue
		}
		for _, s := range spellings {
			if key := foldHeader(s); key != "" {
				c.variants[key] = role
			}
		}
	}
	for _, s := range rv.Unassigned {
		if key := foldHeader(s); key != "" {
			c.unassigned[key] = true
		}
	}
	return c
}

// Version identifies the header spelling table in use.
func (c *Classifier) Version() string {
	return c.version
}

// Classify maps headers to a layout. Column 0 is always the primary name.
// Scanning from column 1, the first header that is neither a role variant,
// a known unassigned column, nor blank opens the drug block, which then runs
// to the last column.
func (c *Classifier) Classify(headers []string) (entities.ColumnLayout, []entities.Diagnostic) {
	var diags []entities.Diagnostic
	roles := map[entities.Role]int{entities.RolePrimaryName: 0}
	boundary := -1

	for i := 1; i < len(headers); i++ {
		key := foldHeader(headers[i])
		if key == "" || c.unassigned[key] {
			continue
		}
		role, ok := c.variants[key]
		if !ok {
			boundary = i
			break
		}
		if prev, taken := roles[role]; taken {
			diags = append(diags, entities.Diagnostic{
				Kind:    entities.KindDuplicateRole,
				Row:     -1,
				Column:  i,
				Value:   headers[i],
				Message: fmt.Sprintf("column %q repeats role %s already held by column %d, left unassigned", headers[i], role, prev),
			})
			continue
		}
		roles[role] = i
	}

	fallback := boundary < 0
	if fallback {
		boundary = c.offset
		for role, idx := range roles {
			if role != entities.RolePrimaryName && idx >= boundary {
				delete(roles, role)
			}
		}
		diags = append(diags, entities.Diagnostic{
			Kind:    entities.KindLayoutFallback,
			Row:     -1,
			Column:  boundary,
			Message: fmt.Sprintf("no drug column found in header, assuming drug block starts at column %d", boundary),
		})
	}

	var drugColumns []entities.DrugColumn
	for i := boundary; i < len(headers); i++ {
		drugColumns = append(drugColumns, entities.DrugColumn{Index: i, Header: headers[i]})
	}

	return entities.NewColumnLayout(roles, drugColumns, fallback), diags
}
