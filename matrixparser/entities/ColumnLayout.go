package entities

// Role is a metadata column role. The set is closed.
type Role int

const (
	RolePrimaryName Role = iota
	RolePhotosensitive
	RoleCentralLine
	RoleConcentrationNotes
	RolePhlebitisRisk

	roleCount
)

// Roles lists every role in column order of the reference sheet.
var Roles = []Role{RolePrimaryName, RolePhotosensitive, RoleCentralLine, RoleConcentrationNotes, RolePhlebitisRisk}

var roleNames = [roleCount]string{
	RolePrimaryName:        "primary-name",
	RolePhotosensitive:     "photosensitive",
	RoleCentralLine:        "central-line",
	RoleConcentrationNotes: "concentration-notes",
	RolePhlebitisRisk:      "phlebitis-risk",
}

func (r Role) String() string {
	if r < 0 || r >= roleCount {
		return "unknown"
	}
	return roleNames[r]
}

// ParseRole maps a role name as written in ruleset files back to a Role.
func ParseRole(name string) (Role, bool) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), true
		}
	}
	return 0, false
}

// DrugColumn is one column of the drug block.
type DrugColumn struct {
	Index  int
	Header string
}

// ColumnLayout is the classified shape of one table. It is a value: build it
// with NewColumnLayout and never modify it afterwards.
type ColumnLayout struct {
	metadata    [roleCount]int
	drugColumns []DrugColumn
	fallback    bool
}

// NewColumnLayout builds a layout. roles maps a role to its column index;
// drugColumns must be in increasing index order.
func NewColumnLayout(roles map[Role]int, drugColumns []DrugColumn, fallback bool) ColumnLayout {
	l := ColumnLayout{fallback: fallback}
	for i := range l.metadata {
		l.metadata[i] = -1
	}
	for r, idx := range roles {
		if r >= 0 && r < roleCount {
			l.metadata[r] = idx
		}
	}
	l.metadata[RolePrimaryName] = 0
	l.drugColumns = append([]DrugColumn(nil), drugColumns...)
	return l
}

// NameColumnIndex is always 0.
func (l ColumnLayout) NameColumnIndex() int {
	return 0
}

// Column returns the column index assigned to a role.
func (l ColumnLayout) Column(r Role) (int, bool) {
	if r < 0 || r >= roleCount || l.metadata[r] < 0 {
		return 0, false
	}
	return l.metadata[r], true
}

// DrugColumns returns a copy of the drug block columns.
func (l ColumnLayout) DrugColumns() []DrugColumn {
	return append([]DrugColumn(nil), l.drugColumns...)
}

// UsedFallback reports whether the drug block start came from the default offset.
func (l ColumnLayout) UsedFallback() bool {
	return l.fallback
}
