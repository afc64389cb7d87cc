package extract

import (
	"fmt"
	"strings"
)

// PropertyDefinition is one data row of a documentation table, normalized.
type PropertyDefinition struct {
	Name     string
	Type     string // raw vendor type text, e.g. "String" or "int?"
	Required bool
	Writable bool
	// Description has whitespace runs collapsed to single spaces.
	Description string
}

// Valid reports whether both name and type are non-blank.
func (p PropertyDefinition) Valid() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Type) != ""
}

func (p PropertyDefinition) String() string {
	return fmt.Sprintf("%s:%s(required=%t, writable=%t)", p.Name, p.Type, p.Required, p.Writable)
}

// Stats summarizes one table extraction.
type Stats struct {
	// Rows is the number of data rows (header excluded).
	Rows int
	// Parsed rows produced a PropertyDefinition.
	Parsed int
	// Skipped rows were malformed: too few cells for the name or type column.
	Skipped int
	// Blank rows had an empty name or type cell.
	Blank int
}
