package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
)

// Role is the logical meaning of a table column.
type Role int

const (
	RoleName Role = iota
	RoleType
	RoleRequired
	RoleWritable
	RoleDescription
)

// roleOrder is also the tie-break order when two roles score the same.
var roleOrder = []Role{RoleName, RoleType, RoleRequired, RoleWritable, RoleDescription}

func (r Role) String() string {
	switch r {
	case RoleName:
		return "name"
	case RoleType:
		return "type"
	case RoleRequired:
		return "required"
	case RoleWritable:
		return "writable"
	case RoleDescription:
		return "description"
	default:
		return "unknown"
	}
}

// columnPatterns lists the header spellings recognized per role, in folded
// (lower) case. Read-only after init.
var columnPatterns = map[Role][]string{
	RoleName:        {"property name", "field name", "name", "property", "field"},
	RoleType:        {"property type", "field type", "data type", "datatype", "type", "format"},
	RoleRequired:    {"required", "mandatory", "req"},
	RoleWritable:    {"writable", "writeable", "editable", "write"},
	RoleDescription: {"description", "details", "notes", "desc"},
}

// similarityThreshold is the minimum letter-set overlap for the fuzzy
// fallback; the comparison is strict.
const similarityThreshold = 0.7

// minFuzzyLen keeps short tokens out of the fuzzy fallback, where a couple
// of shared letters would otherwise look like a match.
const minFuzzyLen = 4

// ColumnMap maps a role to the zero-based index of its header cell.
type ColumnMap map[Role]int

// Index returns the cell index for role.
func (m ColumnMap) Index(role Role) (int, bool) {
	i, ok := m[role]
	return i, ok
}

// Missing returns the roles from want that have no column, in want order.
func (m ColumnMap) Missing(want ...Role) []Role {
	var out []Role
	for _, r := range want {
		if _, ok := m[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Roles returns the mapped roles sorted by column index.
func (m ColumnMap) Roles() []Role {
	out := make([]Role, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return m[out[i]] < m[out[j]] })
	return out
}

// IdentifyColumns classifies each header text into a role. Columns are
// visited left to right; a role keeps the first (leftmost) column that
// classified into it and later columns of the same role are ignored.
func IdentifyColumns(headers []string) ColumnMap {
	m := ColumnMap{}
	for i, h := range headers {
		role, ok := ClassifyHeader(h)
		if !ok {
			continue
		}
		if _, taken := m[role]; taken {
			continue
		}
		m[role] = i
	}
	return m
}

// ClassifyHeader returns the best role for one header cell text.
//
// Scoring, highest wins: an exact match of the whole text, then substring
// containment of the longest pattern, then letter-set similarity above
// similarityThreshold. Equal scores go to the role listed first in roleOrder.
func ClassifyHeader(text string) (Role, bool) {
	norm := normalizeHeader(text)
	if norm == "" {
		return 0, false
	}

	bestRole, bestScore := Role(0), 0
	for _, role := range roleOrder {
		for _, p := range columnPatterns[role] {
			score := 0
			switch {
			case norm == p:
				score = 1000 + len(p)
			case strings.Contains(norm, p):
				score = len(p)
			}
			if score > bestScore {
				bestRole, bestScore = role, score
			}
		}
	}
	if bestScore > 0 {
		return bestRole, true
	}

	bestRatio := 0.0
	for _, role := range roleOrder {
		for _, p := range columnPatterns[role] {
			r := letterSimilarity(norm, p)
			if r > similarityThreshold && r > bestRatio {
				bestRole, bestRatio = role, r
			}
		}
	}
	return bestRole, bestRatio > 0
}

func normalizeHeader(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// letterSimilarity is the Jaccard ratio of the letter sets of a and b.
// Tokens shorter than minFuzzyLen letters score 0.
func letterSimilarity(a, b string) float64 {
	sa, sb := letterSet(a), letterSet(b)
	if len(sa) == 0 || len(sb) == 0 || countLetters(a) < minFuzzyLen || countLetters(b) < minFuzzyLen {
		return 0
	}

	inter := 0
	for r := range sa {
		if _, ok := sb[r]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func letterSet(s string) map[rune]struct{} {
	out := make(map[rune]struct{})
	for _, r := range s {
		if unicode.IsLetter(r) {
			out[r] = struct{}{}
		}
	}
	return out
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// cellTexts returns the trimmed text of a row's own th/td cells. Cells of
// tables nested inside a cell are not counted.
func cellTexts(row *goquery.Selection) []string {
	cells := row.ChildrenFiltered("th, td")
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}
