// Package extract turns an HTML documentation table into property
// definitions.
//
// The header row is the first row of the table. Its cells are matched
// against per-role spellings (see ClassifyHeader) so that tables titled
// "Property Name | Data Type | Mandatory" and "Name | Type | Required" read
// the same. Structural problems fail the whole table; a malformed data row
// is skipped with a warning so one broken row does not lose the section.
package extract

import (
	"strings"

	"apiweaver/internal/apierr"
	"apiweaver/internal/metrics"

	"github.com/PuerkitoBio/goquery"
)

const stage = "extract"

// Defaults applied when an optional column is absent or its text is not a
// recognized boolean token.
const (
	DefaultRequired = false
	DefaultWritable = true
)

// Extractor extracts property definitions from tables.
// The zero value is ready to use and discards warnings.
type Extractor struct {
	// Warnf receives one line per skipped row. Optional.
	Warnf func(format string, args ...any)
}

func (e *Extractor) warnf(format string, args ...any) {
	if e != nil && e.Warnf != nil {
		e.Warnf(format, args...)
	}
}

// ExtractProperties returns one PropertyDefinition per valid data row, in row
// order.
func (e *Extractor) ExtractProperties(table *goquery.Selection) ([]PropertyDefinition, error) {
	props, _, err := e.ExtractWithStats(table)
	return props, err
}

// ExtractWithStats is ExtractProperties plus row accounting.
//
// It fails with an extraction error when table is nil or empty, is not a
// <table>, has no rows, has an empty header row, lacks a name or type
// column, or yields no valid property.
func (e *Extractor) ExtractWithStats(table *goquery.Selection) ([]PropertyDefinition, Stats, error) {
	var stats Stats

	if table == nil || table.Length() == 0 {
		return nil, stats, apierr.New(apierr.KindExtraction, stage, "", "table element is nil")
	}
	if tag := goquery.NodeName(table); tag != "table" {
		return nil, stats, apierr.New(apierr.KindExtraction, stage, tag, "element is not a table: <%s>", tag)
	}
	table = table.First()

	rows := ownRows(table)
	if rows.Length() == 0 {
		return nil, stats, apierr.New(apierr.KindExtraction, stage, "", "table contains no rows")
	}

	headers := cellTexts(rows.First())
	if len(headers) == 0 {
		return nil, stats, apierr.New(apierr.KindExtraction, stage, "", "header row contains no cells")
	}

	cols := IdentifyColumns(headers)
	if missing := cols.Missing(RoleName, RoleType); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, r := range missing {
			names[i] = r.String()
		}
		return nil, stats, apierr.New(apierr.KindExtraction, stage, strings.Join(headers, " | "),
			"missing required columns: %s", strings.Join(names, ", "))
	}

	var props []PropertyDefinition
	rows.Slice(1, rows.Length()).Each(func(i int, row *goquery.Selection) {
		stats.Rows++
		rowNum := i + 2 // 1-based, header is row 1

		cells := cellTexts(row)
		name, okName := cellAt(cells, cols, RoleName)
		typ, okType := cellAt(cells, cols, RoleType)
		if !okName || !okType {
			stats.Skipped++
			e.warnf("skipping row %d: %d cell(s), need name column %d and type column %d",
				rowNum, len(cells), cols[RoleName]+1, cols[RoleType]+1)
			return
		}
		if name == "" || typ == "" {
			stats.Blank++
			return
		}

		req, _ := cellAt(cells, cols, RoleRequired)
		wr, _ := cellAt(cells, cols, RoleWritable)
		desc, _ := cellAt(cells, cols, RoleDescription)

		props = append(props, PropertyDefinition{
			Name:        name,
			Type:        typ,
			Required:    ParseBool(req, DefaultRequired),
			Writable:    ParseBool(wr, DefaultWritable),
			Description: normalizeSpace(desc),
		})
		stats.Parsed++
	})

	metrics.IncCounter(metrics.RowsTotal, float64(stats.Parsed), metrics.Labels{"status": "parsed"})
	metrics.IncCounter(metrics.RowsTotal, float64(stats.Skipped), metrics.Labels{"status": "skipped"})
	metrics.IncCounter(metrics.RowsTotal, float64(stats.Blank), metrics.Labels{"status": "blank"})

	if len(props) == 0 {
		return nil, stats, apierr.New(apierr.KindExtraction, stage, "",
			"no valid properties extracted from table (%d data rows)", stats.Rows)
	}
	return props, stats, nil
}

// ExtractProperties runs a zero-value Extractor.
func ExtractProperties(table *goquery.Selection) ([]PropertyDefinition, error) {
	var e Extractor
	return e.ExtractProperties(table)
}

// ownRows returns the rows that belong to table itself, excluding rows of
// tables nested inside its cells.
func ownRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})
}

// cellAt returns the cell text for role. ok is false when the role has no
// column or the row is too short to reach it.
func cellAt(cells []string, cols ColumnMap, role Role) (string, bool) {
	i, ok := cols.Index(role)
	if !ok || i >= len(cells) {
		return "", false
	}
	return cells[i], true
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
