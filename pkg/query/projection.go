// Package query builds parameterized SELECT statements over a fixed column
// projection.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view field names to qualified columns of one aliased
// table. Only projected fields can be filtered or sorted on.
type ProjectionMap struct {
	table      string
	alias      string
	columns    map[string]string
	columnList []string
}

func NewProjectionMap(table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project adds column to the select list under viewName.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := fmt.Sprintf("%s.%s", p.alias, column)
	p.columns[viewName] = qualified
	p.columnList = append(p.columnList, qualified)
	return p
}

// From returns the aliased table reference.
func (p *ProjectionMap) From() string {
	return fmt.Sprintf("%s %s", p.table, p.alias)
}

// Column resolves a view field to its qualified column.
func (p *ProjectionMap) Column(viewName string) (string, bool) {
	col, ok := p.columns[viewName]
	return col, ok
}

// Columns returns the select list in projection order.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columnList, ", ")
}

// Select returns a SELECT over the full projection with no conditions.
func (p *ProjectionMap) Select() string {
	return fmt.Sprintf("SELECT %s FROM %s", p.Columns(), p.From())
}
