package postgres

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a parameterized WHERE clause.
// Column names are trusted identifiers supplied by this package; values
// always travel as arguments.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "col = value". Empty values are skipped.
func (wb *WhereBuilder) Add(col, value string) {
	if value == "" {
		return
	}
	wb.addCond(col+" = $%d", value)
}

// AddOwner appends a filter matching records owned by userID or by nobody.
// An empty userID matches every record.
func (wb *WhereBuilder) AddOwner(col, userID string) {
	if userID == "" {
		return
	}
	wb.addCond("("+col+" = $%d OR "+col+" = '')", userID)
}

// AddIn appends "col = ANY(values)". An empty slice is skipped.
func (wb *WhereBuilder) AddIn(col string, values []string) {
	if len(values) == 0 {
		return
	}
	wb.addCond(col+" = ANY($%d)", values)
}

// AddBefore appends "col < t".
func (wb *WhereBuilder) AddBefore(col string, t any) {
	wb.addCond(col+" < $%d", t)
}

// AddSearch appends a case-insensitive substring match over exprs.
// An empty query or no expressions is skipped.
func (wb *WhereBuilder) AddSearch(query string, exprs ...string) {
	if query == "" || len(exprs) == 0 {
		return
	}
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", e, wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+escapeLike(query)+"%")
	wb.argIndex++
}

func (wb *WhereBuilder) addCond(format string, arg any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf(format, wb.argIndex))
	wb.args = append(wb.args, arg)
	wb.argIndex++
}

// Build returns the clause with a leading " WHERE ", or "" and nil args
// when no condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex is the placeholder number the next argument will take.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// escapeLike escapes the ILIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
