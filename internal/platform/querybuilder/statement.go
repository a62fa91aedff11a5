package querybuilder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNoTable = errors.New("querybuilder: table is required")

func itoa(n int) string { return strconv.Itoa(n) }

type SelectBuilder struct {
	table   string
	columns []string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

func (b *SelectBuilder) From(table string) *SelectBuilder { b.table = table; return b }

func (b *SelectBuilder) Where(conds ...Condition) *SelectBuilder {
	b.where = append(b.where, conds...)
	return b
}

func (b *SelectBuilder) OrderBy(terms ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, terms...)
	return b
}

// Limit caps the row count; n <= 0 means no limit.
func (b *SelectBuilder) Limit(n int) *SelectBuilder { b.limit = n; return b }

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if b.table == "" {
		return "", nil, errNoTable
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select from %s: no columns", b.table)
	}
	var w sqlWriter
	w.write("SELECT ", strings.Join(b.columns, ", "), " FROM ", b.table)
	w.where(b.where)
	w.clause("ORDER BY ", strings.Join(b.orderBy, ", "))
	if b.limit > 0 {
		w.clause("LIMIT ", itoa(b.limit))
	}
	return w.result()
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder { return &InsertBuilder{table: table} }

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder { b.columns = columns; return b }

// Values adds one row; it must match Columns in length.
func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, values)
	return b
}

// Suffix appends raw SQL such as ON CONFLICT or RETURNING.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case b.table == "":
		return "", nil, errNoTable
	case len(b.columns) == 0, len(b.rows) == 0:
		return "", nil, fmt.Errorf("insert into %s: columns and values are required", b.table)
	}
	var w sqlWriter
	w.write("INSERT INTO ", b.table, " (", strings.Join(b.columns, ", "), ") VALUES ")
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert into %s: row %d has %d values for %d columns", b.table, i, len(row), len(b.columns))
		}
		if i > 0 {
			w.write(", ")
		}
		w.write("(")
		for j, v := range row {
			if j > 0 {
				w.write(", ")
			}
			w.bind(v)
		}
		w.write(")")
	}
	w.clause("", b.suffix)
	return w.result()
}

type assignment struct {
	column string
	value  any
	sql    string
	args   []any
}

type UpdateBuilder struct {
	table string
	sets  []assignment
	where []Condition
}

func Update(table string) *UpdateBuilder { return &UpdateBuilder{table: table} }

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, value: value})
	return b
}

// SetExpr assigns raw SQL, binding '?' like Expr.
func (b *UpdateBuilder) SetExpr(column, sql string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, sql: sql, args: args})
	return b
}

func (b *UpdateBuilder) Where(conds ...Condition) *UpdateBuilder {
	b.where = append(b.where, conds...)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if b.table == "" {
		return "", nil, errNoTable
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update %s: nothing to set", b.table)
	}
	var w sqlWriter
	w.write("UPDATE ", b.table, " SET ")
	for i, s := range b.sets {
		if i > 0 {
			w.write(", ")
		}
		w.write(s.column, " = ")
		if s.sql != "" {
			w.expr(s.sql, s.args)
		} else {
			w.bind(s.value)
		}
	}
	w.where(b.where)
	return w.result()
}

type DeleteBuilder struct {
	table string
	where []Condition
}

func DeleteFrom(table string) *DeleteBuilder { return &DeleteBuilder{table: table} }

func (b *DeleteBuilder) Where(conds ...Condition) *DeleteBuilder {
	b.where = append(b.where, conds...)
	return b
}

// ToSQL refuses to render a DELETE without conditions.
func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if b.table == "" {
		return "", nil, errNoTable
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("delete from %s: refusing to delete without a condition", b.table)
	}
	var w sqlWriter
	w.write("DELETE FROM ", b.table)
	w.where(b.where)
	return w.result()
}
