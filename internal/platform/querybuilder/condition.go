// Package querybuilder renders the small set of Postgres statements the
// repositories need, numbering placeholders as $1..$n.
package querybuilder

import "strings"

// Condition is one AND-ed term of a WHERE clause.
type Condition interface {
	render(w *sqlWriter)
}

type comparison struct {
	column, op string
	value      any
}

func (c comparison) render(w *sqlWriter) {
	w.write(c.column, " ", c.op, " ")
	w.bind(c.value)
}

func Eq(column string, value any) Condition  { return comparison{column, "=", value} }
func Gte(column string, value any) Condition { return comparison{column, ">=", value} }
func Lt(column string, value any) Condition  { return comparison{column, "<", value} }
func Lte(column string, value any) Condition { return comparison{column, "<=", value} }

type membership struct {
	column string
	values []string
}

// InStrings matches column against values. An empty list matches nothing.
func InStrings(column string, values []string) Condition {
	return membership{column: column, values: values}
}

func (c membership) render(w *sqlWriter) {
	if len(c.values) == 0 {
		w.write("FALSE")
		return
	}
	w.write(c.column, " IN (")
	for i, v := range c.values {
		if i > 0 {
			w.write(", ")
		}
		w.bind(v)
	}
	w.write(")")
}

type nullCheck string

func IsNull(column string) Condition { return nullCheck(column) }

func (c nullCheck) render(w *sqlWriter) { w.write(string(c), " IS NULL") }

type rawExpr struct {
	sql  string
	args []any
}

// Expr embeds raw SQL; each '?' is bound to the next arg.
func Expr(sql string, args ...any) Condition { return rawExpr{sql: sql, args: args} }

func (e rawExpr) render(w *sqlWriter) { w.expr(e.sql, e.args) }

// sqlWriter accumulates statement text and its bound arguments.
type sqlWriter struct {
	sb   strings.Builder
	args []any
}

func (w *sqlWriter) write(parts ...string) {
	for _, p := range parts {
		w.sb.WriteString(p)
	}
}

func (w *sqlWriter) bind(value any) {
	w.args = append(w.args, value)
	w.sb.WriteByte('$')
	w.sb.WriteString(itoa(len(w.args)))
}

func (w *sqlWriter) expr(sql string, args []any) {
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' && len(args) > 0 {
			w.bind(args[0])
			args = args[1:]
			continue
		}
		w.sb.WriteByte(sql[i])
	}
}

func (w *sqlWriter) where(conds []Condition) {
	for i, c := range conds {
		if i == 0 {
			w.write(" WHERE ")
		} else {
			w.write(" AND ")
		}
		c.render(w)
	}
}

func (w *sqlWriter) clause(keyword, value string) {
	if value != "" {
		w.write(" ", keyword, value)
	}
}

func (w *sqlWriter) result() (string, []any, error) {
	return w.sb.String(), w.args, nil
}
