package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Format selects how bind placeholders are rendered.
type Format int

const (
	// Dollar renders $1, $2, ... (PostgreSQL).
	Dollar Format = iota
	// Question renders ? (SQLite, MySQL).
	Question
)

// Builder creates statements for one placeholder format.
type Builder struct {
	format Format
}

func New(format Format) Builder {
	return Builder{format: format}
}

func (b Builder) Format() Format { return b.format }

func (b Builder) Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{format: b.format, columns: append([]string(nil), columns...)}
}

func (b Builder) InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{format: b.format, table: table}
}

func (b Builder) DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{format: b.format, table: table}
}

type writer struct {
	buf    strings.Builder
	args   []any
	next   int
	format Format
}

func newWriter(format Format) *writer {
	return &writer{next: 1, format: format}
}

func (w *writer) bind(value any) {
	w.buf.WriteString(w.placeholder())
	w.args = append(w.args, value)
}

func (w *writer) placeholder() string {
	if w.format == Question {
		w.next++
		return "?"
	}
	p := "$" + strconv.Itoa(w.next)
	w.next++
	return p
}

// expr copies an expression, binding exprArgs to its '?' markers in order.
func (w *writer) expr(expr string, exprArgs []any) {
	if len(exprArgs) == 0 {
		w.buf.WriteString(expr)
		return
	}
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && next < len(exprArgs) {
			w.bind(exprArgs[next])
			next++
			continue
		}
		w.buf.WriteByte(expr[i])
	}
}

func (w *writer) where(conditions []Condition) {
	if len(conditions) == 0 {
		return
	}
	w.buf.WriteString(" WHERE ")
	for i, c := range conditions {
		if i > 0 {
			w.buf.WriteString(" AND ")
		}
		c.appendSQL(w)
	}
}

func (w *writer) list(keyword string, parts []string) {
	if len(parts) == 0 {
		return
	}
	w.buf.WriteString(keyword)
	w.buf.WriteString(strings.Join(parts, ", "))
}

type SelectBuilder struct {
	format  Format
	columns []string
	table   string
	where   []Condition
	groupBy []string
	orderBy []string
	limit   int
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) GroupBy(parts ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	w := newWriter(b.format)
	w.buf.WriteString("SELECT ")
	w.buf.WriteString(strings.Join(b.columns, ", "))
	w.buf.WriteString(" FROM ")
	w.buf.WriteString(b.table)
	w.where(b.where)
	w.list(" GROUP BY ", b.groupBy)
	w.list(" ORDER BY ", b.orderBy)
	if b.limit > 0 {
		w.buf.WriteString(" LIMIT ")
		w.buf.WriteString(strconv.Itoa(b.limit))
	}

	return w.buf.String(), w.args, nil
}

type InsertBuilder struct {
	format  Format
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	w := newWriter(b.format)
	w.buf.WriteString("INSERT INTO ")
	w.buf.WriteString(b.table)
	w.buf.WriteString(" (")
	w.buf.WriteString(strings.Join(b.columns, ", "))
	w.buf.WriteString(") VALUES ")

	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			w.buf.WriteString(", ")
		}
		w.buf.WriteString("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				w.buf.WriteString(", ")
			}
			w.bind(value)
		}
		w.buf.WriteString(")")
	}

	if b.suffix != "" {
		w.buf.WriteString(" ")
		w.buf.WriteString(b.suffix)
	}

	return w.buf.String(), w.args, nil
}

type DeleteBuilder struct {
	format Format
	table  string
	where  []Condition
}

func (b *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	b.where = append(b.where, conditions...)
	return b
}

// ToSQL refuses to build an unconditional delete.
func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("delete table is required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("delete from %s requires a where clause", b.table)
	}

	w := newWriter(b.format)
	w.buf.WriteString("DELETE FROM ")
	w.buf.WriteString(b.table)
	w.where(b.where)

	return w.buf.String(), w.args, nil
}

// OnConflictUpdate renders an upsert suffix that overwrites cols from the
// incoming row when keys collide. With no cols it renders DO NOTHING.
func OnConflictUpdate(keys []string, cols []string) string {
	var buf strings.Builder
	buf.WriteString("ON CONFLICT (")
	buf.WriteString(strings.Join(keys, ", "))
	buf.WriteString(")")

	isKey := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		isKey[k] = struct{}{}
	}
	updates := make([]string, 0, len(cols))
	for _, c := range cols {
		if _, ok := isKey[c]; ok {
			continue
		}
		updates = append(updates, c+" = excluded."+c)
	}
	if len(updates) == 0 {
		buf.WriteString(" DO NOTHING")
		return buf.String()
	}
	buf.WriteString(" DO UPDATE SET ")
	buf.WriteString(strings.Join(updates, ", "))
	return buf.String()
}
