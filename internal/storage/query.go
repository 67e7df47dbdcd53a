package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Query builds a SELECT statement with "?" placeholders, which both the
// DuckDB and the SQLite driver accept.
type Query struct {
	table   string
	columns []string
	where   []clause
	orderBy []string
	limit   int
}

type clause struct {
	expr string
	args []any
}

// NewQuery starts a query over table.
func NewQuery(table string) *Query {
	return &Query{table: table}
}

// Select sets the result columns. Without it the query selects *.
func (q *Query) Select(columns ...string) *Query {
	q.columns = append(q.columns, columns...)
	return q
}

// Where adds a condition; conditions are joined with AND.
func (q *Query) Where(expr string, args ...any) *Query {
	q.where = append(q.where, clause{expr: expr, args: args})
	return q
}

// Eq adds column = value. An empty string value is skipped so that optional
// filters can be passed through unconditionally.
func (q *Query) Eq(column string, value any) *Query {
	if s, ok := value.(string); ok && s == "" {
		return q
	}
	return q.Where(column+" = ?", value)
}

// Between adds column BETWEEN lo AND hi.
func (q *Query) Between(column string, lo, hi any) *Query {
	return q.Where(column+" BETWEEN ? AND ?", lo, hi)
}

// OrderBy appends sort keys; a leading "-" sorts descending.
func (q *Query) OrderBy(columns ...string) *Query {
	for _, c := range columns {
		if rest, ok := strings.CutPrefix(c, "-"); ok {
			c = rest + " DESC"
		}
		q.orderBy = append(q.orderBy, c)
	}
	return q
}

// Limit caps the number of rows. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Build renders the statement and its arguments.
func (q *Query) Build() (string, []any, error) {
	if q.table == "" {
		return "", nil, errors.New("query: table name is required")
	}

	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if len(q.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(q.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(q.table)

	if len(q.where) > 0 {
		exprs := make([]string, len(q.where))
		for i, w := range q.where {
			exprs[i] = w.expr
			args = append(args, w.args...)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(exprs, " AND "))
	}

	if len(q.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.orderBy, ", "))
	}

	if q.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}

	return b.String(), args, nil
}
