package repository

import (
	"strconv"
	"strings"
)

// Filter accumulates WHERE predicates and their bound arguments. Predicates
// use '?' as the argument marker; Filter rewrites them to pgx's $n form in
// the order they were added, continuing after any base arguments.
type Filter struct {
	clauses []string
	args    []any
}

// NewFilter starts a filter whose first arguments are base, referenced in
// the base query as $1..$len(base).
func NewFilter(base ...any) *Filter {
	return &Filter{args: append([]any(nil), base...)}
}

// Where adds a predicate. The number of '?' markers must match len(args).
func (f *Filter) Where(clause string, args ...any) *Filter {
	var b strings.Builder
	next := 0
	for _, r := range clause {
		if r == '?' && next < len(args) {
			f.args = append(f.args, args[next])
			next++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(len(f.args)))
			continue
		}
		b.WriteRune(r)
	}
	f.clauses = append(f.clauses, b.String())
	return f
}

// WhereIf adds the predicate only when cond holds.
func (f *Filter) WhereIf(cond bool, clause string, args ...any) *Filter {
	if cond {
		return f.Where(clause, args...)
	}
	return f
}

// Empty reports whether no predicate has been added.
func (f *Filter) Empty() bool {
	return len(f.clauses) == 0
}

// And renders the predicates as " AND a AND b", for appending to a query
// that already has a WHERE clause.
func (f *Filter) And() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(f.clauses, " AND ")
}

// SQL renders the predicates as a full " WHERE ..." clause.
func (f *Filter) SQL() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// Join renders the clauses separated by sep.
func (f *Filter) Join(sep string) string {
	return strings.Join(f.clauses, sep)
}

// Args returns the bound arguments in placeholder order.
func (f *Filter) Args() []any {
	return f.args
}

// Contains wraps s for a LIKE match anywhere in the column.
func Contains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
