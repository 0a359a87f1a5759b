package db

import (
	"fmt"
	"strings"
)

// SetBuilder assembles "UPDATE t SET a = @a, b = @b WHERE k = @k" from a
// fixed set of updatable columns. Only column names handed to NewSetBuilder
// can appear in the SQL text; values are always bound.
type SetBuilder struct {
	table   string
	allowed map[string]struct{}
	columns []string
	params  Params
}

func NewSetBuilder(table string, allowed ...string) *SetBuilder {
	set := make(map[string]struct{}, len(allowed))
	for _, c := range allowed {
		set[c] = struct{}{}
	}

	return &SetBuilder{
		table:   table,
		allowed: set,
		params:  Params{},
	}
}

// Set queues column = value. Setting the same column twice keeps one
// assignment with the last value.
func (b *SetBuilder) Set(column string, value any) error {
	if _, ok := b.allowed[column]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	if _, seen := b.params[column]; !seen {
		b.columns = append(b.columns, column)
	}
	b.params[column] = value

	return nil
}

func (b *SetBuilder) Len() int { return len(b.columns) }

// Build renders the statement keyed on keyColumn. The returned Params are a
// copy; the builder can keep being used.
func (b *SetBuilder) Build(keyColumn string, key any) (string, Params, error) {
	if len(b.columns) == 0 {
		return "", nil, ErrNoAssignments
	}

	assignments := make([]string, 0, len(b.columns))
	params := make(Params, len(b.params)+1)

	for _, c := range b.columns {
		assignments = append(assignments, c+" = @"+c)
		params[c] = b.params[c]
	}
	params[keyColumn] = key

	query := "UPDATE " + b.table + " SET " + strings.Join(assignments, ", ") + " WHERE " + keyColumn + " = @" + keyColumn

	return query, params, nil
}
