package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"user-events-service/internal/domain/user"
)

// assignment is one "column = @pN" entry of a SET clause.
type assignment struct {
	column string
	index  int
	value  any
}

// updateBuilder renders an UPDATE statement and its parameters together.
// Column names come from user.UserField only; values are always bound.
type updateBuilder struct {
	table       string
	assignments []assignment
}

func newUpdateBuilder(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

// Set adds an assignment when value is present. The identifier field is
// never assigned.
func (b *updateBuilder) Set(field user.UserField, value *string) *updateBuilder {
	if value == nil || field == user.FieldID {
		return b
	}
	b.assignments = append(b.assignments, assignment{
		column: field.Column(),
		index:  len(b.assignments) + 1,
		value:  *value,
	})
	return b
}

// Empty reports whether no assignment was collected.
func (b *updateBuilder) Empty() bool {
	return len(b.assignments) == 0
}

// Build returns the statement and its named arguments. The id placeholder
// takes the index after the last assignment.
func (b *updateBuilder) Build(id int64) (string, []any) {
	sets := make([]string, 0, len(b.assignments))
	args := make([]any, 0, len(b.assignments)+1)
	for _, a := range b.assignments {
		name := placeholder(a.index)
		sets = append(sets, fmt.Sprintf("%s = @%s", a.column, name))
		args = append(args, sql.Named(name, a.value))
	}

	idName := placeholder(len(b.assignments) + 1)
	args = append(args, sql.Named(idName, id))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = @%s",
		b.table, strings.Join(sets, ", "), user.FieldID.Column(), idName)
	return query, args
}

func placeholder(index int) string {
	return fmt.Sprintf("p%d", index)
}
