package user

import (
	"fmt"
	"strings"
)

// UserField names a mutable or sortable attribute of a User.
// Each field maps to exactly one column of the users table.
type UserField string

const (
	FieldID    UserField = "id"
	FieldName  UserField = "name"
	FieldEmail UserField = "email"
)

var fieldColumns = map[UserField]string{
	FieldID:    "id",
	FieldName:  "name",
	FieldEmail: "email",
}

// ParseUserField converts s into a UserField, rejecting unknown names.
func ParseUserField(s string) (UserField, error) {
	f := UserField(s)
	if _, ok := fieldColumns[f]; !ok {
		return "", fmt.Errorf("unknown user field %q", s)
	}
	return f, nil
}

// Column returns the store column for the field.
// Only these fixed names are ever interpolated into statement text.
func (f UserField) Column() string {
	return fieldColumns[f]
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *UserField) UnmarshalText(text []byte) error {
	parsed, err := ParseUserField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// SortOrder is the direction of a list ordering.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder accepts "asc" or "desc" in any letter case.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(s)); o {
	case SortAsc, SortDesc:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// SQL renders the order as used in an ORDER BY clause.
func (o SortOrder) SQL() string {
	if o == SortDesc {
		return "DESC"
	}
	return "ASC"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *SortOrder) UnmarshalText(text []byte) error {
	parsed, err := ParseSortOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
