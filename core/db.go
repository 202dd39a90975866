package core

import (
	"fmt"
	"strings"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings maps API field names to column names using `allowed` ({apiField: column}).
// Unknown fields are rejected so that orderings can be safely interpolated into SQL.
func CleanOrderings(orderings []DBOrdering, allowed map[string]string) ([]DBOrdering, error) {
	if len(orderings) == 0 {
		return nil, nil
	}
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := allowed[ord.Field]
		if !ok {
			return nil, NewValidationError(nil, FieldError{
				Field: "ordering",
				Error: fmt.Sprintf("cannot order by %q", ord.Field),
			})
		}
		cleaned = append(cleaned, DBOrdering{Field: col, Ascending: ord.Ascending})
	}
	return cleaned, nil
}

// OrderByClause renders orderings for an ORDER BY clause, falling back to `def` when empty.
func OrderByClause(orderings []DBOrdering, def string) string {
	if len(orderings) == 0 {
		return def
	}
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}
