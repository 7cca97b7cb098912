package backend

import (
	"fmt"
	"regexp"
)

// Filter is an equality predicate on one column.
type Filter struct {
	Column string
	Value  any
}

// Order sorts by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Query describes a table read or the row set of an update/delete.
// The zero Query selects every row in backend order.
type Query struct {
	Filters []Filter
	Orders  []Order
	Limit   int
	// Single requests exactly one row; zero or several rows are
	// reported as ErrNotFound.
	Single bool
}

// Eq returns q with an additional column = value predicate.
func (q Query) Eq(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

// OrderBy returns q with an additional sort key.
func (q Query) OrderBy(column string, ascending bool) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Column: column, Ascending: ascending})
	return q
}

// WithLimit returns q limited to n rows; n <= 0 means unlimited.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// One returns q in single-row mode.
func (q Query) One() Query {
	q.Single = true
	return q
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name is a plain table or column identifier.
func ValidIdent(name string) bool {
	return identRe.MatchString(name)
}

// Validate checks table and column names.
func (q Query) Validate(table string) error {
	if !ValidIdent(table) {
		return fmt.Errorf("%w: table %q", ErrInvalidQuery, table)
	}
	for _, f := range q.Filters {
		if !ValidIdent(f.Column) {
			return fmt.Errorf("%w: column %q", ErrInvalidQuery, f.Column)
		}
	}
	for _, o := range q.Orders {
		if !ValidIdent(o.Column) {
			return fmt.Errorf("%w: column %q", ErrInvalidQuery, o.Column)
		}
	}
	return nil
}
