package repository

import (
	"regexp"
	"strings"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// columnPattern is the injection-prevention whitelist for any column
// name accepted from a caller (sort, search): ASCII alphanumerics,
// underscore, and dot (for qualified names), at most 64 characters.
var columnPattern = regexp.MustCompile(`^[A-Za-z0-9_.]{1,64}$`)

// ValidateColumn rejects any column name that is not a plain
// identifier, so it is always safe to interpolate into a query string
// (parameters cannot bind column/identifier positions in SQL).
func ValidateColumn(column string) error {
	if !columnPattern.MatchString(column) {
		return apperr.New(apperr.Validation, "invalid column name %q", column)
	}
	return nil
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort is a validated (column, direction) pair used to build an
// ORDER BY clause.
type Sort struct {
	Column    string
	Direction Direction
}

// Validate checks the column against the injection whitelist and the
// direction against the closed ASC/DESC set.
func (s Sort) Validate() error {
	if err := ValidateColumn(s.Column); err != nil {
		return err
	}
	switch strings.ToUpper(string(s.Direction)) {
	case string(Asc), string(Desc):
		return nil
	default:
		return apperr.New(apperr.Validation, "invalid sort direction %q", s.Direction)
	}
}

// Clause renders a validated Sort as an ORDER BY fragment, without
// the leading "ORDER BY" keyword.
func (s Sort) Clause() string {
	return s.Column + " " + strings.ToUpper(string(s.Direction))
}

// Pagination is a (per_page, page) pair translating to LIMIT/OFFSET.
type Pagination struct {
	PerPage int
	Page    int
}

// Validate enforces per_page >= 1 and page >= 1.
func (p Pagination) Validate() error {
	if p.PerPage < 1 {
		return apperr.New(apperr.Validation, "per_page must be >= 1")
	}
	if p.Page < 1 {
		return apperr.New(apperr.Validation, "page must be >= 1")
	}
	return nil
}

// LimitOffset returns the LIMIT and OFFSET values for this page.
func (p Pagination) LimitOffset() (limit, offset int) {
	return p.PerPage, (p.Page - 1) * p.PerPage
}

// Search is a validated (query, column) pair used to build an ILIKE
// predicate. Column is whitelisted the same way Sort's is; Query is
// bound as a parameter, never interpolated.
type Search struct {
	Query  string
	Column string
}

// Validate checks Column against the injection whitelist.
func (s Search) Validate() error {
	return ValidateColumn(s.Column)
}

// Pattern returns the ILIKE pattern for Query, with SQL wildcard
// characters in the user-supplied query escaped so they are matched
// literally.
func (s Search) Pattern() string {
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(s.Query)
	return "%" + escaped + "%"
}
