package domain

// Filter is the backend-neutral AST produced by the filter-expression
// parser. A nil Filter means "no filter" (absent, never an error).
type Filter interface {
	isFilter()
}

// EqualsFilter matches documents where Field equals Value.
type EqualsFilter struct {
	Field string
	Value string
}

func (EqualsFilter) isFilter() {}

// MustFilter requires the wrapped predicate to hold.
type MustFilter struct {
	Predicate EqualsFilter
}

func (MustFilter) isFilter() {}

// MustNotFilter requires the wrapped predicate to not hold.
type MustNotFilter struct {
	Predicate EqualsFilter
}

func (MustNotFilter) isFilter() {}

// AnyFilter is a logical OR over equality predicates on the same field,
// produced by the "field in [v1, v2, ...]" grammar form.
type AnyFilter struct {
	Predicates []EqualsFilter
}

func (AnyFilter) isFilter() {}
