// Package collection applies generic search criteria to a category query.
package collection

// Condition is a filter comparison.
type Condition string

const (
	CondEq      Condition = "eq"
	CondNeq     Condition = "neq"
	CondIn      Condition = "in"
	CondNin     Condition = "nin"
	CondLike    Condition = "like"
	CondGt      Condition = "gt"
	CondGteq    Condition = "gteq"
	CondLt      Condition = "lt"
	CondLteq    Condition = "lteq"
	CondNull    Condition = "null"
	CondNotNull Condition = "notnull"
)

// Filter compares one field with a value. An empty Condition means eq.
type Filter struct {
	Field     string    `json:"field"`
	Value     any       `json:"value,omitempty"`
	Condition Condition `json:"condition_type,omitempty"`
}

// FilterGroup holds filters that are OR-ed together.
type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// SortOrder sorts by one field.
type SortOrder struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction,omitempty"`
}

// SearchCriteria is a set of filter groups, AND-ed together, plus sort
// orders applied after the tree ordering.
type SearchCriteria struct {
	FilterGroups []FilterGroup `json:"filter_groups,omitempty"`
	SortOrders   []SortOrder   `json:"sort_orders,omitempty"`
}

// Empty reports whether the criteria add nothing to a query.
func (c SearchCriteria) Empty() bool {
	return len(c.FilterGroups) == 0 && len(c.SortOrders) == 0
}
