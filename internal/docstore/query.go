package docstore

// Op is a query filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter restricts a query to documents whose Field satisfies Op against Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a single-collection query. Build it with Collection and the
// chaining helpers; each helper returns a copy.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	Limit      int
}

// Collection starts a query over the collection at path.
func Collection(path string) Query {
	return Query{Collection: path}
}

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Order sorts the results by field.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

// Take limits the number of results. Zero means no limit.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Unordered drops the order clause.
func (q Query) Unordered() Query {
	q.OrderBy = ""
	q.Direction = Asc
	return q
}

// ServerTimestampValue is the sentinel type behind ServerTimestamp.
type ServerTimestampValue struct{}

// ServerTimestamp, used as a field value, is replaced by the backend's clock.
var ServerTimestamp = ServerTimestampValue{}

// ArrayUnionValue is the sentinel type returned by ArrayUnion.
type ArrayUnionValue struct {
	Elems []any
}

// ArrayUnion, used as a field value, adds the elements not already present in the array field.
func ArrayUnion(elems ...any) ArrayUnionValue {
	return ArrayUnionValue{Elems: elems}
}

// IncrementValue is the sentinel type returned by Increment.
type IncrementValue struct {
	N int64
}

// Increment, used as a field value, atomically adds n to a numeric field. A
// missing field is treated as zero.
func Increment(n int64) IncrementValue {
	return IncrementValue{N: n}
}
