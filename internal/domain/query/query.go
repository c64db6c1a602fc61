// Package query defines the structured filter and ordering clauses consumed
// by the search translator, plus a parser for the fixed string grammar
// tracking clients send ("metrics.loss < 0.5 and tags.owner = 'team'").
package query

// KeyType identifies which run collection a clause addresses.
type KeyType string

const (
	TypeMetric    KeyType = "metric"
	TypeParameter KeyType = "parameter"
	TypeTag       KeyType = "tag"
	TypeAttribute KeyType = "attribute"
)

// Comparator is one of the fixed filter operators.
type Comparator string

const (
	CompGT    Comparator = ">"
	CompGTE   Comparator = ">="
	CompEQ    Comparator = "="
	CompNE    Comparator = "!="
	CompLTE   Comparator = "<="
	CompLT    Comparator = "<"
	CompLike  Comparator = "LIKE"
	CompILike Comparator = "ILIKE"
)

// Clause is a single parsed filter condition.
type Clause struct {
	Type       KeyType
	Key        string
	Comparator Comparator
	Value      string
}

// OrderKey is a single parsed sort condition.
type OrderKey struct {
	Type      KeyType
	Key       string
	Ascending bool
}
