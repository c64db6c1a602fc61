package es

import "errors"

// ErrNotFound signals a document id with no match in the index.
var ErrNotFound = errors.New("es: document not found")

// Op constants map to Elasticsearch API names for error context.
const (
	OpGet           = "get"
	OpIndex         = "index"
	OpUpdate        = "update"
	OpSearch        = "search"
	OpIndicesExists = "indices.exists"
	OpIndicesCreate = "indices.create"
	OpPing          = "ping"
)

// Error wraps an underlying transport error with the operation name for
// diagnostics. Transport failures carry no business meaning and are
// propagated unchanged to callers.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "es " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
