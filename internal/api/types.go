package api

// IDResponse carries the id assigned or affected by a mutation.
type IDResponse struct {
	ID int64 `json:"id"`
}

// TupleCountRequest is the request body for setting a table's tuple
// count estimate.
type TupleCountRequest struct {
	Tuples float64 `json:"tuples"`
}
