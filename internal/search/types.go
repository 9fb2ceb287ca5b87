// Package search provides the fuzzy product and supplier search.
//
// An Index is built over a list of records and answers ranked fuzzy queries
// with per-field match ranges. Indexes live inside a single Worker goroutine
// and are reached through RemoteIndex handles; post-processing of raw matches
// (filtering, highlighting) runs inside the worker as well. Facade is the
// entry point used by the rest of the application.
package search

// Record is one searchable entry. Index is the caller's position of the
// entry (e.g. in the product list) and is returned untouched with results.
type Record struct {
	Index  int               `json:"index"`
	Fields map[string]string `json:"fields"`
}

// Range is a matched byte range within a field value. End is inclusive.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FieldMatch describes where a query matched inside one field.
type FieldMatch struct {
	Key    string  `json:"key"`
	Value  string  `json:"value"`
	Ranges []Range `json:"ranges"`
}

// Match is a raw index hit. Lower scores are better; 0 is a perfect match.
type Match struct {
	Record  Record       `json:"record"`
	Score   float64      `json:"score"`
	Matches []FieldMatch `json:"matches,omitempty"`
}

// Params are per-query options for post-processing.
type Params struct {
	// Suppliers restricts product results to these supplier names.
	// A nil map disables the filter; an empty non-nil map filters out
	// every product.
	Suppliers map[string]struct{} `json:"suppliers,omitempty"`

	// Limit caps the number of results after post-processing (0 = no cap).
	Limit int `json:"limit,omitempty"`

	// Marker renders highlighted fields. Nil means DefaultMarker.
	Marker Marker `json:"-"`
}

// Result is a post-processed search hit.
//
// For items, Fields holds the raw record values. For products, matched
// fields are replaced by their highlighted rendering. For suppliers, Name is
// the raw supplier name and Display its highlighted rendering.
type Result struct {
	Index   int               `json:"index"`
	Score   float64           `json:"score"`
	Fields  map[string]string `json:"fields,omitempty"`
	Name    string            `json:"name,omitempty"`
	Display string            `json:"display,omitempty"`
}

// SupplierSet builds a Params.Suppliers filter from names.
func SupplierSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
