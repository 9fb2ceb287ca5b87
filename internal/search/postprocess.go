package search

import (
	"fmt"
	"maps"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

// Transformer selects how raw matches are shaped into results.
type Transformer string

const (
	// TransformItems returns the matched records unchanged.
	TransformItems Transformer = "items"

	// TransformProducts filters by supplier and highlights product names.
	TransformProducts Transformer = "products"

	// TransformSuppliers returns supplier names with a highlighted display.
	TransformSuppliers Transformer = "suppliers"
)

// Transformers lists the known transformers.
func Transformers() []Transformer {
	return []Transformer{TransformItems, TransformProducts, TransformSuppliers}
}

// Valid reports whether t is a known transformer.
func (t Transformer) Valid() bool {
	switch t {
	case TransformItems, TransformProducts, TransformSuppliers:
		return true
	}
	return false
}

// ParseTransformer validates a transformer tag.
func ParseTransformer(s string) (Transformer, error) {
	t := Transformer(s)
	if !t.Valid() {
		return "", deskerrors.New(deskerrors.ErrCodeUnknownTransformer,
			fmt.Sprintf("unknown result transformer %q", s), nil).
			WithSuggestion("Use one of: items, products, suppliers")
	}
	return t, nil
}

// PostProcess shapes matches according to t. Limit is applied last.
func PostProcess(t Transformer, matches []Match, params Params) ([]Result, error) {
	if _, err := ParseTransformer(string(t)); err != nil {
		return nil, err
	}

	marker := params.Marker
	if marker == nil {
		marker = DefaultMarker
	}

	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		var (
			r  Result
			ok bool
		)
		switch t {
		case TransformItems:
			r, ok = itemResult(m), true
		case TransformProducts:
			r, ok = productResult(m, params.Suppliers, marker)
		case TransformSuppliers:
			r, ok = supplierResult(m, marker)
		}
		if !ok {
			continue
		}
		out = append(out, r)
		if params.Limit > 0 && len(out) == params.Limit {
			break
		}
	}
	return out, nil
}

func itemResult(m Match) Result {
	return Result{
		Index:  m.Record.Index,
		Score:  m.Score,
		Fields: maps.Clone(m.Record.Fields),
	}
}

// productResult drops products of unselected suppliers and replaces the
// matched name fields with their highlighted rendering.
func productResult(m Match, suppliers map[string]struct{}, marker Marker) (Result, bool) {
	if suppliers != nil {
		if _, ok := suppliers[m.Record.Fields[FieldSupplier]]; !ok {
			return Result{}, false
		}
	}

	r := itemResult(m)
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	for _, fm := range m.Matches {
		if fm.Key == FieldInternalName || fm.Key == FieldSupplierName {
			r.Fields[fm.Key] = Highlight(fm.Value, fm.Ranges, marker)
		}
	}
	return r, true
}

// supplierResult keeps suppliers with at least one recorded match.
func supplierResult(m Match, marker Marker) (Result, bool) {
	if len(m.Matches) == 0 {
		return Result{}, false
	}
	first := m.Matches[0]
	return Result{
		Index:   m.Record.Index,
		Score:   m.Score,
		Name:    first.Value,
		Display: Highlight(first.Value, first.Ranges, marker),
	}, true
}
