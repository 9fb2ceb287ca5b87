package orderbook

import (
	"context"
	"strings"
	"time"

	"github.com/Aman-CERP/orderdesk/internal/search"
	"github.com/Aman-CERP/orderdesk/internal/telemetry"
)

// SearchProducts runs a fuzzy product search. suppliers restricts results
// to those suppliers; nil means all. Result.Index is the product position.
func (b *Book) SearchProducts(ctx context.Context, query string, suppliers []string, params search.Params) ([]search.Result, error) {
	if err := b.refreshSearch(ctx); err != nil {
		return nil, err
	}
	if suppliers != nil {
		params.Suppliers = search.SupplierSet(suppliers...)
	}
	query = strings.TrimSpace(query)
	start := time.Now()
	results, err := b.productSearch.Search(ctx, query, params)
	if err == nil {
		b.record(telemetry.KindProducts, query, len(results), time.Since(start))
	}
	return results, err
}

// SearchSuppliers runs a fuzzy search over the supplier names.
func (b *Book) SearchSuppliers(ctx context.Context, query string, params search.Params) ([]search.Result, error) {
	if err := b.refreshSearch(ctx); err != nil {
		return nil, err
	}
	params.Suppliers = nil
	query = strings.TrimSpace(query)
	start := time.Now()
	results, err := b.supplierSearch.Search(ctx, query, params)
	if err == nil {
		b.record(telemetry.KindSuppliers, query, len(results), time.Since(start))
	}
	return results, err
}

func (b *Book) record(kind telemetry.QueryKind, query string, n int, latency time.Duration) {
	b.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		Kind:        kind,
		ResultCount: n,
		Latency:     latency,
	})
}

// refreshSearch rebuilds both indexes when the catalog changed since the
// last search.
func (b *Book) refreshSearch(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.searchStale {
		return nil
	}

	if err := b.productSearch.Init(ctx, search.ProductRecords(b.products),
		search.TransformProducts, search.ProductFields); err != nil {
		return err
	}
	if err := b.supplierSearch.Init(ctx, search.SupplierRecords(b.supplierNames()),
		search.TransformSuppliers, search.SupplierFields); err != nil {
		return err
	}
	b.searchStale = false
	return nil
}
