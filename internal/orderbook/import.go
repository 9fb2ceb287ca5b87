package orderbook

import (
	"context"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/reconcile"
)

// ImportResult is the outcome of importing one supplier catalog file.
type ImportResult struct {
	Supplier string               `json:"supplier"`
	Path     string               `json:"path"`
	Catalog  catalog.ImportReport `json:"catalog"`
	Reload   reconcile.Report     `json:"reload"`
}

// ImportFiles parses the catalog files (supplier name to path)
// concurrently and imports them one supplier at a time, in supplier name
// order. Nothing is imported when any file fails to parse.
func (b *Book) ImportFiles(ctx context.Context, files map[string]string, opts catalog.ImportOptions) ([]ImportResult, error) {
	catalogs, err := catalog.ImportFiles(ctx, files, opts)
	if err != nil {
		return nil, err
	}

	results := make([]ImportResult, 0, len(catalogs))
	for _, c := range catalogs {
		report, err := b.ImportSupplier(c.Supplier, c.Products)
		if err != nil {
			return results, err
		}
		results = append(results, ImportResult{
			Supplier: c.Supplier,
			Path:     c.Path,
			Catalog:  c.Report,
			Reload:   report,
		})
	}
	return results, nil
}
