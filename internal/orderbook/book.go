// Package orderbook is the order desk application service. A Book holds the
// product catalog and every selection made on it (favorites, default
// quantities, order lines, categories), keeps those selections attached to
// the right products across catalog re-imports, and answers searches.
package orderbook

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/order"
	"github.com/Aman-CERP/orderdesk/internal/reconcile"
	"github.com/Aman-CERP/orderdesk/internal/search"
	"github.com/Aman-CERP/orderdesk/internal/store"
	"github.com/Aman-CERP/orderdesk/internal/telemetry"
)

// Book is safe for concurrent use.
type Book struct {
	mu        sync.Mutex
	products  []catalog.Product
	favorites []int
	defaults  map[int]int
	lines     []order.Line

	store   *store.Store
	logger  *slog.Logger
	metrics *telemetry.Metrics

	productSearch  *search.Facade
	supplierSearch *search.Facade
	suppliers      []string
	searchStale    bool
}

// Option configures a Book.
type Option func(*config)

type config struct {
	store      *store.Store
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	facadeOpts []search.Option
}

// WithStore persists the book through s on Load and Save.
func WithStore(s *store.Store) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithLogger sets the logger for the book and its search facades.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records every search in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithSearchOptions passes options to both search facades.
func WithSearchOptions(opts ...search.Option) Option {
	return func(c *config) {
		c.facadeOpts = append(c.facadeOpts, opts...)
	}
}

// New creates an empty book.
func New(opts ...Option) *Book {
	c := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&c)
	}
	facadeOpts := append([]search.Option{search.WithLogger(c.logger)}, c.facadeOpts...)
	return &Book{
		defaults:       make(map[int]int),
		store:          c.store,
		logger:         c.logger,
		metrics:        c.metrics,
		productSearch:  search.New(facadeOpts...),
		supplierSearch: search.New(facadeOpts...),
		searchStale:    true,
	}
}

// Load replaces the book's content with the stored state. Without a store
// it does nothing.
func (b *Book) Load(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	st, _, err := b.store.Load(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.products = st.Products
	b.favorites = st.Favorites
	b.defaults = st.Defaults
	if b.defaults == nil {
		b.defaults = make(map[int]int)
	}
	b.lines = st.Lines
	b.catalogChanged()
	return nil
}

// Save writes the book to its store. Without a store it does nothing.
func (b *Book) Save(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	b.mu.Lock()
	st := store.State{
		Products:  slices.Clone(b.products),
		Favorites: slices.Clone(b.favorites),
		Defaults:  maps.Clone(b.defaults),
		Lines:     slices.Clone(b.lines),
	}
	b.mu.Unlock()
	return b.store.Save(ctx, st)
}

// ImportSupplier replaces one supplier's products with products and moves
// every selection onto the new list. Products of other suppliers keep their
// relative order and come first; the imported products are appended.
// Selections whose product still exists are never lost.
func (b *Book) ImportSupplier(supplier string, products []catalog.Product) (reconcile.Report, error) {
	if supplier == "" {
		return reconcile.Report{}, deskerrors.ValidationError("supplier name is required", nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]catalog.Product, 0, len(b.products)+len(products))
	for _, p := range b.products {
		if p.Supplier != supplier {
			next = append(next, p)
		}
	}
	for _, p := range products {
		p.Supplier = supplier
		next = append(next, p)
	}

	refs, report := reconcile.Reload(b.products, next, reconcile.Refs{
		Favorites: b.favorites,
		Defaults:  b.defaults,
		Lines:     b.lines,
	})

	b.products = next
	b.favorites = refs.Favorites
	b.defaults = refs.Defaults
	b.lines = refs.Lines
	b.catalogChanged()

	b.logger.Info("supplier_imported",
		slog.String("supplier", supplier),
		slog.Int("products", len(products)),
		slog.Int("catalog_size", len(next)))
	return report, nil
}

// RemoveSupplier drops every product of supplier, with the same reference
// handling as an import of an empty catalog.
func (b *Book) RemoveSupplier(supplier string) (reconcile.Report, error) {
	b.mu.Lock()
	found := slices.ContainsFunc(b.products, func(p catalog.Product) bool { return p.Supplier == supplier })
	b.mu.Unlock()
	if !found {
		return reconcile.Report{}, deskerrors.ValidationError(fmt.Sprintf("unknown supplier %q", supplier), nil)
	}
	return b.ImportSupplier(supplier, nil)
}

// catalogChanged marks derived data stale. Callers hold b.mu.
func (b *Book) catalogChanged() {
	b.suppliers = nil
	b.searchStale = true
}

// Products returns a copy of the catalog.
func (b *Book) Products() []catalog.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.products)
}

// Product returns the product at position i.
func (b *Book) Product(i int) (catalog.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkPosition(i); err != nil {
		return catalog.Product{}, err
	}
	return b.products[i], nil
}

// Find returns the position of the product with key.
func (b *Book) Find(key catalog.Key) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.products {
		if p.Key() == key {
			return i, true
		}
	}
	return 0, false
}

// Suppliers returns the distinct supplier names, sorted.
func (b *Book) Suppliers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.supplierNames())
}

func (b *Book) supplierNames() []string {
	if b.suppliers != nil {
		return b.suppliers
	}
	seen := make(map[string]struct{})
	names := []string{}
	for _, p := range b.products {
		if _, ok := seen[p.Supplier]; ok {
			continue
		}
		seen[p.Supplier] = struct{}{}
		names = append(names, p.Supplier)
	}
	sort.Strings(names)
	b.suppliers = names
	return names
}

// checkPosition validates a product position. Callers hold b.mu.
func (b *Book) checkPosition(i int) error {
	if i < 0 || i >= len(b.products) {
		return deskerrors.New(deskerrors.ErrCodePositionOutOfRange,
			fmt.Sprintf("product position %d out of range [0, %d)", i, len(b.products)), nil)
	}
	return nil
}

// ToggleFavorite adds or removes the product at i from the favorites and
// reports whether it is a favorite afterwards.
func (b *Book) ToggleFavorite(i int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkPosition(i); err != nil {
		return false, err
	}
	if at := slices.Index(b.favorites, i); at >= 0 {
		b.favorites = slices.Delete(b.favorites, at, at+1)
		return false, nil
	}
	b.favorites = append(b.favorites, i)
	return true, nil
}

// Favorites returns the favorite positions in the order they were added.
func (b *Book) Favorites() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.favorites)
}

// SetDefault sets the default order quantity for the product at i.
// A quantity of 0 removes the default.
func (b *Book) SetDefault(i, quantity int) error {
	if quantity < 0 {
		return deskerrors.ValidationError(fmt.Sprintf("quantity must not be negative, got %d", quantity), nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkPosition(i); err != nil {
		return err
	}
	if quantity == 0 {
		delete(b.defaults, i)
		return nil
	}
	b.defaults[i] = quantity
	return nil
}

// Defaults returns a copy of the default quantities by position.
func (b *Book) Defaults() map[int]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.defaults)
}

// ApplyDefaults appends one order line per default quantity, in position
// order, and returns the number of lines added.
func (b *Book) ApplyDefaults() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	positions := slices.Sorted(maps.Keys(b.defaults))
	added := 0
	for _, p := range positions {
		l, ok := order.NewLine(b.products, p, b.defaults[p])
		if !ok {
			continue
		}
		b.lines = append(b.lines, l)
		added++
	}
	return added
}

// AddLine orders amount units of the product at i at its current unit
// price.
func (b *Book) AddLine(i, amount int) (order.Line, error) {
	if amount <= 0 {
		return order.Line{}, deskerrors.ValidationError(fmt.Sprintf("amount must be positive, got %d", amount), nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkPosition(i); err != nil {
		return order.Line{}, err
	}
	l, _ := order.NewLine(b.products, i, amount)
	b.lines = append(b.lines, l)
	return l, nil
}

// RemoveLine removes the n-th order line.
func (b *Book) RemoveLine(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= len(b.lines) {
		return deskerrors.New(deskerrors.ErrCodePositionOutOfRange,
			fmt.Sprintf("order line %d out of range [0, %d)", n, len(b.lines)), nil)
	}
	b.lines = slices.Delete(b.lines, n, n+1)
	return nil
}

// ClearLines removes every order line.
func (b *Book) ClearLines() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

// Lines returns a copy of the order lines.
func (b *Book) Lines() []order.Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.lines)
}

// ResolvedLines returns the order lines with their products attached,
// ready for export.
func (b *Book) ResolvedLines() []order.Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	return order.Resolve(b.lines, b.products)
}

// SetCategory assigns an accounting category to the product at i.
func (b *Book) SetCategory(i int, c catalog.Category) error {
	if !c.Valid() {
		return deskerrors.ValidationError(fmt.Sprintf("invalid category %d", int(c)), nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkPosition(i); err != nil {
		return err
	}
	b.products[i].Category = c
	return nil
}

// SupplierProducts returns the products of one supplier in catalog order.
func (b *Book) SupplierProducts(supplier string) []catalog.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []catalog.Product
	for _, p := range b.products {
		if p.Supplier == supplier {
			out = append(out, p)
		}
	}
	return out
}
