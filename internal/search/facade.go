package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

// DefaultCacheSize is the number of cached result lists per facade.
const DefaultCacheSize = 128

// ErrSuperseded is returned by SearchLatest when a newer search started
// before this one finished.
var ErrSuperseded = errors.New("search superseded by a newer query")

var (
	sharedOnce   sync.Once
	sharedWorker *Worker
)

// SharedWorker returns the process-wide search worker, starting it on first
// use. It is never closed.
func SharedWorker() *Worker {
	sharedOnce.Do(func() {
		sharedWorker = NewWorker()
	})
	return sharedWorker
}

// Facade is the entry point for one searchable list. It owns a single
// RemoteIndex on its worker, created lazily on the first Init.
type Facade struct {
	worker    *Worker
	logger    *slog.Logger
	cacheSize int
	marker    Marker

	mu          sync.Mutex
	remote      *RemoteIndex
	transformer Transformer
	initialized bool
	generation  uint64
	cache       *lru.Cache[string, []Result]

	latest atomic.Uint64
}

// Option configures a Facade.
type Option func(*Facade)

// WithWorker runs the facade's index on w instead of the shared worker.
func WithWorker(w *Worker) Option {
	return func(f *Facade) {
		if w != nil {
			f.worker = w
		}
	}
}

// WithCacheSize sets the result cache size. 0 disables caching.
func WithCacheSize(n int) Option {
	return func(f *Facade) {
		f.cacheSize = n
	}
}

// WithLogger sets the facade's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMarker sets the marker used when a search passes none.
func WithMarker(m Marker) Option {
	return func(f *Facade) {
		f.marker = m
	}
}

// New creates a facade. It does not touch the worker until Init.
func New(opts ...Option) *Facade {
	f := &Facade{
		logger:    slog.Default(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.worker == nil {
		f.worker = SharedWorker()
	}
	if f.cacheSize > 0 {
		cache, err := lru.New[string, []Result](f.cacheSize)
		if err == nil {
			f.cache = cache
		}
	}
	return f
}

// Initialized reports whether Init has succeeded at least once.
func (f *Facade) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

// Init rebuilds the index over records and selects the transformer for
// later searches. Cached results are discarded.
func (f *Facade) Init(ctx context.Context, records []Record, transformer Transformer, fields []string) error {
	if _, err := ParseTransformer(string(transformer)); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.remote == nil {
		f.remote = f.worker.NewIndex()
	}
	if err := f.remote.Init(ctx, records, fields); err != nil {
		return fmt.Errorf("init search index: %w", err)
	}

	f.transformer = transformer
	f.initialized = true
	f.generation++
	if f.cache != nil {
		f.cache.Purge()
	}

	f.logger.Info("search_index_built",
		slog.String("transformer", string(transformer)),
		slog.Int("records", len(records)),
		slog.Any("fields", fields))
	return nil
}

// Search runs query and returns post-processed results. Calling Search
// before Init is a caller bug and fails with ERR_507_NOT_INITIALIZED.
func (f *Facade) Search(ctx context.Context, query string, params Params) ([]Result, error) {
	f.mu.Lock()
	if !f.initialized {
		f.mu.Unlock()
		return nil, deskerrors.New(deskerrors.ErrCodeNotInitialized, "search used before init", nil).
			WithSuggestion("Call Init with the record list first")
	}
	remote, transformer, gen := f.remote, f.transformer, f.generation
	f.mu.Unlock()

	// Only results rendered with the facade's own marker are cached. Marker
	// values are never compared; implementations need not be comparable.
	cached := f.cache != nil && params.Marker == nil
	if params.Marker == nil {
		params.Marker = f.marker
	}

	key := cacheKey(query, params)
	if cached {
		if hit, ok := f.cache.Get(key); ok {
			return cloneResults(hit), nil
		}
	}

	results, err := remote.Search(ctx, query, transformer, params)
	if err != nil {
		return nil, err
	}

	if cached {
		f.mu.Lock()
		if gen == f.generation {
			f.cache.Add(key, cloneResults(results))
		}
		f.mu.Unlock()
	}
	return results, nil
}

// cloneResults copies results including their field maps.
func cloneResults(results []Result) []Result {
	out := slices.Clone(results)
	for i := range out {
		out[i].Fields = maps.Clone(out[i].Fields)
	}
	return out
}

// SearchLatest is Search for type-ahead callers: when another SearchLatest
// call starts before this one returns, this one fails with ErrSuperseded
// and its results are dropped.
func (f *Facade) SearchLatest(ctx context.Context, query string, params Params) ([]Result, error) {
	seq := f.latest.Add(1)
	results, err := f.Search(ctx, query, params)
	if f.latest.Load() != seq {
		return nil, ErrSuperseded
	}
	return results, err
}

// cacheKey identifies a query and the params that change its results. A nil
// supplier filter and an empty one are distinct.
func cacheKey(query string, params Params) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteByte(0)
	fmt.Fprintf(&b, "%d", params.Limit)
	b.WriteByte(0)
	if params.Suppliers == nil {
		b.WriteString("*")
		return b.String()
	}
	names := make([]string, 0, len(params.Suppliers))
	for n := range params.Suppliers {
		names = append(names, n)
	}
	slices.Sort(names)
	b.WriteString("[" + strings.Join(names, "\x1f") + "]")
	return b.String()
}
