// Package telemetry records how the product and supplier searches are used.
// Everything stays in the local database; nothing is reported anywhere.
package telemetry

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryKind names the searched collection.
type QueryKind string

const (
	KindProducts  QueryKind = "products"
	KindSuppliers QueryKind = "suppliers"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyBuckets lists the buckets from fastest to slowest.
func LatencyBuckets() []LatencyBucket {
	return []LatencyBucket{BucketP10, BucketP50, BucketP100, BucketP500, BucketP1000}
}

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one executed search.
type QueryEvent struct {
	Query       string
	Kind        QueryKind
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// ZeroResult is a search that found nothing.
type ZeroResult struct {
	Query     string    `json:"query"`
	Kind      QueryKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ExtractTerms lowercases query and returns its words of at least three
// characters.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items []T
	head  int
	size  int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity)}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	out := make([]T, 0, b.size)
	start := (b.head - b.size + len(b.items)) % len(b.items)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}

// Clear empties the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.head, b.size = 0, 0
}

// Snapshot is the state of a Metrics collector since its last flush.
type Snapshot struct {
	KindCounts map[QueryKind]int64     `json:"kind_counts"`
	Latency    map[LatencyBucket]int64 `json:"latency"`
	TopTerms   []TermCount             `json:"top_terms"`
	ZeroResult []ZeroResult            `json:"zero_result"`
	Total      int64                   `json:"total"`
	Since      time.Time               `json:"since"`
}

// Sink persists flushed metrics. Counts are deltas to add.
type Sink interface {
	AddQueryCounts(ctx context.Context, date string, kinds map[QueryKind]int64, latency map[LatencyBucket]int64) error
	AddTermCounts(ctx context.Context, terms map[string]int64) error
	AddZeroResults(ctx context.Context, queries []ZeroResult) error
}

// Config sizes the in-memory aggregates.
type Config struct {
	TopTermsCapacity    int
	ZeroResultsCapacity int
}

// DefaultConfig returns the default capacities.
func DefaultConfig() Config {
	return Config{TopTermsCapacity: 100, ZeroResultsCapacity: 100}
}

// Metrics aggregates query events in memory until Flush. It is safe for
// concurrent use; a nil *Metrics ignores every call.
type Metrics struct {
	mu          sync.Mutex
	kinds       map[QueryKind]int64
	latency     map[LatencyBucket]int64
	terms       *lru.Cache[string, int64]
	zeroResults *CircularBuffer[ZeroResult]
	total       int64
	since       time.Time

	sink   Sink
	closed bool
}

// New creates a collector that flushes into sink. A nil sink keeps the
// metrics in memory only.
func New(sink Sink, cfg Config) *Metrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	terms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	return &Metrics{
		kinds:       make(map[QueryKind]int64),
		latency:     make(map[LatencyBucket]int64),
		terms:       terms,
		zeroResults: NewCircularBuffer[ZeroResult](cfg.ZeroResultsCapacity),
		since:       time.Now(),
		sink:        sink,
	}
}

// Record adds one search to the aggregates.
func (m *Metrics) Record(e QueryEvent) {
	if m == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.total++
	m.kinds[e.Kind]++
	m.latency[LatencyToBucket(e.Latency)]++
	for _, term := range ExtractTerms(e.Query) {
		n, _ := m.terms.Get(term)
		m.terms.Add(term, n+1)
	}
	if e.ResultCount == 0 && strings.TrimSpace(e.Query) != "" {
		m.zeroResults.Add(ZeroResult{Query: e.Query, Kind: e.Kind, Timestamp: e.Timestamp})
	}
}

// Snapshot returns the unflushed aggregates. Top terms are sorted by count,
// then term.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Metrics) snapshot() Snapshot {
	s := Snapshot{
		KindCounts: make(map[QueryKind]int64, len(m.kinds)),
		Latency:    make(map[LatencyBucket]int64, len(m.latency)),
		ZeroResult: m.zeroResults.Items(),
		Total:      m.total,
		Since:      m.since,
	}
	for k, v := range m.kinds {
		s.KindCounts[k] = v
	}
	for k, v := range m.latency {
		s.Latency[k] = v
	}
	for _, term := range m.terms.Keys() {
		if n, ok := m.terms.Peek(term); ok {
			s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: n})
		}
	}
	slices.SortFunc(s.TopTerms, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})
	return s
}

// Flush writes the aggregates to the sink and resets them. On error the
// aggregates are kept.
func (m *Metrics) Flush(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink == nil || m.total == 0 {
		return nil
	}

	s := m.snapshot()
	if err := m.sink.AddQueryCounts(ctx, s.Since.Format("2006-01-02"), s.KindCounts, s.Latency); err != nil {
		return err
	}
	terms := make(map[string]int64, len(s.TopTerms))
	for _, tc := range s.TopTerms {
		terms[tc.Term] = tc.Count
	}
	if err := m.sink.AddTermCounts(ctx, terms); err != nil {
		return err
	}
	if err := m.sink.AddZeroResults(ctx, s.ZeroResult); err != nil {
		return err
	}

	m.kinds = make(map[QueryKind]int64)
	m.latency = make(map[LatencyBucket]int64)
	m.terms.Purge()
	m.zeroResults.Clear()
	m.total = 0
	m.since = time.Now()
	return nil
}

// Close flushes and stops recording.
func (m *Metrics) Close(ctx context.Context) error {
	if m == nil {
		return nil
	}
	err := m.Flush(ctx)
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return err
}
