package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

const (
	// FoldAnalyzerName is the case-insensitive analyzer for indexed fields.
	FoldAnalyzerName = "orderdesk_fold"

	// ExactAnalyzerName keeps the original case.
	ExactAnalyzerName = "orderdesk_exact"
)

// tokenAnalyzer is the part of a bleve analyzer the index needs.
type tokenAnalyzer interface {
	Analyze(input []byte) analysis.TokenStream
}

// token is an analyzed term with its byte span [start, end) in the source.
type token struct {
	term  string
	start int
	end   int
}

// Index is an in-memory fuzzy index over a fixed record list.
//
// Candidates are retrieved through bleve; ranking and match ranges are
// computed on the pre-analyzed field tokens. An Index is read-only after
// NewIndex and is owned by a single goroutine (see Worker).
type Index struct {
	opts     IndexOptions
	fields   []string
	records  []Record
	tokens   [][][]token // record -> field -> tokens
	bleve    bleve.Index
	analyzer tokenAnalyzer
}

// NewIndex builds an index over records, searching the given fields.
// An empty record list is valid.
func NewIndex(records []Record, fields []string, opts IndexOptions) (*Index, error) {
	if len(fields) == 0 {
		return nil, deskerrors.ValidationError("at least one search field is required", nil)
	}
	for _, f := range fields {
		if f == "" || strings.Contains(f, ".") {
			return nil, deskerrors.ValidationError(fmt.Sprintf("invalid search field %q", f), nil)
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, deskerrors.ValidationError("invalid index options", err)
	}

	start := time.Now()

	indexMapping, analyzerName, err := createIndexMapping(opts.IgnoreCase)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeIndexFailed, "failed to create index mapping", err)
	}
	an := indexMapping.AnalyzerNamed(analyzerName)
	if an == nil {
		return nil, deskerrors.New(deskerrors.ErrCodeIndexFailed, "analyzer "+analyzerName+" not available", nil)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeIndexFailed, "failed to create index", err)
	}

	ix := &Index{
		opts:     opts,
		fields:   append([]string(nil), fields...),
		records:  records,
		tokens:   make([][][]token, len(records)),
		bleve:    idx,
		analyzer: an,
	}

	batch := idx.NewBatch()
	for i, r := range records {
		doc := make(map[string]interface{}, len(fields))
		ix.tokens[i] = make([][]token, len(fields))
		for fi, f := range fields {
			v := r.Fields[f]
			doc[f] = v
			ix.tokens[i][fi] = ix.analyze(v)
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = idx.Close()
			return nil, deskerrors.New(deskerrors.ErrCodeIndexFailed, fmt.Sprintf("failed to index record %d", i), err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, deskerrors.New(deskerrors.ErrCodeIndexFailed, "failed to execute batch", err)
	}

	slog.Debug("search_index_built",
		slog.Int("records", len(records)),
		slog.Int("fields", len(fields)),
		slog.Duration("duration", time.Since(start)))

	return ix, nil
}

// createIndexMapping registers the field analyzer and makes it the default.
func createIndexMapping(ignoreCase bool) (*mapping.IndexMappingImpl, string, error) {
	indexMapping := bleve.NewIndexMapping()

	name := ExactAnalyzerName
	config := map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicodetok.Name,
	}
	if ignoreCase {
		name = FoldAnalyzerName
		config["token_filters"] = []string{lowercase.Name}
	}
	if err := indexMapping.AddCustomAnalyzer(name, config); err != nil {
		return nil, "", fmt.Errorf("failed to add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = name

	return indexMapping, name, nil
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Fields returns the searched field names.
func (ix *Index) Fields() []string {
	return append([]string(nil), ix.fields...)
}

// Close releases the bleve index.
func (ix *Index) Close() error {
	if ix.bleve == nil {
		return nil
	}
	err := ix.bleve.Close()
	ix.bleve = nil
	return err
}

// Search returns the records matching query, best first. Query tokens
// shorter than MinMatchCharLength are ignored; a query without usable
// tokens matches nothing.
func (ix *Index) Search(ctx context.Context, q string) ([]Match, error) {
	if ix.bleve == nil {
		return nil, deskerrors.New(deskerrors.ErrCodeSearchFailed, "index is closed", nil)
	}

	terms := ix.queryTerms(q)
	if len(terms) == 0 || len(ix.records) == 0 {
		return []Match{}, nil
	}

	req := bleve.NewSearchRequestOptions(ix.candidateQuery(terms), len(ix.records), 0, false)
	res, err := ix.bleve.SearchInContext(ctx, req)
	if err != nil {
		return nil, deskerrors.New(deskerrors.ErrCodeSearchFailed, "candidate search failed", err)
	}

	type ranked struct {
		pos   int
		match Match
	}
	hits := make([]ranked, 0, len(res.Hits))
	for _, hit := range res.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= len(ix.records) {
			continue
		}
		if m, ok := ix.score(pos, terms); ok {
			hits = append(hits, ranked{pos: pos, match: m})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].match.Score != hits[j].match.Score {
			return hits[i].match.Score < hits[j].match.Score
		}
		return hits[i].pos < hits[j].pos
	})

	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = h.match
	}

	slog.Debug("search_completed",
		slog.String("query", q),
		slog.Int("candidates", len(res.Hits)),
		slog.Int("results", len(out)))

	return out, nil
}

// candidateQuery ORs substring queries that every record scored by matchTerm
// satisfies. A term allowed k edits is split into k+1 parts; a token
// holding the term with at most k edits contains one part unchanged.
func (ix *Index) candidateQuery(terms []string) query.Query {
	dq := bleve.NewDisjunctionQuery()
	for _, t := range terms {
		k := ix.opts.Fuzziness(runeLen(t))
		if k >= runeLen(t) || strings.ContainsAny(t, `*?\`) {
			// No part survives k edits, or t is not expressible as a
			// wildcard; score everything.
			return bleve.NewMatchAllQuery()
		}
		for _, f := range ix.fields {
			for _, part := range splitParts(t, k+1) {
				wq := bleve.NewWildcardQuery("*" + part + "*")
				wq.SetField(f)
				dq.AddQuery(wq)
			}
		}
	}
	return dq
}

// splitParts cuts s into n runs of nearly equal rune length. It returns s
// alone when n < 2 or s is shorter than n.
func splitParts(s string, n int) []string {
	rs := []rune(s)
	if n <= 1 || len(rs) < n {
		return []string{s}
	}
	parts := make([]string, 0, n)
	start := 0
	for i := 1; i <= n; i++ {
		end := i * len(rs) / n
		parts = append(parts, string(rs[start:end]))
		start = end
	}
	return parts
}

// queryTerms analyzes q into unique terms of at least MinMatchCharLength
// characters, in query order.
func (ix *Index) queryTerms(q string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, t := range ix.analyze(q) {
		if runeLen(t.term) < ix.opts.MinMatchCharLength {
			continue
		}
		if _, dup := seen[t.term]; dup {
			continue
		}
		seen[t.term] = struct{}{}
		terms = append(terms, t.term)
	}
	return terms
}

func (ix *Index) analyze(s string) []token {
	if s == "" {
		return nil
	}
	stream := ix.analyzer.Analyze([]byte(s))
	out := make([]token, 0, len(stream))
	for _, t := range stream {
		if t.Start < 0 || t.End > len(s) || t.Start >= t.End {
			continue
		}
		out = append(out, token{term: string(t.Term), start: t.Start, end: t.End})
	}
	return out
}
