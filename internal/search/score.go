package search

import (
	"math"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"
)

// minPartialFuzzy is the shortest term matched approximately inside a
// longer token. Shorter terms only match whole tokens fuzzily; with a free
// start they would hit almost any token.
const minPartialFuzzy = 4

// epsilon replaces a perfect field score so products stay comparable.
const epsilon = 2.220446049250313e-16

// tokenHit is the best field token for one query term.
type tokenHit struct {
	tok   int     // index into the field's tokens
	err   float64 // 0 = substring, (0,1) = fuzzy
	exact bool    // term is a substring of the token
}

// score evaluates record pos against the query terms. A record matches when
// every term matches in at least one field. The record score is the product
// of the scores of the fields that matched.
func (ix *Index) score(pos int, terms []string) (Match, bool) {
	rec := ix.records[pos]
	matchedTerms := make([]bool, len(terms))
	total := 1.0
	var fieldMatches []FieldMatch
	anyField := false

	for fi, field := range ix.fields {
		toks := ix.tokens[pos][fi]
		if len(toks) == 0 {
			continue
		}

		sum := 0.0
		var spans []Range
		fieldHit := false
		for ti, term := range terms {
			hits := ix.matchTerm(term, toks)
			if len(hits) == 0 {
				sum++
				continue
			}
			fieldHit = true
			matchedTerms[ti] = true
			sum += hits[0].err
			if ix.opts.IncludeMatches {
				value := rec.Fields[field]
				for _, h := range hits {
					spans = append(spans, ix.spans(term, value, toks[h.tok], h.exact)...)
				}
			}
		}
		if !fieldHit {
			continue
		}

		anyField = true
		mean := sum / float64(len(terms))
		total *= math.Pow(math.Max(mean, epsilon), ix.opts.fieldNorm(len(toks)))

		if ix.opts.IncludeMatches {
			fieldMatches = append(fieldMatches, FieldMatch{
				Key:    field,
				Value:  rec.Fields[field],
				Ranges: mergeRanges(spans),
			})
		}
	}

	if !anyField {
		return Match{}, false
	}
	for _, ok := range matchedTerms {
		if !ok {
			return Match{}, false
		}
	}

	return Match{Record: rec, Score: total, Matches: fieldMatches}, true
}

// matchTerm returns the field tokens accepted for term, best first. Unless
// FindAllMatches is set, scanning stops at the first substring match.
func (ix *Index) matchTerm(term string, toks []token) []tokenHit {
	n := runeLen(term)
	limit := ix.opts.Fuzziness(n)

	var hits []tokenHit
	for i, t := range toks {
		if strings.Contains(t.term, term) {
			hits = append(hits, tokenHit{tok: i, err: 0, exact: true})
			if !ix.opts.FindAllMatches {
				break
			}
			continue
		}
		if limit == 0 {
			continue
		}
		d := limit + 1
		if n >= minPartialFuzzy {
			d = substringDistance(term, t.term, limit)
		} else {
			d = levenshtein(term, t.term, limit)
		}
		if d <= limit {
			hits = append(hits, tokenHit{tok: i, err: float64(d) / float64(n)})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].err < hits[j].err })
	if !ix.opts.FindAllMatches && len(hits) > 1 {
		hits = hits[:1]
	}
	return hits
}

// levenshtein returns the rune edit distance between a and b, or limit+1 as
// soon as the distance is known to exceed limit.
func levenshtein(a, b string, limit int) int {
	ra, rb := []rune(a), []rune(b)
	if d := len(ra) - len(rb); d > limit || -d > limit {
		return limit + 1
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, cur[j])
		}
		if rowMin > limit {
			return limit + 1
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// substringDistance returns the fewest edits turning term into some
// substring of tok, or limit+1 as soon as that is known to exceed limit.
// It is levenshtein with a free start and end in tok, so "kafee" is one
// edit from "kaffeebohnen".
func substringDistance(term, tok string, limit int) int {
	ra, rb := []rune(term), []rune(tok)

	// Row 0 is all zeros: the match may start anywhere in tok.
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, cur[j])
		}
		if rowMin > limit {
			return limit + 1
		}
		prev, cur = cur, prev
	}
	return min(slices.Min(prev), limit+1)
}

// mergeRanges sorts ranges and merges overlapping or touching ones.
func mergeRanges(rs []Range) []Range {
	if len(rs) == 0 {
		return nil
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })
	out := []Range{rs[0]}
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End+1 {
			last.End = max(last.End, r.End)
			continue
		}
		out = append(out, r)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
