package search

import (
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

// spans returns the byte ranges in value that term matched inside tok.
//
// Substring hits yield the exact substring. Fuzzy hits are refined to the
// matched characters; runs shorter than MinMatchCharLength are dropped and
// the whole token is used when nothing survives.
func (ix *Index) spans(term, value string, tok token, exact bool) []Range {
	whole := []Range{{Start: tok.start, End: tok.end - 1}}
	if tok.start < 0 || tok.end > len(value) {
		return nil
	}
	raw := value[tok.start:tok.end]
	folded := raw
	if ix.opts.IgnoreCase {
		folded = strings.ToLower(raw)
	}
	// Offsets in folded only line up with raw when folding kept the length.
	if len(folded) != len(raw) {
		return whole
	}

	if exact {
		i := strings.Index(folded, term)
		if i < 0 {
			return whole
		}
		return []Range{{Start: tok.start + i, End: tok.start + i + len(term) - 1}}
	}

	found := fuzzy.Find(term, []string{folded})
	if len(found) == 0 {
		return whole
	}

	var out []Range
	for _, run := range runs(folded, found[0].MatchedIndexes) {
		if runeLen(folded[run.Start:run.End+1]) < ix.opts.MinMatchCharLength {
			continue
		}
		out = append(out, Range{Start: tok.start + run.Start, End: tok.start + run.End})
	}
	if len(out) == 0 {
		return whole
	}
	return out
}

// runs groups matched character offsets of s into contiguous byte ranges.
// Offsets that are not rune starts inside s are ignored.
func runs(s string, idx []int) []Range {
	var out []Range
	for _, i := range idx {
		if i < 0 || i >= len(s) || !utf8.RuneStart(s[i]) {
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		end := i + size - 1
		if n := len(out); n > 0 && out[n-1].End+1 == i {
			out[n-1].End = end
			continue
		}
		out = append(out, Range{Start: i, End: end})
	}
	return out
}
