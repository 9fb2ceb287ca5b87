package search

import (
	"fmt"
	"math"
)

// IndexOptions configures matching. The zero value is not useful; start
// from DefaultIndexOptions.
type IndexOptions struct {
	// IgnoreCase matches case-insensitively.
	IgnoreCase bool `yaml:"ignore_case" json:"ignore_case"`

	// Threshold is the tolerated share of edits per query token.
	// The allowed edit distance is round(Threshold * len), capped at MaxFuzziness.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// FieldNormWeight dampens the penalty long fields get. 0 disables it.
	FieldNormWeight float64 `yaml:"field_norm_weight" json:"field_norm_weight"`

	// IncludeMatches reports match ranges with each hit.
	IncludeMatches bool `yaml:"include_matches" json:"include_matches"`

	// FindAllMatches keeps scanning a field after a perfect token match.
	FindAllMatches bool `yaml:"find_all_matches" json:"find_all_matches"`

	// MinMatchCharLength is the shortest query token and match run considered.
	MinMatchCharLength int `yaml:"min_match_char_length" json:"min_match_char_length"`
}

// MaxFuzziness is the largest edit distance the index accepts per token.
const MaxFuzziness = 2

// DefaultIndexOptions returns the options every catalog index uses.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		IgnoreCase:         true,
		Threshold:          0.2,
		FieldNormWeight:    0.3,
		IncludeMatches:     true,
		FindAllMatches:     false,
		MinMatchCharLength: 2,
	}
}

// Validate checks option ranges.
func (o IndexOptions) Validate() error {
	if o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", o.Threshold)
	}
	if o.FieldNormWeight < 0 {
		return fmt.Errorf("field norm weight must not be negative, got %v", o.FieldNormWeight)
	}
	if o.MinMatchCharLength < 1 {
		return fmt.Errorf("min match char length must be at least 1, got %d", o.MinMatchCharLength)
	}
	return nil
}

// Fuzziness returns the allowed edit distance for a token of n characters.
func (o IndexOptions) Fuzziness(n int) int {
	d := int(math.Round(o.Threshold * float64(n)))
	return max(0, min(d, MaxFuzziness))
}

// fieldNorm returns the length norm for a field with n tokens.
func (o IndexOptions) fieldNorm(n int) float64 {
	if n <= 1 || o.FieldNormWeight == 0 {
		return 1
	}
	return 1 / math.Pow(float64(n), 0.5*o.FieldNormWeight)
}
