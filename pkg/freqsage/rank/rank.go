// Package rank scores sentences by "easiness": the average global frequency
// of their words divided by a length penalty. Higher scores are easier.
//
//	score = round( (Σ f(w_i) / n) / n^p )
//
// The average uses integer division. p is the penalty exponent (0.5 by
// default), so every extra word costs more than a linear penalty would.
package rank

import (
	"math"
	"math/bits"
)

// Config holds the scoring constants.
type Config struct {
	PenaltyExponent float64 // p in n^p
	MinWords        int     // sentences shorter than this are not ranked
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		PenaltyExponent: 0.5,
		MinWords:        3,
	}
}

// Sentence is a cleaned sentence and its ordered cleaned words.
type Sentence struct {
	Text  string
	Words []string
}

// Scorer calculates easiness scores
type Scorer struct {
	cfg Config
}

// NewScorer creates a new scorer with the given config
func NewScorer(cfg Config) *Scorer {
	if cfg.MinWords < 1 {
		cfg.MinWords = 1
	}
	return &Scorer{cfg: cfg}
}

// Eligible reports whether a sentence with n words is ranked at all.
func (s *Scorer) Eligible(n int) bool {
	return n >= s.cfg.MinWords
}

// Breakdown provides the intermediate values of a score
type Breakdown struct {
	Words   int
	Total   uint64 // saturating sum of frequencies
	Average uint64
	Penalty float64
	Score   uint64
}

// Score returns the easiness score for the given word frequencies, in
// sentence order.
func (s *Scorer) Score(freqs []uint64) uint64 {
	return s.Breakdown(freqs).Score
}

// Breakdown computes the score and its components. An empty input scores 0.
func (s *Scorer) Breakdown(freqs []uint64) Breakdown {
	b := Breakdown{Words: len(freqs)}
	if len(freqs) == 0 {
		return b
	}
	for _, f := range freqs {
		b.Total = SaturatingAdd(b.Total, f)
	}
	b.Average = b.Total / uint64(len(freqs))
	b.Penalty = math.Pow(float64(len(freqs)), s.cfg.PenaltyExponent)

	score := math.Round(float64(b.Average) / b.Penalty)
	switch {
	case math.IsNaN(score) || score <= 0:
		b.Score = 0
	case score >= math.MaxUint64:
		b.Score = math.MaxUint64
	default:
		b.Score = uint64(score)
	}
	return b
}

// SaturatingAdd returns a+b, clamped at math.MaxUint64.
func SaturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
