package rank

import (
	"sort"

	"github.com/cognicore/freqsage/pkg/freqsage/contenthash"
)

// Candidate is a sentence selected for ranking, with its storage key.
type Candidate struct {
	Sentence
	Key contenthash.Digest
}

// Selection is the outcome of filtering one batch of sentences.
type Selection struct {
	Candidates []Candidate
	Short      int // below MinWords
	Duplicate  int // same word sequence seen earlier in the batch
}

// Select keeps the sentences that should be ranked. Sentences shorter than
// MinWords are dropped, and a sentence whose word sequence already appeared
// earlier in the same batch is dropped (first occurrence wins). Duplicates
// are only detected within the batch.
func (s *Scorer) Select(sentences []Sentence, h contenthash.Hasher) Selection {
	var sel Selection
	seen := make(map[contenthash.Digest]struct{}, len(sentences))
	for _, sent := range sentences {
		if !s.Eligible(len(sent.Words)) {
			sel.Short++
			continue
		}
		key := h.Sequence(sent.Words)
		if _, dup := seen[key]; dup {
			sel.Duplicate++
			continue
		}
		seen[key] = struct{}{}
		sel.Candidates = append(sel.Candidates, Candidate{Sentence: sent, Key: key})
	}
	return sel
}

// Ranked is a sentence with its score.
type Ranked struct {
	Sentence
	Breakdown Breakdown
}

// RankLocal ranks sentences using only the given frequencies, without any
// stored state. Results are sorted ascending by score (easiest last), ties
// keep input order. Words missing from freqs count as zero.
func (s *Scorer) RankLocal(freqs map[string]uint64, sentences []Sentence, h contenthash.Hasher) []Ranked {
	sel := s.Select(sentences, h)
	out := make([]Ranked, 0, len(sel.Candidates))
	for _, c := range sel.Candidates {
		fs := make([]uint64, len(c.Words))
		for i, w := range c.Words {
			fs[i] = freqs[w]
		}
		out = append(out, Ranked{Sentence: c.Sentence, Breakdown: s.Breakdown(fs)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Breakdown.Score < out[j].Breakdown.Score
	})
	return out
}
