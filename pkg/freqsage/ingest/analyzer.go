// Package ingest turns raw documents into the frequency deltas and cleaned
// sentences a training batch consists of.
package ingest

import (
	"strings"

	"github.com/cognicore/freqsage/pkg/freqsage/rank"
)

// Document is the analysis of one input text.
type Document struct {
	Source      string
	Frequencies map[string]uint64
	Sentences   []rank.Sentence
}

// Words returns the total number of word occurrences in the document.
func (d Document) Words() uint64 {
	var n uint64
	for _, c := range d.Frequencies {
		n += c
	}
	return n
}

// Options configures an Analyzer.
type Options struct {
	Segmenter Segmenter
	Lowercase bool
}

// Analyzer splits text into sentences, segments and cleans their words, and
// counts every word occurrence.
type Analyzer struct {
	seg       Segmenter
	lowercase bool
}

// NewAnalyzer creates an analyzer. A nil segmenter means Whitespace.
func NewAnalyzer(opts Options) *Analyzer {
	seg := opts.Segmenter
	if seg == nil {
		seg = Whitespace{}
	}
	return &Analyzer{seg: seg, lowercase: opts.Lowercase}
}

// Analyze processes text. Every word of every returned sentence is present
// in Frequencies; sentences with no words left after cleaning are dropped.
func (a *Analyzer) Analyze(source, text string) Document {
	doc := Document{Source: source, Frequencies: make(map[string]uint64)}
	for _, s := range SplitSentences(text) {
		words := a.Words(s)
		if len(words) == 0 {
			continue
		}
		for _, w := range words {
			doc.Frequencies[w]++
		}
		doc.Sentences = append(doc.Sentences, rank.Sentence{Text: s, Words: words})
	}
	return doc
}

// Words segments one sentence and returns its cleaned, non-empty words.
func (a *Analyzer) Words(sentence string) []string {
	raw := a.seg.Segment(sentence)
	words := make([]string, 0, len(raw))
	for _, tok := range raw {
		w := CleanToken(tok)
		if w == "" {
			continue
		}
		if a.lowercase {
			w = strings.ToLower(w)
		}
		words = append(words, w)
	}
	return words
}
