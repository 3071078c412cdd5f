package ingest

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
)

// Segmenter splits one sentence into raw tokens. Tokens are cleaned by the
// Analyzer afterwards.
type Segmenter interface {
	Segment(sentence string) []string
}

// Segmenter names accepted by NewSegmenter.
const (
	SegmenterWhitespace = "whitespace"
	SegmenterKagome     = "kagome"
)

// NewSegmenter returns the segmenter registered under name.
func NewSegmenter(name string) (Segmenter, error) {
	switch name {
	case "", SegmenterWhitespace:
		return Whitespace{}, nil
	case SegmenterKagome:
		return NewKagome()
	default:
		return nil, fmt.Errorf("%w: unknown segmenter %q", internalerr.ErrInvalidConfig, name)
	}
}

// Whitespace splits on Unicode white space. It suits languages that
// separate words with spaces.
type Whitespace struct{}

func (Whitespace) Segment(sentence string) []string {
	return strings.Fields(sentence)
}

// Kagome segments Japanese text morphologically with the IPA dictionary.
type Kagome struct {
	t *tokenizer.Tokenizer
}

// NewKagome loads the IPA dictionary and builds a tokenizer.
func NewKagome() (*Kagome, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("init kagome tokenizer: %w", err)
	}
	return &Kagome{t: t}, nil
}

// Segment returns the surface forms of the sentence, without symbols and
// unknown blank tokens.
func (k *Kagome) Segment(sentence string) []string {
	var out []string
	for _, tok := range k.t.Tokenize(sentence) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		// IPA part of speech for symbols
		if f := tok.Features(); len(f) > 0 && f[0] == "記号" {
			continue
		}
		out = append(out, tok.Surface)
	}
	return out
}
