package ingest

import (
	"regexp"
	"strings"
	"unicode"
)

// footnote matches Wikipedia style "[12]" reference markers.
var footnote = regexp.MustCompile(`\[\d+\]`)

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', ';', '。', '！', '？':
		return true
	}
	return false
}

// SplitSentences cuts text into cleaned sentences. A sentence ends after a
// terminal mark (kept with the sentence) or at a blank line; single line
// breaks are treated as spaces. Fragments without any letter are dropped.
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.ReplaceAll(para, "\n", " ")
		start := 0
		for i, r := range para {
			if !isTerminal(r) {
				continue
			}
			end := i + len(string(r))
			out = appendSentence(out, para[start:end])
			start = end
		}
		out = appendSentence(out, para[start:])
	}
	return out
}

func appendSentence(out []string, raw string) []string {
	if !strings.ContainsFunc(raw, unicode.IsLetter) {
		return out
	}
	if s := CleanSentence(raw); s != "" {
		out = append(out, s)
	}
	return out
}

// CleanSentence strips leading punctuation and whitespace, trailing
// punctuation other than a terminal mark, and footnote markers. It returns
// "" when nothing but numbers, punctuation and spaces remain.
func CleanSentence(s string) string {
	s = footnote.ReplaceAllString(s, "")
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && !isTerminal(r))
	})

	for _, r := range s {
		if !unicode.IsNumber(r) && !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return s
		}
	}
	return ""
}

// CleanToken trims whitespace and any leading or trailing runes that are not
// letters or numbers. Inner punctuation ("don't", "e-mail") is kept.
func CleanToken(tok string) string {
	return strings.TrimFunc(tok, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
