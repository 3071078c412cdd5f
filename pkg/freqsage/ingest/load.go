package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
)

// Record is one line of a JSONL corpus.
type Record struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Body  string `json:"text"`
}

// LoadFile reads path and returns its plain text, choosing the reader by
// extension: .html/.htm are stripped of markup, .jsonl is read as a corpus
// of records, anything else is taken as plain UTF-8 text.
func LoadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err := ExtractHTML(f)
		if err != nil {
			return "", fmt.Errorf("parse html %s: %w", path, err)
		}
		return text, nil
	case ".jsonl":
		records, err := ReadJSONL(f, path)
		if err != nil {
			return "", err
		}
		return JoinRecords(records), nil
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}
}

// skipElements never contribute visible text.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// blockElements end a paragraph.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
}

// ExtractHTML returns the visible text of an HTML document. Block elements
// are separated by blank lines so they never merge into one sentence.
func ExtractHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteString("\n\n")
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String()), nil
}

// ReadJSONL decodes one Record per line. Malformed lines are logged and
// skipped; a stream without a single valid record is an error.
func ReadJSONL(r io.Reader, name string) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			slog.Warn("skipping malformed JSON line", "file", name, "line", line, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no valid records in %s", internalerr.ErrInvalidInput, name)
	}
	return records, nil
}

// JoinRecords concatenates record titles and bodies, one paragraph each.
func JoinRecords(records []Record) string {
	var b strings.Builder
	for _, rec := range records {
		if rec.Title != "" {
			b.WriteString(rec.Title)
			b.WriteString("\n\n")
		}
		if rec.Body != "" {
			b.WriteString(rec.Body)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
