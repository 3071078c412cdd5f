package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRegistered(t *testing.T) {
	m := New()
	m.TrainBatchesTotal.Inc()
	m.SentencesSkipped.WithLabelValues("short").Add(2)
	m.IndexRebuildsTotal.WithLabelValues("frequency", "drift").Inc()

	if got := testutil.ToFloat64(m.TrainBatchesTotal); got != 1 {
		t.Errorf("batches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SentencesSkipped.WithLabelValues("short")); got != 2 {
		t.Errorf("skipped short = %v, want 2", got)
	}

	n, err := testutil.GatherAndCount(m.Registry)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n < 3 {
		t.Errorf("expected at least 3 series, got %d", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.WordsMergedTotal.Add(42)

	path := filepath.Join(t.TempDir(), "freqsage.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "freqsage_words_merged_total 42") {
		t.Errorf("textfile missing counter:\n%s", data)
	}
}
