// Package freqsage ties text analysis to the per-language storage engine:
// files are analyzed into batches and trained one atomic batch per file.
package freqsage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cognicore/freqsage/internal/logger"
	"github.com/cognicore/freqsage/pkg/freqsage/config"
	"github.com/cognicore/freqsage/pkg/freqsage/contenthash"
	"github.com/cognicore/freqsage/pkg/freqsage/engine"
	"github.com/cognicore/freqsage/pkg/freqsage/ingest"
	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/kv/sqlite"
	"github.com/cognicore/freqsage/pkg/freqsage/metrics"
	"github.com/cognicore/freqsage/pkg/freqsage/rank"
)

// Sage is the database of one language together with the analyzer that
// feeds it.
type Sage struct {
	language string
	engine   *engine.Engine
	analyzer *ingest.Analyzer
	workers  int
	log      *slog.Logger
}

// Options configures a Sage instance
type Options struct {
	Language string
	Engine   *engine.Engine
	Analyzer *ingest.Analyzer
	Workers  int
	Logger   *slog.Logger
}

// New creates a Sage from already opened parts.
func New(opts Options) *Sage {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Analyzer == nil {
		opts.Analyzer = ingest.NewAnalyzer(ingest.Options{Lowercase: true})
	}
	return &Sage{
		language: opts.Language,
		engine:   opts.Engine,
		analyzer: opts.Analyzer,
		workers:  opts.Workers,
		log:      opts.Logger,
	}
}

// Open opens the SQLite database of lang inside cfg.Storage.DataDir,
// creating the directory and file on first use.
func Open(ctx context.Context, cfg *config.Config, lang string, m *metrics.Metrics) (*Sage, error) {
	if err := config.ValidateLanguage(lang); err != nil {
		return nil, err
	}
	analyzer, err := NewAnalyzer(cfg)
	if err != nil {
		return nil, err
	}
	path := cfg.DatabasePath(lang)
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, internalerr.Op("open_store", path, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err))
	}

	store, err := sqlite.Open(ctx, path, engine.Tables()...)
	if err != nil {
		return nil, internalerr.Op("open_store", path, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err))
	}
	eng, err := engine.Open(ctx, store, engine.Options{
		Ranking: cfg.RankConfig(),
		Logger:  logger.ForLanguage(lang, "engine"),
		Metrics: m,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return New(Options{
		Language: lang,
		Engine:   eng,
		Analyzer: analyzer,
		Workers:  cfg.Ingest.Workers,
		Logger:   logger.ForLanguage(lang, "sage"),
	}), nil
}

// NewAnalyzer builds the analyzer described by the ingest section of cfg.
func NewAnalyzer(cfg *config.Config) (*ingest.Analyzer, error) {
	seg, err := ingest.NewSegmenter(cfg.Ingest.Segmenter)
	if err != nil {
		return nil, err
	}
	return ingest.NewAnalyzer(ingest.Options{Segmenter: seg, Lowercase: cfg.Ingest.Lowercase}), nil
}

// Close closes the underlying database.
func (s *Sage) Close() error {
	return s.engine.Close()
}

// Language returns the language this database belongs to.
func (s *Sage) Language() string {
	return s.language
}

// Engine exposes the storage engine for queries.
func (s *Sage) Engine() *engine.Engine {
	return s.engine
}

// TrainText analyzes text and trains it as one batch.
func (s *Sage) TrainText(ctx context.Context, source, text string) (engine.TrainResult, error) {
	return s.train(ctx, s.analyzer.Analyze(source, text))
}

// TrainFiles analyzes paths concurrently, then trains each file as its own
// batch in input order. Batches committed before a failure stay committed;
// their results are returned with the error.
func (s *Sage) TrainFiles(ctx context.Context, paths []string) ([]engine.TrainResult, error) {
	docs, err := s.analyzer.AnalyzeFiles(ctx, paths, s.workers)
	if err != nil {
		return nil, err
	}

	results := make([]engine.TrainResult, 0, len(docs))
	for _, doc := range docs {
		res, err := s.train(ctx, doc)
		if err != nil {
			return results, fmt.Errorf("train %s: %w", doc.Source, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Sage) train(ctx context.Context, doc ingest.Document) (engine.TrainResult, error) {
	s.log.Debug("training document", "source", doc.Source, "words", doc.Words(), "sentences", len(doc.Sentences))
	return s.engine.Train(ctx, engine.Batch{
		Source:      doc.Source,
		Frequencies: doc.Frequencies,
		Sentences:   doc.Sentences,
	})
}

// DryRun ranks the sentences of doc against its own word counts only. No
// database is read or written. Results are sorted by ascending score.
func DryRun(doc ingest.Document, scorer *rank.Scorer) []rank.Ranked {
	return scorer.RankLocal(doc.Frequencies, doc.Sentences, contenthash.New(engine.CurrentLayoutVersion))
}
