package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/freqsage/internal/logger"
	"github.com/cognicore/freqsage/pkg/freqsage"
	"github.com/cognicore/freqsage/pkg/freqsage/config"
	"github.com/cognicore/freqsage/pkg/freqsage/engine"
	"github.com/cognicore/freqsage/pkg/freqsage/ingest"
	"github.com/cognicore/freqsage/pkg/freqsage/metrics"
	"github.com/cognicore/freqsage/pkg/freqsage/rank"
)

const usage = `usage: freqsage [-config file] [-lang language] [-data-dir dir] <command> [args]

commands:
  train <file>...                              train one batch per file (.txt, .html, .jsonl)
  show frequencies|rankings [-limit N] [-lowest] list stored words or sentences
  dry-run <file> [-limit N]                    rank a file by its own word counts only
  history [-limit N] [-run ID]                 list training runs, newest first
  reindex                                      rebuild both secondary indices
  stats [-verify]                              table row counts
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "freqsage: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("freqsage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	var (
		configPath = fs.String("config", "", "YAML config file")
		lang       = fs.String("lang", "", "language database to use (default from config)")
		dataDir    = fs.String("data-dir", "", "directory holding one database per language")
	)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *lang != "" {
		cfg.Storage.DefaultLanguage = *lang
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Setup(stderr, cfg.Logging.Level, cfg.Logging.Format)

	if fs.NArg() == 0 {
		return fmt.Errorf("%w: no command", errUsage)
	}
	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]

	m := metrics.New()
	switch cmd {
	case "train":
		err = cmdTrain(ctx, cfg, m, cmdArgs, stdout)
	case "show":
		err = cmdShow(ctx, cfg, m, cmdArgs, stdout)
	case "dry-run":
		err = cmdDryRun(ctx, cfg, cmdArgs, stdout)
	case "history":
		err = cmdHistory(ctx, cfg, m, cmdArgs, stdout)
	case "reindex":
		err = cmdReindex(ctx, cfg, m, stdout)
	case "stats":
		err = cmdStats(ctx, cfg, m, cmdArgs, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	if cfg.Metrics.Textfile != "" {
		if werr := m.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.WithComponent("cli").Warn("write metrics textfile", "path", cfg.Metrics.Textfile, "error", werr)
		}
	}
	return err
}

func open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*freqsage.Sage, error) {
	return freqsage.Open(ctx, cfg, cfg.Storage.DefaultLanguage, m)
}

func limitOf(n int) engine.Limit {
	if n < 0 {
		return engine.All
	}
	return engine.Top(uint64(n))
}

func cmdTrain(ctx context.Context, cfg *config.Config, m *metrics.Metrics, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: train needs at least one file", errUsage)
	}
	s, err := open(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.TrainFiles(ctx, args)
	for _, r := range results {
		fmt.Fprintf(stdout, "run %s %s: %d words (%d new), %d sentences ranked (%d new, %d short, %d duplicate)\n",
			r.ID, r.Source, r.WordsMerged, r.NewWords, r.SentencesRanked, r.NewSentences, r.SkippedShort, r.SkippedDuplicate)
	}
	return err
}

func cmdShow(ctx context.Context, cfg *config.Config, m *metrics.Metrics, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", 20, "number of entries (negative for all)")
	lowest := fs.Bool("lowest", false, "lowest values first (rarest words, hardest sentences)")

	var kind string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		kind, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: show: %v", errUsage, err)
	}
	if kind == "" {
		kind = fs.Arg(0)
	}
	if kind != "frequencies" && kind != "rankings" {
		return fmt.Errorf("%w: show frequencies|rankings, got %q", errUsage, kind)
	}

	s, err := open(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()
	eng := s.Engine()

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	switch kind {
	case "frequencies":
		query := eng.TopFrequencies
		if *lowest {
			query = eng.LowestFrequencies
		}
		recs, err := query(ctx, limitOf(*limit))
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "COUNT\tWORD")
		for _, r := range recs {
			fmt.Fprintf(tw, "%d\t%s\n", r.Count, r.Word)
		}
	case "rankings":
		query := eng.TopRankings
		if *lowest {
			query = eng.LowestRankings
		}
		recs, err := query(ctx, limitOf(*limit))
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "SCORE\tSENTENCE")
		for _, r := range recs {
			fmt.Fprintf(tw, "%d\t%s\n", r.Score, r.Sentence)
		}
	}
	return tw.Flush()
}

func cmdDryRun(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("dry-run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", -1, "show only the N easiest sentences (negative for all)")

	var path string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		path, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: dry-run: %v", errUsage, err)
	}
	if path == "" {
		path = fs.Arg(0)
	}
	if path == "" {
		return fmt.Errorf("%w: dry-run needs a file", errUsage)
	}

	analyzer, err := freqsage.NewAnalyzer(cfg)
	if err != nil {
		return err
	}
	docs, err := analyzer.AnalyzeFiles(ctx, []string{path}, 1)
	if err != nil {
		return err
	}
	doc := docs[0]
	ranked := freqsage.DryRun(doc, rank.NewScorer(cfg.RankConfig()))
	if *limit >= 0 && *limit < len(ranked) {
		ranked = ranked[len(ranked)-*limit:]
	}

	printDryRun(stdout, doc, ranked)
	return nil
}

func printDryRun(w io.Writer, doc ingest.Document, ranked []rank.Ranked) {
	fmt.Fprintf(w, "%s: %d distinct words, %d word occurrences, %d sentences\n",
		doc.Source, len(doc.Frequencies), doc.Words(), len(doc.Sentences))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tAVG\tWORDS\tSENTENCE")
	for _, r := range ranked {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", r.Breakdown.Score, r.Breakdown.Average, r.Breakdown.Words, r.Text)
	}
	tw.Flush()
}

func cmdHistory(ctx context.Context, cfg *config.Config, m *metrics.Metrics, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", 20, "number of runs (negative for all)")
	runID := fs.String("run", "", "show a single run")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: history: %v", errUsage, err)
	}
	var id ulid.ULID
	if *runID != "" {
		var err error
		if id, err = ulid.ParseStrict(*runID); err != nil {
			return fmt.Errorf("%w: history: bad run id %q: %v", errUsage, *runID, err)
		}
	}

	s, err := open(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()

	var runs []engine.Run
	if *runID != "" {
		r, err := s.Engine().RunByID(ctx, id)
		if err != nil {
			return err
		}
		runs = append(runs, r)
	} else if runs, err = s.Engine().Runs(ctx, limitOf(*limit)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCOMMITTED\tWORDS\tSENTENCES\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CommittedAt.Format(time.RFC3339), r.WordsMerged, r.SentencesRanked, r.Source)
	}
	return tw.Flush()
}

func cmdReindex(ctx context.Context, cfg *config.Config, m *metrics.Metrics, stdout io.Writer) error {
	s, err := open(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Engine().Reindex(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "reindexed %s\n", s.Language())
	return nil
}

func cmdStats(ctx context.Context, cfg *config.Config, m *metrics.Metrics, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	verify := fs.Bool("verify", false, "check every index entry against its primary record")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: stats: %v", errUsage, err)
	}

	s, err := open(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Engine().Stats(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "language\t%s\n", s.Language())
	fmt.Fprintf(tw, "layout_version\t%d\n", st.LayoutVersion)
	fmt.Fprintf(tw, "frequencies\t%d\n", st.Frequencies)
	fmt.Fprintf(tw, "frequency_index\t%d\n", st.FrequencyIndex)
	fmt.Fprintf(tw, "rankings\t%d\n", st.Rankings)
	fmt.Fprintf(tw, "ranking_index\t%d\n", st.RankingIndex)
	fmt.Fprintf(tw, "runs\t%d\n", st.Runs)
	if err := tw.Flush(); err != nil {
		return err
	}

	if *verify {
		if err := s.Engine().Verify(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "indices: ok")
	}
	return nil
}
