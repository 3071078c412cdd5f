package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AnalyzeFiles loads and analyzes paths with at most workers files in
// flight. The result has one Document per path, in input order. The first
// error cancels the remaining work.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string, workers int) ([]Document, error) {
	if workers < 1 {
		workers = 1
	}
	docs := make([]Document, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := LoadFile(path)
			if err != nil {
				return err
			}
			docs[i] = a.Analyze(path, text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
