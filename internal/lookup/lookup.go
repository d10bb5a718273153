// Package lookup runs image searches for a list of queries, one at a time,
// and reports one line per query.
package lookup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sydlexius/commonsfind/internal/provider"
)

// Result is the outcome of a single query: either a URL or an error.
type Result struct {
	Query string
	URL   string
	Err   error
}

// OK reports whether the lookup produced a URL.
func (r Result) OK() bool { return r.Err == nil }

// String renders the result the way it is printed.
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("Failed %s: %v", r.Query, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Query, r.URL)
}

// Runner performs lookups sequentially against a single searcher.
type Runner struct {
	searcher provider.ImageSearcher
	out      io.Writer
	logger   *slog.Logger
}

// NewRunner creates a Runner that prints results to out.
func NewRunner(searcher provider.ImageSearcher, out io.Writer, logger *slog.Logger) *Runner {
	return &Runner{
		searcher: searcher,
		out:      out,
		logger:   logger.With(slog.String("component", "lookup")),
	}
}

// Lookup resolves a single query. Every error is captured in the Result.
func (r *Runner) Lookup(ctx context.Context, query string) Result {
	img, err := r.searcher.Lookup(ctx, query)
	if err != nil {
		return Result{Query: query, Err: err}
	}
	if img == nil || img.URL == "" {
		return Result{Query: query, Err: &provider.ErrNotFound{Provider: r.searcher.Name(), ID: query}}
	}
	return Result{Query: query, URL: img.URL}
}

// Run looks up each query in order and writes exactly one line per query.
// A failed lookup never stops the remaining queries.
func (r *Runner) Run(ctx context.Context, queries []string) []Result {
	results := make([]Result, 0, len(queries))
	for _, q := range queries {
		start := time.Now()
		res := r.Lookup(ctx, q)
		results = append(results, res)

		if res.OK() {
			r.logger.Debug("lookup succeeded",
				slog.String("query", q),
				slog.Duration("elapsed", time.Since(start)))
		} else {
			r.logger.Warn("lookup failed",
				slog.String("query", q),
				slog.String("error", res.Err.Error()),
				slog.Duration("elapsed", time.Since(start)))
		}

		if _, err := fmt.Fprintln(r.out, res.String()); err != nil {
			r.logger.Error("writing result", slog.String("query", q), slog.String("error", err.Error()))
		}
	}
	return results
}

// Summary counts successful and failed results.
func Summary(results []Result) (found, failed int) {
	for _, res := range results {
		if res.OK() {
			found++
		} else {
			failed++
		}
	}
	return found, failed
}
