// Package orchestrator downloads a list of files with bounded concurrency.
//
// A failed file is recorded and the rest carry on. The whole batch stops only
// when the caller cancels the context or the sink rejects a file; files that
// have not started by then are marked failed without a request being made.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cbout22/ghdir/internal/config"
	"github.com/cbout22/ghdir/internal/store"
)

// DefaultConcurrency is the worker count used when Options leaves it unset.
const DefaultConcurrency = config.DefaultConcurrency

// Fetcher downloads one file. *downloader.Downloader implements it.
type Fetcher interface {
	Download(ctx context.Context, ref config.RepoRef, file config.FileEntry, token string) ([]byte, error)
}

// Result is the outcome for one file. Data is nil when a Sink consumed it.
type Result struct {
	File config.FileEntry
	Data []byte
	Err  error
}

// OK reports whether the file was downloaded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Progress is reported after every file settles, in completion order.
// Completed increases by exactly one per report.
type Progress struct {
	Completed int
	Total     int
	Path      string
	Err       error
}

// Summary aggregates a batch. Results are in the order files were given.
type Summary struct {
	Results   []Result
	Succeeded int
	Failed    int
}

// Failures returns the failed results.
func (s Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Options tune a single DownloadAll call.
type Options struct {
	Concurrency int
	Token       string
	Progress    func(Progress)
	// Sink, when set, receives every downloaded file as soon as it arrives.
	// A Sink error aborts the batch.
	Sink store.Sink
}

// Orchestrator fans files out to a Fetcher.
type Orchestrator struct {
	fetcher Fetcher
	log     *slog.Logger
}

// New creates an Orchestrator.
func New(fetcher Fetcher, log *slog.Logger) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, log: log}
}

// DownloadAll downloads files with at most opts.Concurrency requests in
// flight. The returned error is non-nil only when the batch was aborted, in
// which case it is the cancellation cause; per-file failures are reported in
// the Summary.
func (o *Orchestrator) DownloadAll(ctx context.Context, ref config.RepoRef, files []config.FileEntry, opts Options) (Summary, error) {
	limit := opts.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	results := make([]Result, len(files))
	var (
		mu        sync.Mutex
		completed int
	)
	settle := func(i int, r Result) {
		results[i] = r

		mu.Lock()
		defer mu.Unlock()
		completed++
		if opts.Progress != nil {
			opts.Progress(Progress{Completed: completed, Total: len(files), Path: r.File.Path, Err: r.Err})
		}
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, file := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				settle(i, Result{File: file, Err: context.Cause(ctx)})
				return nil
			}

			data, err := o.fetcher.Download(ctx, ref, file, opts.Token)
			if err == nil && opts.Sink != nil {
				if err = opts.Sink.Put(file.Path, data); err != nil {
					o.log.Error("writing file failed, aborting", "path", file.Path, "error", err)
					cancel(err)
				}
				data = nil
			}
			if err != nil && ctx.Err() == nil {
				o.log.Error("file download failed", "path", file.Path, "error", err)
			}
			settle(i, Result{File: file, Data: data, Err: err})
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Results: results}
	for _, r := range results {
		if r.OK() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	o.log.Debug("batch finished", "succeeded", summary.Succeeded, "failed", summary.Failed, "total", len(files))

	if ctx.Err() != nil {
		return summary, context.Cause(ctx)
	}
	return summary, nil
}
