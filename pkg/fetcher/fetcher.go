package fetcher

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"htbwriteups/pkg/config"
	"htbwriteups/pkg/errors"
	"htbwriteups/pkg/logger"
	"htbwriteups/pkg/retry"
	"htbwriteups/pkg/storage"
	"htbwriteups/pkg/ui"
)

// Getter performs an authenticated GET request
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Outcome is the result of a single download attempt, or of a whole fetch
type Outcome int

const (
	// OutcomeSaved means the file was written to disk
	OutcomeSaved Outcome = iota
	// OutcomeRateLimited means the server answered 429
	OutcomeRateLimited
	// OutcomeFailed is a terminal failure that is not retried
	OutcomeFailed
	// OutcomeExhausted means every attempt was rate limited
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFailed:
		return "failed"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request describes one writeup download
type Request struct {
	ID   int
	Name string
	URL  string
}

// Result is what Fetch reports back to the caller
type Result struct {
	Outcome  Outcome
	Path     string
	Bytes    int64
	Attempts int
	Reason   string
	Err      error
}

// OK reports whether the writeup was saved
func (r Result) OK() bool {
	return r.Outcome == OutcomeSaved
}

// Fetcher downloads writeups with bounded retries on rate limiting
type Fetcher struct {
	client  Getter
	store   *storage.Manager
	console *ui.Console
	logger  logger.Logger

	MaxRetries int
	Backoff    retry.BackoffStrategy
	Sleep      retry.Sleeper
	ChunkSize  int
}

// New creates a fetcher from the download configuration
func New(client Getter, store *storage.Manager, console *ui.Console, log logger.Logger, cfg *config.DownloadConfig) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client:     client,
		store:      store,
		console:    console,
		logger:     log,
		MaxRetries: cfg.MaxRetries,
		Backoff:    retry.NewRateLimitBackoff(cfg.RateLimitBackoff, cfg.BackoffMultiplier),
		Sleep:      retry.Wait,
		ChunkSize:  cfg.ChunkSize,
	}
}

// Fetch downloads one writeup. It never returns an error directly; the
// Result carries the outcome and the reason of a failure.
func (f *Fetcher) Fetch(ctx context.Context, req Request) Result {
	if _, err := f.store.PathFor(req.Name); err != nil {
		f.console.Error("Cannot build a file name for machine %d (%q)", req.ID, req.Name)
		return f.fail(req, 0, "invalid file name", err)
	}
	if err := f.store.CheckWritable(); err != nil {
		f.console.Error("No write permission for directory %s", f.store.Dir())
		return f.fail(req, 0, "permission denied", err)
	}

	maxRetries := f.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		res := f.attempt(ctx, req)
		res.Attempts = attempt

		switch res.Outcome {
		case OutcomeSaved:
			f.console.Success("Downloaded %s", res.Path)
			logger.LogDownload(f.logger, req.ID, req.Name, res.Outcome.String(), nil)
			return res
		case OutcomeFailed:
			logger.LogDownload(f.logger, req.ID, req.Name, res.Outcome.String(), res.Err)
			return res
		}

		if attempt == maxRetries {
			break
		}

		delay := f.Backoff.NextDelay(attempt)
		f.console.Warning("Rate limit hit for %s. Waiting %s before retrying (%d/%d)...",
			req.Name, delay.Round(time.Second), attempt, maxRetries)
		logger.LogRateLimit(f.logger, req.URL, delay, attempt)

		if err := f.Sleep(ctx, delay); err != nil {
			return f.fail(req, attempt, "interrupted", err)
		}
	}

	f.console.Error("Max retries reached for %s", req.Name)
	err := errors.New(errors.ErrorTypeRateLimit, http.StatusTooManyRequests, "max retries reached after %d attempts", maxRetries)
	logger.LogDownload(f.logger, req.ID, req.Name, OutcomeExhausted.String(), err)
	return Result{
		Outcome:  OutcomeExhausted,
		Attempts: maxRetries,
		Reason:   "max retries reached",
		Err:      err,
	}
}

// attempt performs one request and, on 200, streams the body to disk
func (f *Fetcher) attempt(ctx context.Context, req Request) Result {
	resp, err := f.client.Get(ctx, req.URL)
	if err != nil {
		f.console.Error("Failed to download %s: %v", req.Name, err)
		return Result{Outcome: OutcomeFailed, Reason: "request error", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case errors.IsRetryableStatusCode(resp.StatusCode):
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{Outcome: OutcomeRateLimited, Reason: "rate limited", Err: errors.FromStatusCode(resp.StatusCode)}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		f.console.Error("Failed to download %s. Status code: %d", req.Name, resp.StatusCode)
		return Result{
			Outcome: OutcomeFailed,
			Reason:  fmt.Sprintf("status %d", resp.StatusCode),
			Err:     errors.FromStatusCode(resp.StatusCode),
		}
	}

	bar := f.console.NewProgress(resp.ContentLength, req.Name)
	path, n, err := f.store.Save(req.Name, resp.Body, f.ChunkSize, bar)
	_ = bar.Finish()
	if err != nil {
		f.console.Error("Error writing writeup for %s: %v", req.Name, err)
		return Result{Outcome: OutcomeFailed, Bytes: n, Reason: "write error", Err: err}
	}

	return Result{Outcome: OutcomeSaved, Path: path, Bytes: n}
}

func (f *Fetcher) fail(req Request, attempts int, reason string, err error) Result {
	logger.LogDownload(f.logger, req.ID, req.Name, OutcomeFailed.String(), err)
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		reason = "interrupted"
	}
	return Result{Outcome: OutcomeFailed, Attempts: attempts, Reason: reason, Err: err}
}
