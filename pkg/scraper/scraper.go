package scraper

import (
	"context"
	"fmt"
	"strconv"

	"htbwriteups/pkg/config"
	"htbwriteups/pkg/fetcher"
	"htbwriteups/pkg/htb"
	"htbwriteups/pkg/ignorelist"
	"htbwriteups/pkg/logger"
	"htbwriteups/pkg/ratelimit"
	"htbwriteups/pkg/storage"
	"htbwriteups/pkg/ui"
)

// Failure is one machine whose writeup was not downloaded
type Failure struct {
	ID     int
	Name   string
	Reason string
}

// Segment is the path segment used for the machine's web page: its name
// when known, otherwise its numeric ID.
func (f Failure) Segment() string {
	if f.Name != "" {
		return f.Name
	}
	return strconv.Itoa(f.ID)
}

// Report summarizes a run
type Report struct {
	Attempted int
	Saved     int
	Skipped   int
	Existing  int
	Failures  []Failure
}

// Scraper orchestrates the writeup download process
type Scraper struct {
	resolver NameResolver
	fetcher  WriteupFetcher
	pacer    ratelimit.Pacer
	ignore   ignorelist.Set
	store    *storage.Manager
	console  *ui.Console
	config   *config.Config
	logger   logger.Logger
}

// Components holds the collaborators of a Scraper. Nil fields are built
// from the configuration by New.
type Components struct {
	Resolver NameResolver
	Fetcher  WriteupFetcher
	Pacer    ratelimit.Pacer
	Ignore   ignorelist.Set
	Store    *storage.Manager
	Logger   logger.Logger
}

// New creates a Scraper wired to the Hack The Box API
func New(cfg *config.Config, console *ui.Console) (*Scraper, error) {
	return NewWithComponents(cfg, console, Components{})
}

// NewWithComponents creates a Scraper, filling missing components from cfg
func NewWithComponents(cfg *config.Config, console *ui.Console, c Components) (*Scraper, error) {
	log := c.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	store := c.Store
	if store == nil {
		var err error
		store, err = storage.NewManager(cfg.Download.OutputDir)
		if err != nil {
			return nil, err
		}
	}

	ignore := c.Ignore
	if ignore == nil {
		var err error
		ignore, err = ignorelist.Load(cfg.Download.IgnoreFile, log)
		if err != nil {
			return nil, err
		}
	}

	var client *htb.Client
	if c.Resolver == nil || c.Fetcher == nil {
		client = htb.NewClient(&cfg.API, log)
	}

	resolver := c.Resolver
	if resolver == nil {
		resolver = client
	}

	writeups := c.Fetcher
	if writeups == nil {
		writeups = fetcher.New(client, store, console, log, &cfg.Download)
	}

	pacer := c.Pacer
	if pacer == nil {
		pacer = ratelimit.FromConfig(cfg.Download.PaceEvery, cfg.Download.PaceInterval)
	}

	return &Scraper{
		resolver: resolver,
		fetcher:  writeups,
		pacer:    pacer,
		ignore:   ignore,
		store:    store,
		console:  console,
		config:   cfg,
		logger:   log,
	}, nil
}

// Run walks the configured ID range once. A cancelled context stops the
// run after the current step; the partial report is still printed and
// returned together with the context error.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	dl := s.config.Download
	report := &Report{}

	s.logger.InfoWithFields("Starting writeup download", map[string]interface{}{
		"start_id":   dl.StartID,
		"max_id":     dl.MaxID,
		"output_dir": s.store.Dir(),
		"ignored":    s.ignore.Len(),
	})

	var runErr error
	for id := dl.StartID; id <= dl.MaxID; id++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if s.ignore.Contains(id) {
			report.Skipped++
			continue
		}

		if err := s.pace(ctx, id); err != nil {
			runErr = err
			break
		}

		if err := s.processID(ctx, id, report); err != nil {
			runErr = err
			break
		}
	}

	s.printReport(report)

	s.logger.InfoWithFields("Writeup download finished", map[string]interface{}{
		"attempted": report.Attempted,
		"saved":     report.Saved,
		"skipped":   report.Skipped,
		"existing":  report.Existing,
		"failed":    len(report.Failures),
		"written":   s.store.SavedCount(),
	})

	return report, runErr
}

func (s *Scraper) pace(ctx context.Context, id int) error {
	delay := s.pacer.Delay(id)
	if delay > 0 {
		s.console.Info("Pausing for %s to avoid rate limiting...", delay)
	}
	paused, err := s.pacer.Pace(ctx, id)
	if paused {
		s.logger.DebugWithFields("Paused before machine", map[string]interface{}{
			"id":    id,
			"delay": delay.String(),
		})
	}
	return err
}

// processID resolves and downloads one machine. Only cancellation is
// returned as an error; everything else becomes a Failure.
func (s *Scraper) processID(ctx context.Context, id int, report *Report) error {
	name, ok := s.resolver.MachineName(ctx, id)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.console.Error("Skipping ID %d: machine name not found", id)
		report.Failures = append(report.Failures, Failure{ID: id, Reason: "machine name not found"})
		return nil
	}

	if s.config.Download.SkipExisting && s.store.Exists(name) {
		s.console.Dim("Skipping %s: already downloaded", name)
		report.Existing++
		return nil
	}

	report.Attempted++
	result := s.fetcher.Fetch(ctx, fetcher.Request{
		ID:   id,
		Name: name,
		URL:  htb.WriteupURL(s.config.API.BaseURL, id),
	})
	if result.OK() {
		report.Saved++
		return nil
	}

	report.Failures = append(report.Failures, Failure{ID: id, Name: name, Reason: result.Reason})
	return ctx.Err()
}

// FailureURLs returns the writeup page of every failure, in order
func (s *Scraper) FailureURLs(report *Report) []string {
	urls := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		urls = append(urls, htb.WriteupsPageURL(s.config.API.WebURL, f.Segment()))
	}
	return urls
}

func (s *Scraper) printReport(report *Report) {
	s.console.Label("Summary", fmt.Sprintf("%d saved, %d failed, %d ignored, %d already present",
		report.Saved, len(report.Failures), report.Skipped, report.Existing))
	s.console.FailureReport(s.FailureURLs(report))
}
