package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htbwriteups/pkg/config"
	"htbwriteups/pkg/fetcher"
	"htbwriteups/pkg/htb"
	"htbwriteups/pkg/ignorelist"
	"htbwriteups/pkg/logger"
	"htbwriteups/pkg/ratelimit"
	"htbwriteups/pkg/storage"
	"htbwriteups/pkg/ui"
)

// fakeAPI serves machine profiles and writeups for a small catalog
type fakeAPI struct {
	mu       sync.Mutex
	names    map[int]string
	writeup  map[int]int
	requests []string
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.requests = append(a.requests, r.URL.Path)
	a.mu.Unlock()

	var id int
	switch {
	case strings.HasPrefix(r.URL.Path, "/machine/profile/"):
		fmt.Sscanf(r.URL.Path, "/machine/profile/%d", &id)
		name, ok := a.names[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"info":{"id":%d,"name":%q}}`, id, name)
	case strings.HasPrefix(r.URL.Path, "/machine/writeup/"):
		fmt.Sscanf(r.URL.Path, "/machine/writeup/%d", &id)
		if status, ok := a.writeup[id]; ok && status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, "%%PDF writeup %d", id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (a *fakeAPI) requested(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.requests {
		if p == path {
			return true
		}
	}
	return false
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

type harness struct {
	scraper *Scraper
	api     *fakeAPI
	dir     string
	out     *bytes.Buffer
	pace    *recordingSleeper
	backoff *recordingSleeper
}

func newHarness(t *testing.T, api *fakeAPI, ignore ignorelist.Set, maxID int) *harness {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.API.Token = "token"
	cfg.Download.OutputDir = dir
	cfg.Download.MaxID = maxID

	var out bytes.Buffer
	console := ui.NewConsoleWithWriter(&out, ui.Options{NoColor: true})
	log := logger.NewNopLogger()

	store, err := storage.NewManager(dir)
	require.NoError(t, err)

	backoff := &recordingSleeper{}
	client := htb.NewClient(&cfg.API, log)
	f := fetcher.New(client, store, console, log, &cfg.Download)
	f.Sleep = backoff.Sleep

	pace := &recordingSleeper{}
	pacer := ratelimit.NewEveryN(cfg.Download.PaceEvery, cfg.Download.PaceInterval)
	pacer.Sleep = pace.Sleep

	s, err := NewWithComponents(cfg, console, Components{
		Resolver: client,
		Fetcher:  f,
		Pacer:    pacer,
		Ignore:   ignore,
		Store:    store,
		Logger:   log,
	})
	require.NoError(t, err)

	return &harness{scraper: s, api: api, dir: dir, out: &out, pace: pace, backoff: backoff}
}

func pdfFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	require.NoError(t, err)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names
}

func TestRun_EndToEnd(t *testing.T) {
	api := &fakeAPI{names: map[int]string{
		1: "Lame", 2: "Legacy", 3: "Devel", 4: "Optimum", 5: "Bastard", 6: "Beep",
	}}
	h := newHarness(t, api, ignorelist.Set{3: {}}, 6)

	report, err := h.scraper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bastard.pdf", "Beep.pdf", "Lame.pdf", "Legacy.pdf", "Optimum.pdf"}, pdfFiles(t, h.dir))
	assert.Equal(t, []time.Duration{10 * time.Second}, h.pace.waits)
	assert.Empty(t, h.backoff.waits)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 5, report.Attempted)
	assert.Equal(t, 5, report.Saved)
	assert.Equal(t, 1, report.Skipped)
	assert.NotContains(t, h.out.String(), "Failed to download")
}

func TestRun_IgnoredIDsAreNeverRequested(t *testing.T) {
	api := &fakeAPI{names: map[int]string{1: "Lame", 2: "Legacy", 3: "Devel"}}
	h := newHarness(t, api, ignorelist.Set{2: {}, 3: {}}, 3)

	_, err := h.scraper.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, h.api.requested("/machine/profile/1"))
	for _, path := range []string{"/machine/profile/2", "/machine/writeup/2", "/machine/profile/3", "/machine/writeup/3"} {
		assert.False(t, h.api.requested(path), path)
	}
}

func TestRun_IgnoredPacingIDIsNotPaused(t *testing.T) {
	api := &fakeAPI{names: map[int]string{6: "Beep"}}
	h := newHarness(t, api, ignorelist.Set{6: {}}, 6)

	report, err := h.scraper.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.pace.waits)
	assert.Len(t, report.Failures, 5)
}

// fixedPacer pauses before a single ID without sleeping
type fixedPacer struct {
	id    int
	delay time.Duration
	paced []int
}

func (p *fixedPacer) Delay(id int) time.Duration {
	if id == p.id {
		return p.delay
	}
	return 0
}

func (p *fixedPacer) Pace(ctx context.Context, id int) (bool, error) {
	if id != p.id {
		return false, nil
	}
	p.paced = append(p.paced, id)
	return true, ctx.Err()
}

func TestRun_AnnouncesPacerDelay(t *testing.T) {
	api := &fakeAPI{names: map[int]string{1: "Lame", 2: "Legacy"}}
	h := newHarness(t, api, ignorelist.Set{}, 2)
	pacer := &fixedPacer{id: 2, delay: 3 * time.Second}
	h.scraper.pacer = pacer

	_, err := h.scraper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{2}, pacer.paced)
	assert.Contains(t, h.out.String(), "Pausing for 3s to avoid rate limiting...")
	assert.Equal(t, 1, strings.Count(h.out.String(), "Pausing for"))
}

func TestNewWithComponents_PacingDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Download.OutputDir = t.TempDir()
	cfg.Download.IgnoreFile = filepath.Join(cfg.Download.OutputDir, "ignore_list")
	cfg.Download.PaceEvery = 0
	console := ui.NewConsoleWithWriter(&bytes.Buffer{}, ui.Options{NoColor: true})

	s, err := NewWithComponents(cfg, console, Components{Logger: logger.NewNopLogger()})
	require.NoError(t, err)
	assert.IsType(t, ratelimit.Nop{}, s.pacer)
}

func TestRun_FailureReport(t *testing.T) {
	api := &fakeAPI{
		names:   map[int]string{1: "Lame", 3: "Devel", 4: "Optimum"},
		writeup: map[int]int{3: http.StatusInternalServerError, 4: http.StatusTooManyRequests},
	}
	h := newHarness(t, api, ignorelist.Set{}, 4)

	report, err := h.scraper.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Failures, 3)
	assert.Equal(t, Failure{ID: 2, Reason: "machine name not found"}, report.Failures[0])
	assert.Equal(t, Failure{ID: 3, Name: "Devel", Reason: "status 500"}, report.Failures[1])
	assert.Equal(t, Failure{ID: 4, Name: "Optimum", Reason: "max retries reached"}, report.Failures[2])
	assert.Len(t, h.backoff.waits, 2)

	assert.Equal(t, []string{
		"https://app.hackthebox.com/machines/2/writeups",
		"https://app.hackthebox.com/machines/Devel/writeups",
		"https://app.hackthebox.com/machines/Optimum/writeups",
	}, h.scraper.FailureURLs(report))

	out := h.out.String()
	assert.Contains(t, out, "Skipping ID 2: machine name not found")
	assert.Contains(t, out, "https://app.hackthebox.com/machines/Devel/writeups")
	assert.Equal(t, []string{"Lame.pdf"}, pdfFiles(t, h.dir))
}

func TestRun_SkipExisting(t *testing.T) {
	api := &fakeAPI{names: map[int]string{1: "Lame", 2: "Legacy"}}
	h := newHarness(t, api, ignorelist.Set{}, 2)
	h.scraper.config.Download.SkipExisting = true
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "Lame.pdf"), []byte("old"), 0644))

	report, err := h.scraper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Existing)
	assert.Equal(t, 1, report.Saved)
	assert.False(t, h.api.requested("/machine/writeup/1"))

	content, err := os.ReadFile(filepath.Join(h.dir, "Lame.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(content))
}

func TestRun_Cancelled(t *testing.T) {
	api := &fakeAPI{names: map[int]string{1: "Lame"}}
	h := newHarness(t, api, ignorelist.Set{}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.scraper.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Attempted)
	assert.Empty(t, report.Failures)
}

func TestFailureSegment(t *testing.T) {
	assert.Equal(t, "Lame", Failure{ID: 1, Name: "Lame"}.Segment())
	assert.Equal(t, "42", Failure{ID: 42}.Segment())
}

func TestNew_MissingOutputDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Download.OutputDir = filepath.Join(t.TempDir(), "missing")
	console := ui.NewConsoleWithWriter(&bytes.Buffer{}, ui.Options{NoColor: true})

	_, err := New(cfg, console)
	assert.Error(t, err)
}

func TestNew_InvalidIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	ignore := filepath.Join(dir, "ignore_list")
	require.NoError(t, os.WriteFile(ignore, []byte("1\nnope\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.Download.OutputDir = dir
	cfg.Download.IgnoreFile = ignore
	console := ui.NewConsoleWithWriter(&bytes.Buffer{}, ui.Options{NoColor: true})

	_, err := NewWithComponents(cfg, console, Components{Logger: logger.NewNopLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
