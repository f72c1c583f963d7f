package fetcher

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"htbwriteups/pkg/config"
	"htbwriteups/pkg/htb"
	"htbwriteups/pkg/logger"
	"htbwriteups/pkg/retry"
	"htbwriteups/pkg/storage"
	"htbwriteups/pkg/ui"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

// sequenceServer answers with the given statuses in order, repeating the last one
func sequenceServer(t *testing.T, body []byte, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
		if statuses[n] == http.StatusOK {
			_, _ = w.Write(body)
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestFetcher(t *testing.T, server *httptest.Server, dir string) (*Fetcher, *sleepRecorder, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.API.Token = "token"

	store, err := storage.NewManager(dir)
	require.NoError(t, err)

	var out bytes.Buffer
	console := ui.NewConsoleWithWriter(&out, ui.Options{NoColor: true})
	client := htb.NewClient(&cfg.API, logger.NewNopLogger())

	f := New(client, store, console, logger.NewNopLogger(), &cfg.Download)
	rec := &sleepRecorder{}
	f.Sleep = rec.Sleep
	return f, rec, &out
}

func request(server *httptest.Server, id int, name string) Request {
	return Request{ID: id, Name: name, URL: htb.WriteupURL(server.URL, id)}
}

func TestFetch_RetriesThenSaves(t *testing.T) {
	body := []byte("%PDF-1.4 writeup")
	server, calls := sequenceServer(t, body, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK)
	dir := t.TempDir()
	f, rec, _ := newTestFetcher(t, server, dir)

	res := f.Fetch(context.Background(), request(server, 1, "Lame"))

	assert.Equal(t, OutcomeSaved, res.Outcome)
	assert.True(t, res.OK())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, rec.waits)

	content, err := os.ReadFile(filepath.Join(dir, "Lame.pdf"))
	require.NoError(t, err)
	assert.Equal(t, body, content)
	assert.Equal(t, int64(len(body)), res.Bytes)
}

func TestFetch_Exhausted(t *testing.T) {
	server, calls := sequenceServer(t, nil, http.StatusTooManyRequests)
	dir := t.TempDir()
	f, rec, out := newTestFetcher(t, server, dir)

	res := f.Fetch(context.Background(), request(server, 2, "Legacy"))

	assert.Equal(t, OutcomeExhausted, res.Outcome)
	assert.Equal(t, "max retries reached", res.Reason)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Len(t, rec.waits, 2)
	assert.Contains(t, out.String(), "Max retries reached for Legacy")

	_, err := os.Stat(filepath.Join(dir, "Legacy.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetch_OtherStatusIsTerminal(t *testing.T) {
	server, calls := sequenceServer(t, nil, http.StatusInternalServerError, http.StatusOK)
	f, rec, out := newTestFetcher(t, server, t.TempDir())

	res := f.Fetch(context.Background(), request(server, 3, "Devel"))

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "status 500", res.Reason)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Empty(t, rec.waits)
	assert.Contains(t, out.String(), "Status code: 500")
}

func TestFetch_SanitizesFileName(t *testing.T) {
	server, _ := sequenceServer(t, []byte("pdf"), http.StatusOK)
	dir := t.TempDir()
	f, _, _ := newTestFetcher(t, server, dir)

	res := f.Fetch(context.Background(), request(server, 4, "Bad/Name!"))
	require.True(t, res.OK())
	assert.Equal(t, "BadName.pdf", filepath.Base(res.Path))
}

func TestFetch_CancelledDuringBackoff(t *testing.T) {
	server, calls := sequenceServer(t, nil, http.StatusTooManyRequests)
	f, _, _ := newTestFetcher(t, server, t.TempDir())
	f.Sleep = retry.Wait
	f.Backoff = retry.Constant(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res := f.Fetch(ctx, request(server, 5, "Beep"))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "interrupted", res.Reason)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestFetch_NotWritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	server, calls := sequenceServer(t, []byte("pdf"), http.StatusOK)
	dir := t.TempDir()
	f, _, out := newTestFetcher(t, server, dir)

	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	res := f.Fetch(context.Background(), request(server, 6, "Optimum"))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "permission denied", res.Reason)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
	assert.True(t, strings.Contains(out.String(), "No write permission"))
}

func TestFetch_UnusableNameMakesNoRequest(t *testing.T) {
	server, calls := sequenceServer(t, []byte("pdf"), http.StatusOK)
	dir := t.TempDir()
	f, rec, out := newTestFetcher(t, server, dir)

	res := f.Fetch(context.Background(), request(server, 9, "???"))

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "invalid file name", res.Reason)
	assert.Equal(t, 0, res.Attempts)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
	assert.Empty(t, rec.waits)
	assert.Contains(t, out.String(), "Cannot build a file name for machine 9")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "saved", OutcomeSaved.String())
	assert.Equal(t, "rate_limited", OutcomeRateLimited.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "exhausted", OutcomeExhausted.String())
}
