package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/jokeimport/internal/config"
	"github.com/nao1215/jokeimport/internal/fetcher"
	"github.com/nao1215/jokeimport/internal/model"
)

const testURL = "https://api.chucknorris.io/jokes/random"

func jokeBody(n int) []byte {
	return fmt.Appendf(nil,
		`{"categories":[],"created_at":"2020-01-05 13:42:19.324003","icon_url":"",`+
			`"id":"id-%d","url":"https://api.chucknorris.io/jokes/id-%d","value":"joke %d"}`, n, n, n)
}

// stubFetcher answers according to respond, keyed by call order (1-based).
type stubFetcher struct {
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	delay    time.Duration
	respond  func(call int) ([]byte, error)

	mu   sync.Mutex
	urls []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	call := int(s.calls.Add(1))
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if cur <= prev || s.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	s.mu.Lock()
	s.urls = append(s.urls, url)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.respond == nil {
		return jokeBody(call), nil
	}
	return s.respond(call)
}

// fakeSaver records every saved record and can reject some by id.
type fakeSaver struct {
	mu     sync.Mutex
	saved  []model.JokeRecord
	reject map[string]bool
}

func (f *fakeSaver) Save(_ context.Context, rec model.JokeRecord) model.SaveResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := rec.Validate(); err != nil {
		return model.SaveResult{ExternalID: rec.ID, Status: model.StatusInvalid, Err: err}
	}
	if f.reject[rec.ID] {
		return model.SaveResult{ExternalID: rec.ID, Status: model.StatusStoreFailed, Err: errors.New("store down")}
	}
	f.saved = append(f.saved, rec)
	return model.SaveResult{ExternalID: rec.ID, NID: fmt.Sprint(len(f.saved)), Status: model.StatusSaved}
}

func (f *fakeSaver) NodeType() string { return "jokes" }

// countingObserver tallies observer events.
type countingObserver struct {
	mu      sync.Mutex
	stages  map[string]int
	reports int
}

func (c *countingObserver) ObserveFetch(stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stages == nil {
		c.stages = map[string]int{}
	}
	c.stages[stage]++
}

func (c *countingObserver) ObserveImport(*model.ImportReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports++
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestRunImportArguments(t *testing.T) {
	t.Parallel()

	t.Run("negative count", func(t *testing.T) {
		t.Parallel()
		f := &stubFetcher{}
		im := New(f, nil, WithLogger(slog.New(slog.DiscardHandler)))
		_, err := im.RunImport(context.Background(), testURL, -1)
		if !errors.Is(err, ErrInvalidCount) {
			t.Errorf("expected ErrInvalidCount, got %v", err)
		}
		if f.calls.Load() != 0 {
			t.Errorf("calls = %d, expected 0", f.calls.Load())
		}
	})

	t.Run("count above the batch limit", func(t *testing.T) {
		t.Parallel()
		for _, count := range []int{config.MaxPageSize + 1, 1 << 50} {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			f := &stubFetcher{}
			im := New(f, nil, WithConcurrency(1), WithLogger(slog.New(slog.DiscardHandler)))
			_, err := im.RunImport(ctx, testURL, count)
			if !errors.Is(err, ErrInvalidCount) {
				t.Errorf("count %d: expected ErrInvalidCount, got %v", count, err)
			}
			if f.calls.Load() != 0 {
				t.Errorf("count %d: calls = %d, expected 0", count, f.calls.Load())
			}
		}
	})

	t.Run("count at the batch limit", func(t *testing.T) {
		t.Parallel()
		f := &stubFetcher{}
		im := New(f, nil, WithLogger(slog.New(slog.DiscardHandler)))
		records, err := im.RunImport(context.Background(), testURL, config.MaxPageSize)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != config.MaxPageSize {
			t.Errorf("len(records) = %d, want %d", len(records), config.MaxPageSize)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()
		for _, url := range []string{"", "not a url", "ftp://example.com/joke", "http://"} {
			f := &stubFetcher{}
			im := New(f, nil, WithLogger(slog.New(slog.DiscardHandler)))
			_, err := im.RunImport(context.Background(), url, 3)
			if !errors.Is(err, config.ErrInvalidAPIURL) {
				t.Errorf("url %q: expected ErrInvalidAPIURL, got %v", url, err)
			}
			if f.calls.Load() != 0 {
				t.Errorf("url %q: calls = %d, expected 0", url, f.calls.Load())
			}
		}
	})

	t.Run("zero count", func(t *testing.T) {
		t.Parallel()
		f := &stubFetcher{}
		im := New(f, nil, WithLogger(slog.New(slog.DiscardHandler)))
		records, err := im.RunImport(context.Background(), testURL, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("len(records) = %d", len(records))
		}
		if f.calls.Load() != 0 {
			t.Errorf("calls = %d, expected 0", f.calls.Load())
		}
	})
}

func TestRunImport(t *testing.T) {
	t.Parallel()

	t.Run("all succeed", func(t *testing.T) {
		t.Parallel()
		f := &stubFetcher{}
		im := New(f, nil, WithLogger(slog.New(slog.DiscardHandler)))
		records, err := im.RunImport(context.Background(), testURL, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 5 {
			t.Errorf("len(records) = %d, expected 5", len(records))
		}
		if f.calls.Load() != 5 {
			t.Errorf("calls = %d, expected 5", f.calls.Load())
		}
		for _, u := range f.urls {
			if u != testURL {
				t.Errorf("fetched %q, expected %q", u, testURL)
			}
		}
		seen := map[string]bool{}
		for _, r := range records {
			seen[r.ID] = true
		}
		if len(seen) != 5 {
			t.Errorf("distinct ids = %d, expected 5", len(seen))
		}
	})

	t.Run("fetch failures are logged and skipped", func(t *testing.T) {
		t.Parallel()
		f := &stubFetcher{respond: func(call int) ([]byte, error) {
			if call%2 == 0 {
				return nil, &fetcher.FetchError{StatusCode: http.StatusInternalServerError}
			}
			return jokeBody(call), nil
		}}
		logger, buf := newTestLogger()
		im := New(f, nil, WithLogger(logger), WithConcurrency(1))

		records, err := im.RunImport(context.Background(), testURL, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("len(records) = %d, expected 2", len(records))
		}
		out := buf.String()
		for _, want := range []string{"Import #2 failed: unexpected status 500", "Import #4 failed: unexpected status 500"} {
			if !strings.Contains(out, want) {
				t.Errorf("log missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "Import #1 failed") || strings.Contains(out, "Import #3 failed") {
			t.Errorf("unexpected failure lines:\n%s", out)
		}
	})

	t.Run("decode failures are logged and skipped", func(t *testing.T) {
		t.Parallel()
		f := &stubFetcher{respond: func(call int) ([]byte, error) {
			if call == 1 {
				return []byte("<html>maintenance</html>"), nil
			}
			return jokeBody(call), nil
		}}
		logger, buf := newTestLogger()
		obs := &countingObserver{}
		im := New(f, nil, WithLogger(logger), WithConcurrency(1), WithObserver(obs))

		records, err := im.RunImport(context.Background(), testURL, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("len(records) = %d, expected 1", len(records))
		}
		out := buf.String()
		if !strings.Contains(out, "Import #1 failed: decode joke") || !strings.Contains(out, "stage=decode") {
			t.Errorf("decode failure not logged:\n%s", out)
		}
		if obs.stages[StageDecodeFailed] != 1 || obs.stages[StageFetched] != 2 {
			t.Errorf("observer stages = %v", obs.stages)
		}
	})

	t.Run("all fail yields empty result without error", func(t *testing.T) {
		t.Parallel()
		f := &stubFetcher{respond: func(int) ([]byte, error) {
			return nil, errors.New("connection refused")
		}}
		im := New(f, nil, WithLogger(slog.New(slog.DiscardHandler)))
		records, err := im.RunImport(context.Background(), testURL, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("len(records) = %d", len(records))
		}
	})
}

func TestRunImportConcurrencyCeiling(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		opts        []Option
		count       int
		expectedMax int64
	}{
		{"explicit ceiling", []Option{WithConcurrency(3)}, 12, 3},
		{"default ceiling", nil, 20, config.DefaultConcurrency},
		{"ceiling never above count", []Option{WithConcurrency(50)}, 2, 2},
		{"non-positive ignored", []Option{WithConcurrency(0)}, 10, config.DefaultConcurrency},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := &stubFetcher{delay: 20 * time.Millisecond}
			opts := append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, tc.opts...)
			im := New(f, nil, opts...)

			records, err := im.RunImport(context.Background(), testURL, tc.count)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != tc.count {
				t.Errorf("len(records) = %d, expected %d", len(records), tc.count)
			}
			if got := f.maxSeen.Load(); got > tc.expectedMax {
				t.Errorf("max in flight = %d, ceiling %d", got, tc.expectedMax)
			}
		})
	}
}

func TestImport(t *testing.T) {
	t.Parallel()

	t.Run("requires a saver", func(t *testing.T) {
		t.Parallel()
		im := New(&stubFetcher{}, nil)
		if _, err := im.Import(context.Background(), model.ImportRequest{SourceURL: testURL, Count: 1}); !errors.Is(err, ErrNoSaver) {
			t.Errorf("expected ErrNoSaver, got %v", err)
		}
	})

	t.Run("argument errors pass through", func(t *testing.T) {
		t.Parallel()
		saver := &fakeSaver{}
		im := New(&stubFetcher{}, saver, WithLogger(slog.New(slog.DiscardHandler)))
		if _, err := im.Import(context.Background(), model.ImportRequest{SourceURL: testURL, Count: -2}); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("expected ErrInvalidCount, got %v", err)
		}
		if len(saver.saved) != 0 {
			t.Errorf("saved %d records", len(saver.saved))
		}
	})

	t.Run("report counts every outcome", func(t *testing.T) {
		t.Parallel()
		f := &stubFetcher{respond: func(call int) ([]byte, error) {
			switch call {
			case 1:
				return nil, errors.New("connection reset")
			case 2:
				return []byte("{"), nil
			case 3:
				return []byte(`{"id":"empty"}`), nil
			default:
				return jokeBody(call), nil
			}
		}}
		saver := &fakeSaver{reject: map[string]bool{"id-5": true}}
		logger, buf := newTestLogger()
		obs := &countingObserver{}
		im := New(f, saver, WithLogger(logger), WithConcurrency(1), WithObserver(obs))

		report, err := im.Import(context.Background(), model.ImportRequest{SourceURL: testURL, Count: 6})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.Requested != 6 || report.Fetched != 4 || report.FetchFailed != 1 || report.DecodeFailed != 1 {
			t.Errorf("fetch counters = %+v", report)
		}
		if report.Saved != 2 || report.Invalid != 1 || report.StoreFailed != 1 {
			t.Errorf("save counters: saved %d invalid %d store_failed %d", report.Saved, report.Invalid, report.StoreFailed)
		}
		if report.NodeType != "jokes" || report.URL != testURL || report.Concurrency != 1 {
			t.Errorf("report metadata = %q %q %d", report.NodeType, report.URL, report.Concurrency)
		}
		if !strings.Contains(buf.String(), "Migrate completed. 2 / 6 saved successfully!") {
			t.Errorf("summary missing:\n%s", buf.String())
		}
		if obs.reports != 1 {
			t.Errorf("ObserveImport called %d times", obs.reports)
		}
	})
}

// TestImportTimeoutScenario runs three requests where the second one hangs
// past the fetch timeout.
func TestImportTimeoutScenario(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(requests.Add(1))
		if n == 2 {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jokeBody(n))
	}))
	defer srv.Close()
	defer close(release)

	f, err := fetcher.New(fetcher.WithTimeout(100 * time.Millisecond))
	if err != nil {
		t.Fatalf("fetcher.New() error = %v", err)
	}
	saver := &fakeSaver{}
	logger, buf := newTestLogger()
	// A ceiling of one dispatches tasks in index order, so request #2 is task #2.
	im := New(f, saver, WithLogger(logger), WithConcurrency(1))

	records, err := im.RunImport(context.Background(), srv.URL, 3)
	if err != nil {
		t.Fatalf("RunImport() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, expected 2", len(records))
	}
	out := buf.String()
	if c := strings.Count(out, "Import #2 failed: timeout after 100ms"); c != 1 {
		t.Errorf("timeout line count = %d:\n%s", c, out)
	}
	if strings.Count(out, "failed:") != 1 {
		t.Errorf("unexpected failure lines:\n%s", out)
	}

	requests.Store(0)
	buf.Reset()
	report, err := im.Import(context.Background(), model.ImportRequest{SourceURL: srv.URL, Count: 3})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Saved != 2 || len(saver.saved) != 2 {
		t.Errorf("saved = %d (saver %d), expected 2", report.Saved, len(saver.saved))
	}
	if !strings.Contains(buf.String(), "Migrate completed. 2 / 3 saved successfully!") {
		t.Errorf("summary missing:\n%s", buf.String())
	}
}
