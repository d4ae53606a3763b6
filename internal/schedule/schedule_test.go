package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		expr    string
		wantErr bool
	}{
		{"0 * * * *", false},
		{"*/15 9-17 * * 1-5", false},
		{"@hourly", false},
		{"@every 30m", false},
		{"", true},
		{"* * *", true},
		{"every hour", true},
		{"0 0 * * * *", true},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			t.Parallel()
			err := Validate(tc.expr)
			if tc.wantErr && !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("Validate(%q) = %v, expected ErrInvalidSchedule", tc.expr, err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate(%q) unexpected error: %v", tc.expr, err)
			}
		})
	}
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	_, err := New("not a schedule", func(context.Context) error { return nil })
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestSchedulerRuns(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	done := make(chan struct{}, 1)
	s, err := New("@every 1s", func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			done <- struct{}{}
		}
		return errors.New("upstream down")
	}, WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if s.Next() != "" {
		t.Errorf("Next() before Start = %q", s.Next())
	}

	s.Start(context.Background())
	defer s.Stop()

	if s.Next() == "" {
		t.Error("Next() empty after Start")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestSchedulerStopCancelsJobContext(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	s, err := New("@every 1s", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}, WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	s.Stop()
	select {
	case <-cancelled:
	default:
		t.Error("Stop returned before the running job observed cancellation")
	}
}
