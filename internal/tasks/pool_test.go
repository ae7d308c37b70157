package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	t.Run("returns results in input order", func(t *testing.T) {
		jobs := []int{5, 1, 4, 2, 3}
		results, err := Run(context.Background(), jobs, Opts{Workers: 3}, func(_ context.Context, n int) error {
			time.Sleep(time.Duration(n) * time.Millisecond)
			return nil
		})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(results) != len(jobs) {
			t.Fatalf("expected %d results, got %d", len(jobs), len(results))
		}
		for i, r := range results {
			if r.Job != jobs[i] {
				t.Errorf("result %d: expected job %d, got %d", i, jobs[i], r.Job)
			}
		}
	})

	t.Run("records failures without aborting", func(t *testing.T) {
		boom := errors.New("boom")
		results, err := Run(context.Background(), []string{"a", "bad", "c"}, Opts{}, func(_ context.Context, s string) error {
			if s == "bad" {
				return boom
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if got := Failed(results); got != 1 {
			t.Errorf("expected 1 failure, got %d", got)
		}
		if !errors.Is(results[1].Err, boom) {
			t.Errorf("expected boom for second job, got %v", results[1].Err)
		}
	})

	t.Run("caps concurrency", func(t *testing.T) {
		var running, peak atomic.Int32
		jobs := make([]int, 20)
		_, err := Run(context.Background(), jobs, Opts{Workers: 50}, func(context.Context, int) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return nil
		})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if peak.Load() > MaxWorkers {
			t.Errorf("expected at most %d concurrent jobs, saw %d", MaxWorkers, peak.Load())
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		results, err := Run(context.Background(), nil, Opts{}, func(context.Context, int) error {
			t.Fatal("fn should not be called")
			return nil
		})
		if err != nil || len(results) != 0 {
			t.Errorf("expected no results and no error, got %v, %v", results, err)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var calls atomic.Int32
		jobs := make([]int, 100)
		results, err := Run(ctx, jobs, Opts{Workers: 1}, func(context.Context, int) error {
			if calls.Add(1) == 3 {
				cancel()
			}
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(results) >= len(jobs) {
			t.Errorf("expected a partial batch, got %d results", len(results))
		}
	})
}

func TestProgress(t *testing.T) {
	t.Run("reports every job", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 10)
		opts := Opts{
			Phase:    Download,
			Progress: progress,
			Label:    func(job any) string { return fmt.Sprintf("photo-%v", job) },
		}
		_, err := Run(context.Background(), []int{1, 2, 3}, opts, func(_ context.Context, n int) error {
			if n == 2 {
				return errors.New("nope")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		close(progress)

		var updates []ProgressUpdate
		for u := range progress {
			updates = append(updates, u)
		}
		if len(updates) != 3 {
			t.Fatalf("expected 3 updates, got %d", len(updates))
		}

		failures := 0
		for _, u := range updates {
			if u.Phase != Download || u.Total != 3 {
				t.Errorf("unexpected update %+v", u)
			}
			if u.Err != nil {
				failures++
				if !strings.Contains(u.Message, "photo-2 failed") {
					t.Errorf("expected failure message for photo-2, got %q", u.Message)
				}
			}
		}
		if failures != 1 {
			t.Errorf("expected 1 failed update, got %d", failures)
		}
		if !updates[2].Done() {
			t.Errorf("expected last update to finish the batch")
		}
	})

	t.Run("never blocks on a full channel", func(t *testing.T) {
		progress := make(chan ProgressUpdate)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = Run(context.Background(), []int{1, 2}, Opts{Progress: progress}, func(context.Context, int) error { return nil })
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run blocked on an unread progress channel")
		}
	})
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{Download, "download"},
		{Remove, "remove"},
		{Export, "export"},
		{Phase(99), ""},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
