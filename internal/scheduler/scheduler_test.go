package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNew_Spec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "every descriptor", spec: "@every 30m"},
		{name: "hourly", spec: "@hourly"},
		{name: "five fields", spec: "*/15 * * * *"},
		{name: "seconds not allowed", spec: "0 */15 * * * *", wantErr: true},
		{name: "garbage", spec: "sometimes", wantErr: true},
		{name: "empty", spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestScheduler_Next(t *testing.T) {
	s, err := New("0 9 * * *", zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	from := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	want := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	if got := s.Next(from); !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}

func TestScheduler_RunImmediatelyAndStop(t *testing.T) {
	s, err := New("@every 1h", zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	var sawCancel atomic.Bool

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(jobCtx context.Context) {
			runs.Add(1)
			cancel()
			<-jobCtx.Done()
			sawCancel.Store(errors.Is(jobCtx.Err(), context.Canceled))
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
	if !sawCancel.Load() {
		t.Error("job context should be cancelled when the scheduler stops")
	}
}

func TestScheduler_RunLogsNextRun(t *testing.T) {
	var buf bytes.Buffer
	s, err := New("@every 1h", zerolog.New(&buf).Level(zerolog.InfoLevel))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Run(ctx, func(context.Context) { cancel() }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	first, _, _ := strings.Cut(buf.String(), "\n")
	if !strings.Contains(first, "Scheduler started") || !strings.Contains(first, `"next_run":`) {
		t.Errorf("start log = %s, want next_run field", first)
	}
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l := cronLogger{log: zerolog.New(&buf)}

	l.Error(errors.New("boom"), "job panicked", "entry", 1)
	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) && !strings.Contains(out, `"err":"boom"`) {
		t.Errorf("log should contain the error, got %s", out)
	}
	if !strings.Contains(out, `"entry":1`) || !strings.Contains(out, "job panicked") {
		t.Errorf("log should contain fields and message, got %s", out)
	}
}
