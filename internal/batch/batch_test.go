package batch

import (
	"context"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"hypecast/internal/hypem"
)

type countingTracer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	delay    time.Duration
}

func (c *countingTracer) TraceInput(ctx context.Context, input string) hypem.Trace {
	c.calls.Add(1)
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}

	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
	}

	t := hypem.Trace{Input: input, ID: input}
	if input != "missing" {
		t.URL, _ = url.Parse("http://cdn.example.com/" + input + ".mp3")
	}
	return t
}

func TestRunPreservesOrder(t *testing.T) {
	tracer := &countingTracer{delay: 5 * time.Millisecond}
	inputs := []string{"a", "b", "missing", "d", "e"}

	got := Run(context.Background(), tracer, inputs, 3)

	if len(got) != len(inputs) {
		t.Fatalf("got %d traces, want %d", len(got), len(inputs))
	}
	for i, in := range inputs {
		if got[i].Input != in {
			t.Errorf("trace %d input = %q, want %q", i, got[i].Input, in)
		}
	}
	if got[2].URL != nil {
		t.Errorf("missing track resolved to %v", got[2].URL)
	}
	if got[4].URL == nil || got[4].URL.String() != "http://cdn.example.com/e.mp3" {
		t.Errorf("trace 4 URL = %v", got[4].URL)
	}
}

func TestRunRespectsLimit(t *testing.T) {
	tracer := &countingTracer{delay: 20 * time.Millisecond}
	inputs := make([]string, 10)
	for i := range inputs {
		inputs[i] = string(rune('a' + i))
	}

	Run(context.Background(), tracer, inputs, 2)

	if peak := tracer.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
	if calls := tracer.calls.Load(); calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
}

func TestRunZeroLimitIsSequential(t *testing.T) {
	tracer := &countingTracer{delay: time.Millisecond}
	Run(context.Background(), tracer, []string{"a", "b", "c"}, 0)

	if peak := tracer.peak.Load(); peak != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak)
	}
}

func TestRunCancelled(t *testing.T) {
	tracer := &countingTracer{delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := Run(ctx, tracer, []string{"a", "b"}, 1)

	if tracer.calls.Load() != 0 {
		t.Errorf("calls = %d after cancel, want 0", tracer.calls.Load())
	}
	for i, tr := range got {
		if tr.URL != nil {
			t.Errorf("trace %d resolved after cancel", i)
		}
	}
}

func TestRunEmpty(t *testing.T) {
	if got := Run(context.Background(), &countingTracer{}, nil, 4); len(got) != 0 {
		t.Errorf("got %d traces for no inputs", len(got))
	}
}
