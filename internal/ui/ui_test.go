package ui

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hypecast/internal/chart"
	"hypecast/internal/hypem"
	"hypecast/internal/media"
)

func TestTraceResolved(t *testing.T) {
	u, _ := url.Parse("http://soundcloud.com/artist/track")
	tr := hypem.Trace{Input: "2c87x", ID: "2c87x", URL: u, Path: media.PathRedirect}
	tr.Redirect.Outcome = hypem.Found
	tr.Redirect.Value = u

	out := Trace(tr, false)
	if strings.Contains(out, "\n") {
		t.Errorf("non-verbose output should be one line: %q", out)
	}
	if !strings.Contains(out, "2c87x") || !strings.Contains(out, u.String()) {
		t.Errorf("Trace() = %q", out)
	}

	verbose := Trace(tr, true)
	for _, want := range []string{"redirect", "found", "key", "skipped", "serve", "path", "elapsed"} {
		if !strings.Contains(verbose, want) {
			t.Errorf("verbose output missing %q:\n%s", want, verbose)
		}
	}
	if lines := strings.Split(verbose, "\n"); len(lines) != 6 {
		t.Errorf("verbose output has %d lines, want 6:\n%s", len(lines), verbose)
	}
}

func TestTraceAbsent(t *testing.T) {
	out := Trace(hypem.Trace{ID: "zz999"}, false)
	if !strings.Contains(out, "zz999") || !strings.Contains(out, absent) {
		t.Errorf("Trace() = %q", out)
	}
}

func TestChart(t *testing.T) {
	c := &chart.Chart{
		ID:        3,
		CreatedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Songs: map[int]media.Song{
			2: {ID: "zz999"},
			1: {ID: "2c87x", Artist: "Artist", Title: "Track"},
		},
	}

	out := Chart(c, nil)
	first := strings.Index(out, "Artist - Track")
	second := strings.Index(out, "zz999")
	if first < 0 || second < 0 || first > second {
		t.Errorf("songs missing or out of order:\n%s", out)
	}
	if !strings.Contains(out, "[2c87x]") {
		t.Errorf("named song should show its id:\n%s", out)
	}

	resolved := Chart(c, map[int]string{1: "http://soundcloud.com/a/b"})
	if !strings.Contains(resolved, "http://soundcloud.com/a/b") || !strings.Contains(resolved, absent) {
		t.Errorf("resolved chart:\n%s", resolved)
	}
}

func TestChartList(t *testing.T) {
	if out := ChartList(nil); !strings.Contains(out, "No charts") {
		t.Errorf("ChartList(nil) = %q", out)
	}

	out := ChartList([]chart.Summary{{ID: 2, Songs: 5}, {ID: 1, Songs: 1}})
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "#2") || !strings.Contains(lines[0], "5 songs") {
		t.Errorf("ChartList() = %q", out)
	}
}

func TestSpinnerModel(t *testing.T) {
	m := newSpinnerModel("Resolving 2c87x")
	if !strings.Contains(m.View(), "Resolving 2c87x") {
		t.Errorf("View() = %q", m.View())
	}

	next, cmd := m.Update(doneMsg{})
	if cmd == nil {
		t.Error("done should quit the program")
	}
	if v := next.View(); v != "" {
		t.Errorf("View() after done = %q, want empty", v)
	}
}

func TestWithSpinnerWithoutTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ran := false
	if err := WithSpinner(context.Background(), f, "working", func(context.Context) { ran = true }); err != nil {
		t.Fatalf("WithSpinner() error: %v", err)
	}
	if !ran {
		t.Error("fn did not run")
	}
	if info, _ := f.Stat(); info.Size() != 0 {
		t.Error("spinner drew to a non-terminal")
	}
}

func TestIsTerminalNil(t *testing.T) {
	if IsTerminal(nil) {
		t.Error("IsTerminal(nil) should be false")
	}
}

func TestNumbered(t *testing.T) {
	got := numbered([]string{"a", "b\nc"})
	if got != "0\ta\n1\tb c\n" {
		t.Errorf("numbered() = %q", got)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		out     string
		want    int
		wantErr error
	}{
		{"1\tsecond\n", 1, nil},
		{"0\tfirst", 0, nil},
		{"", -1, ErrCancelled},
		{"5\tout of range", -1, nil},
		{"x\tbad", -1, nil},
	}
	for _, tt := range tests {
		idx, err := parseSelection(tt.out, 2)
		if idx != tt.want {
			t.Errorf("parseSelection(%q) = %d, want %d", tt.out, idx, tt.want)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("parseSelection(%q) error = %v, want %v", tt.out, err, tt.wantErr)
		}
		if tt.want < 0 && err == nil {
			t.Errorf("parseSelection(%q) should fail", tt.out)
		}
	}
}

func TestSelectEmpty(t *testing.T) {
	if _, err := Select("pick", nil); err == nil {
		t.Error("Select with no items should fail")
	}
}
