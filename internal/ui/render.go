// Package ui renders resolver output for the terminal and hosts the
// interactive helpers (spinner, fzf picker) used by the CLI.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"hypecast/internal/chart"
	"hypecast/internal/hypem"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	missStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle  = lipgloss.NewStyle().Width(10)
	posStyle    = lipgloss.NewStyle().Width(4).Align(lipgloss.Right)
)

const absent = "(absent)"

// Trace renders one resolution. The URL line is always first; verbose adds
// one line per pipeline step.
func Trace(t hypem.Trace, verbose bool) string {
	var b strings.Builder

	name := t.Input
	if name == "" {
		name = t.ID
	}
	if t.URL != nil {
		fmt.Fprintf(&b, "%s %s", headerStyle.Render(name), okStyle.Render(t.URL.String()))
	} else {
		fmt.Fprintf(&b, "%s %s", headerStyle.Render(name), missStyle.Render(absent))
	}

	if !verbose {
		return b.String()
	}

	loc := ""
	if t.Redirect.Value != nil {
		loc = t.Redirect.Value.String()
	}
	steps := []struct {
		name    string
		outcome hypem.Outcome
		detail  string
	}{
		{hypem.StepRedirect, t.Redirect.Outcome, loc},
		{hypem.StepKey, t.Key.Outcome, ""},
		{hypem.StepServe, t.Serve.Outcome, ""},
	}
	for _, s := range steps {
		line := labelStyle.Render(s.name) + outcomeStyle(s.outcome).Render(s.outcome.String())
		if s.detail != "" {
			line += " " + dimStyle.Render(s.detail)
		}
		b.WriteString("\n  " + line)
	}
	fmt.Fprintf(&b, "\n  %s%s", labelStyle.Render("path"), t.Path)
	fmt.Fprintf(&b, "\n  %s%s", labelStyle.Render("elapsed"), t.Elapsed.Round(time.Millisecond))
	return b.String()
}

func outcomeStyle(o hypem.Outcome) lipgloss.Style {
	switch o {
	case hypem.Found:
		return okStyle
	case hypem.Skipped:
		return dimStyle
	default:
		return missStyle
	}
}

// Chart renders a chart in position order. urls, when non-nil, maps positions
// to resolved hosting URLs.
func Chart(c *chart.Chart, urls map[int]string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Chart #%d  %s", c.ID, c.CreatedAt.Local().Format("2006-01-02 15:04"))))

	for _, pos := range c.Positions() {
		song := c.Songs[pos]
		line := posStyle.Render(fmt.Sprintf("%d.", pos)) + " " + song.DisplayName()
		if song.DisplayName() != song.ID {
			line += " " + dimStyle.Render("["+song.ID+"]")
		}
		if urls != nil {
			if u := urls[pos]; u != "" {
				line += "\n      " + okStyle.Render(u)
			} else {
				line += "\n      " + missStyle.Render(absent)
			}
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

// ChartList renders chart summaries one per line.
func ChartList(list []chart.Summary) string {
	if len(list) == 0 {
		return dimStyle.Render("No charts saved.")
	}
	lines := make([]string, 0, len(list))
	for _, s := range list {
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			posStyle.Render(fmt.Sprintf("#%d", s.ID)),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			dimStyle.Render(fmt.Sprintf("%d songs", s.Songs))))
	}
	return strings.Join(lines, "\n")
}
