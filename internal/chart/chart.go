// Package chart stores snapshots of the site's popular chart: a numbered
// list of songs captured at one moment. Charts are immutable once saved.
package chart

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"hypecast/internal/media"
)

// ErrNotFound is returned when a chart id does not exist.
var ErrNotFound = errors.New("chart not found")

// Chart is a saved snapshot. Positions start at 1.
type Chart struct {
	ID        int64
	CreatedAt time.Time
	Songs     map[int]media.Song
}

// Positions returns the occupied chart positions in ascending order.
func (c *Chart) Positions() []int {
	out := make([]int, 0, len(c.Songs))
	for p := range c.Songs {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Summary describes a chart without its songs.
type Summary struct {
	ID        int64
	CreatedAt time.Time
	Songs     int
}

// ParseEntry parses "<pos>=<value>" as used on the command line.
func ParseEntry(s string) (int, string, error) {
	pos, value, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", fmt.Errorf("entry %q: expected <position>=<track>", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(pos))
	if err != nil {
		return 0, "", fmt.Errorf("entry %q: invalid position: %w", s, err)
	}
	if n < 1 {
		return 0, "", fmt.Errorf("entry %q: position must be at least 1", s)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, "", fmt.Errorf("entry %q: empty track", s)
	}
	return n, value, nil
}

func validate(songs map[int]media.Song) error {
	if len(songs) == 0 {
		return errors.New("chart has no songs")
	}
	for pos, s := range songs {
		if pos < 1 {
			return fmt.Errorf("position %d: must be at least 1", pos)
		}
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("position %d: empty track id", pos)
		}
	}
	return nil
}
