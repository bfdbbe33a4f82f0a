// Package media defines shared types for the hypecast application.
package media

import "time"

// Path records which branch of the pipeline produced a hosting URL.
type Path int

const (
	PathNone Path = iota
	PathRedirect
	PathServe
)

func (p Path) String() string {
	switch p {
	case PathRedirect:
		return "redirect"
	case PathServe:
		return "serve"
	default:
		return "none"
	}
}

// ParsePath is the inverse of Path.String. Unknown names map to PathNone.
func ParsePath(s string) Path {
	switch s {
	case "redirect":
		return PathRedirect
	case "serve":
		return PathServe
	default:
		return PathNone
	}
}

// Song is a track on the aggregation site.
type Song struct {
	ID     string // Site track identifier, e.g. "2c87x"
	Artist string
	Title  string
}

// DisplayName returns "Artist - Title", falling back to the ID.
func (s Song) DisplayName() string {
	switch {
	case s.Artist != "" && s.Title != "":
		return s.Artist + " - " + s.Title
	case s.Title != "":
		return s.Title
	default:
		return s.ID
	}
}

// Resolution is one completed lookup, as recorded in the history log.
type Resolution struct {
	ID    string    // Track identifier
	Input string    // What the user supplied (URL or ID)
	Path  Path      // Branch that produced URL
	URL   string    // Hosting URL, empty when unresolved
	At    time.Time // When the lookup finished
}

// Resolved reports whether a hosting URL was found.
func (r Resolution) Resolved() bool {
	return r.URL != ""
}
