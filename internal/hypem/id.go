package hypem

import (
	"net/url"
	"strings"
)

// DefaultTrackURL is the prefix of track page URLs on the site.
const DefaultTrackURL = "http://hypem.com/track/"

// IDExtractor pulls track identifiers out of track page URLs.
type IDExtractor struct {
	prefixes []string
	path     string
}

// NewIDExtractor builds an extractor for track URLs starting with trackURL.
// The http and https spellings of the prefix are both accepted.
func NewIDExtractor(trackURL string) IDExtractor {
	if !strings.HasSuffix(trackURL, "/") {
		trackURL += "/"
	}
	e := IDExtractor{prefixes: []string{trackURL}, path: "/track/"}
	if u, err := url.Parse(trackURL); err == nil {
		e.path = u.Path
		switch u.Scheme {
		case "http":
			e.prefixes = append(e.prefixes, "https"+strings.TrimPrefix(trackURL, "http"))
		case "https":
			e.prefixes = append(e.prefixes, "http"+strings.TrimPrefix(trackURL, "https"))
		}
	}
	return e
}

// ExtractID returns the identifier in a track URL using the default prefix.
//
// Example: http://hypem.com/track/2c87x returns 2c87x.
func ExtractID(trackURL string) string {
	return NewIDExtractor(DefaultTrackURL).Extract(trackURL)
}

// Extract returns the identifier embedded in rawURL, or "" when rawURL is not a
// track URL. Anything after the identifier segment is ignored.
func (e IDExtractor) Extract(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if !e.hasPrefix(trimmed) {
		return ""
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	rest, ok := strings.CutPrefix(u.Path, e.path)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

// Normalize accepts either a track URL or a bare identifier and returns the
// identifier. Other URLs yield "".
func (e IDExtractor) Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if id := e.Extract(trimmed); id != "" {
		return id
	}
	if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
		return ""
	}
	return trimmed
}

func (e IDExtractor) hasPrefix(s string) bool {
	for _, p := range e.prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
