package extract

import "strings"

// Markers returns the text between the first Start marker and the next End
// marker after it.
type Markers struct {
	Start string
	End   string
}

// Extract implements EmbeddedJSON.
func (m Markers) Extract(html string) (string, bool) {
	if m.Start == "" || m.End == "" {
		return "", false
	}
	_, rest, found := strings.Cut(html, m.Start)
	if !found {
		return "", false
	}
	fragment, _, found := strings.Cut(rest, m.End)
	if !found {
		return "", false
	}
	fragment = strings.TrimSpace(fragment)
	// The block is normally closed before the next script opens.
	fragment = strings.TrimSpace(strings.TrimSuffix(fragment, "</script>"))
	if fragment == "" {
		return "", false
	}
	return fragment, true
}
