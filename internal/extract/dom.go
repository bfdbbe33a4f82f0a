package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOM parses the page and reads the script element with ScriptID.
// It tolerates attribute reordering and whitespace changes that break Markers.
type DOM struct {
	ScriptID string
}

// Extract implements EmbeddedJSON.
func (d DOM) Extract(html string) (string, bool) {
	if d.ScriptID == "" {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var fragment string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if id, _ := s.Attr("id"); id != d.ScriptID {
			return true
		}
		fragment = strings.TrimSpace(s.Text())
		return false
	})

	if fragment == "" {
		return "", false
	}
	return fragment, true
}
