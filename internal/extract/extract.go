// Package extract pulls the embedded JSON data block out of a track detail
// page. The page format belongs to a third party and drifts, so the strategy
// is swappable behind a single narrow interface.
package extract

import (
	"fmt"
	"strings"
)

// Script block boundaries on the track detail page.
const (
	StartMarker = `<script type="application/json" id="displayList-data">`
	EndMarker   = `<script type="text/javascript">`

	// DataScriptID is the id attribute of the embedded JSON script element.
	DataScriptID = "displayList-data"
)

// EmbeddedJSON extracts the raw JSON fragment from a page. ok is false when the
// block cannot be located or is empty.
type EmbeddedJSON interface {
	Extract(html string) (fragment string, ok bool)
}

// New returns the extractor for a configured strategy name.
func New(strategy string) (EmbeddedJSON, error) {
	switch strings.ToLower(strategy) {
	case "", "markers":
		return Markers{Start: StartMarker, End: EndMarker}, nil
	case "dom":
		return DOM{ScriptID: DataScriptID}, nil
	default:
		return nil, fmt.Errorf("unknown scrape strategy %q", strategy)
	}
}
