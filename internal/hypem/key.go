package hypem

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"hypecast/internal/config"
	"hypecast/internal/extract"
	"hypecast/internal/httputil"
)

var (
	errNoDataBlock = errors.New("embedded data block not found")
	errInvalidJSON = errors.New("embedded data block is not valid JSON")
	errNoKey       = errors.New("tracks[0].key missing")
)

// KeyExtractor scrapes the single-use access key from a track detail page.
type KeyExtractor struct {
	client  *httputil.Client
	base    string
	cred    *config.Credential
	scraper extract.EmbeddedJSON
}

// NewKeyExtractor creates a KeyExtractor for the detail pages under base.
func NewKeyExtractor(client *httputil.Client, base string, cred *config.Credential, scraper extract.EmbeddedJSON) *KeyExtractor {
	return &KeyExtractor{client: client, base: base, cred: cred, scraper: scraper}
}

// Key fetches <base>/<id> with the session cookie and returns the first
// track's key from the embedded JSON block.
func (k *KeyExtractor) Key(ctx context.Context, id string) Step[string] {
	resp, err := k.client.Get(ctx, httputil.BuildURL(k.base, id), map[string]string{
		"Cookie": k.cred.Cookie(),
	})
	if err != nil {
		return failed[string](TransportFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		httputil.Discard(resp)
		return failed[string](NotFound, fmt.Errorf("track page returned 404"))
	case resp.StatusCode != http.StatusOK:
		httputil.Discard(resp)
		return failed[string](BadStatus, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return failed[string](TransportFailed, err)
	}
	return ParseKey(k.scraper, string(body))
}

// ParseKey extracts tracks[0].key from the embedded JSON block of html.
func ParseKey(scraper extract.EmbeddedJSON, html string) Step[string] {
	fragment, ok := scraper.Extract(html)
	if !ok {
		return failed[string](ParseFailed, errNoDataBlock)
	}
	if !gjson.Valid(fragment) {
		return failed[string](ParseFailed, errInvalidJSON)
	}

	key := gjson.Get(fragment, "tracks.0.key")
	if key.Type != gjson.String && key.Type != gjson.Number {
		return failed[string](ParseFailed, errNoKey)
	}
	v := strings.TrimSpace(key.String())
	if v == "" {
		return failed[string](ParseFailed, errNoKey)
	}
	return found(v)
}
