package hypem

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"hypecast/internal/config"
	"hypecast/internal/httputil"
)

// DefaultServeURL is the key-gated endpoint returning the hosting URL.
const DefaultServeURL = "http://hypem.com/serve/source/"

var (
	errServeJSON  = errors.New("serve response is not valid JSON")
	errNoURLField = errors.New(`serve response has no "url" field`)
)

// ServeResolver exchanges an access key for the final hosting URL.
type ServeResolver struct {
	client *httputil.Client
	base   string
	cred   *config.Credential
}

// NewServeResolver creates a ServeResolver for the endpoint at base.
func NewServeResolver(client *httputil.Client, base string, cred *config.Credential) *ServeResolver {
	return &ServeResolver{client: client, base: base, cred: cred}
}

// Serve fetches <base>/<id>/<key> with the session cookie and returns the
// "url" field of the JSON body. Only a 200 response is accepted.
func (s *ServeResolver) Serve(ctx context.Context, id, key string) Step[*url.URL] {
	resp, err := s.client.GetJSON(ctx, httputil.BuildURL(s.base, id, key), map[string]string{
		"Cookie":           s.cred.Cookie(),
		"X-Requested-With": "XMLHttpRequest",
	})
	if err != nil {
		return failed[*url.URL](TransportFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		httputil.Discard(resp)
		return failed[*url.URL](NotFound, fmt.Errorf("serve endpoint returned 404"))
	case resp.StatusCode != http.StatusOK:
		httputil.Discard(resp)
		return failed[*url.URL](BadStatus, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return failed[*url.URL](TransportFailed, err)
	}
	return ParseServeBody(body)
}

// ParseServeBody reads the "url" field of a serve response.
func ParseServeBody(body []byte) Step[*url.URL] {
	if !gjson.ValidBytes(body) {
		return failed[*url.URL](ParseFailed, errServeJSON)
	}
	field := gjson.GetBytes(body, "url")
	if field.Type != gjson.String {
		return failed[*url.URL](ParseFailed, errNoURLField)
	}
	raw := strings.TrimSpace(field.String())
	if err := httputil.ValidateURL(raw); err != nil {
		return failed[*url.URL](ParseFailed, fmt.Errorf("serve url %q: %w", raw, err))
	}
	u, err := url.Parse(raw)
	if err != nil {
		return failed[*url.URL](ParseFailed, err)
	}
	return found(u)
}
