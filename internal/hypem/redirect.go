package hypem

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"hypecast/internal/httputil"
)

// DefaultGoURL is the unauthenticated redirect endpoint.
const DefaultGoURL = "http://hypem.com/go/sc/"

// RedirectResolver asks the redirect endpoint where a track is hosted.
type RedirectResolver struct {
	client *httputil.Client
	base   string
}

// NewRedirectResolver creates a RedirectResolver for the endpoint at base.
func NewRedirectResolver(client *httputil.Client, base string) *RedirectResolver {
	return &RedirectResolver{client: client, base: base}
}

// Resolve issues HEAD <base>/<id> without credentials and returns the Location
// header. Relative locations are resolved against the request URL.
func (r *RedirectResolver) Resolve(ctx context.Context, id string) Step[*url.URL] {
	resp, err := r.client.Head(ctx, httputil.BuildURL(r.base, id), nil)
	if err != nil {
		return failed[*url.URL](TransportFailed, err)
	}
	httputil.Discard(resp)

	if resp.StatusCode == http.StatusNotFound {
		return failed[*url.URL](NotFound, fmt.Errorf("redirect endpoint returned 404"))
	}
	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		return failed[*url.URL](BadStatus, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	loc, err := resp.Location()
	if errors.Is(err, http.ErrNoLocation) {
		return failed[*url.URL](NotFound, err)
	}
	if err != nil {
		return failed[*url.URL](ParseFailed, fmt.Errorf("parsing location: %w", err))
	}
	if loc.Host == "" {
		return failed[*url.URL](ParseFailed, fmt.Errorf("location %q has no host", loc))
	}
	return found(loc)
}
