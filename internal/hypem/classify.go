package hypem

import "net/url"

// Defaults for HostClassifier.
const (
	DefaultPreferredHost = "soundcloud.com"
	DefaultNotFoundPath  = "/not/found"
)

// HostClassifier decides whether a resolved location is directly usable.
type HostClassifier struct {
	Host         string
	NotFoundPath string
}

// Preferred reports whether u is on the preferred host and is not the
// upstream not-found placeholder. A nil location is never preferred.
func (c HostClassifier) Preferred(u *url.URL) bool {
	if u == nil {
		return false
	}
	if u.Hostname() != c.Host {
		return false
	}
	return c.NotFoundPath == "" || u.Path != c.NotFoundPath
}
