package config

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// Credential holds the session cookie sent on authenticated requests.
// Readers never block; Reload swaps the value atomically.
type Credential struct {
	file  string
	value atomic.Pointer[string]
}

// NewCredential builds a Credential from the auth section. An inline cookie
// takes precedence; otherwise the cookie file is read.
func NewCredential(auth AuthConfig) (*Credential, error) {
	c := &Credential{}
	if v := strings.TrimSpace(auth.Cookie); v != "" {
		c.value.Store(&v)
		return c, nil
	}
	if auth.CookieFile == "" {
		empty := ""
		c.value.Store(&empty)
		return c, nil
	}
	path, err := expandHome(auth.CookieFile)
	if err != nil {
		return nil, err
	}
	c.file = path
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// StaticCredential returns a Credential fixed to cookie.
func StaticCredential(cookie string) *Credential {
	c := &Credential{}
	c.value.Store(&cookie)
	return c
}

// Cookie returns the current Cookie header value.
func (c *Credential) Cookie() string {
	if c == nil {
		return ""
	}
	if v := c.value.Load(); v != nil {
		return *v
	}
	return ""
}

// Require returns ErrNoCredential when no cookie is set.
func (c *Credential) Require() error {
	if c.Cookie() == "" {
		return ErrNoCredential
	}
	return nil
}

// Reload re-reads the cookie file. It is a no-op for inline cookies.
func (c *Credential) Reload() error {
	if c.file == "" {
		return nil
	}
	data, err := os.ReadFile(c.file)
	if err != nil {
		return fmt.Errorf("reading cookie file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	c.value.Store(&v)
	return nil
}
