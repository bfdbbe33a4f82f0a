// Package hypem resolves a playable hosting URL for a track on the Hype
// Machine aggregation site.
//
// The cheap path asks the unauthenticated redirect endpoint where a track is
// hosted and accepts the answer if it points at the preferred host. Otherwise
// the fallback scrapes a single-use access key from the track page and trades
// it for the hosting URL at the serve endpoint. Each step runs at most once per
// call and no state is kept between calls.
package hypem

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"hypecast/internal/config"
	"hypecast/internal/extract"
	"hypecast/internal/httputil"
	"hypecast/internal/media"
)

// Step names used in logs and metrics.
const (
	StepRedirect = "redirect"
	StepKey      = "key"
	StepServe    = "serve"
)

// Redirector returns the location the redirect endpoint points to.
type Redirector interface {
	Resolve(ctx context.Context, id string) Step[*url.URL]
}

// KeySource returns an access key for a track.
type KeySource interface {
	Key(ctx context.Context, id string) Step[string]
}

// Server trades an access key for the hosting URL.
type Server interface {
	Serve(ctx context.Context, id, key string) Step[*url.URL]
}

// Resolver sequences the pipeline. It is safe for concurrent use.
type Resolver struct {
	ids        IDExtractor
	redirect   Redirector
	keys       KeySource
	serve      Server
	classifier HostClassifier
	logger     *zap.Logger
	metrics    *Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for step failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithIDExtractor sets how track URLs are recognised by TraceInput.
func WithIDExtractor(e IDExtractor) Option {
	return func(r *Resolver) { r.ids = e }
}

// New assembles a Resolver from its collaborators.
func New(redirect Redirector, keys KeySource, serve Server, classifier HostClassifier, opts ...Option) *Resolver {
	r := &Resolver{
		ids:        NewIDExtractor(DefaultTrackURL),
		redirect:   redirect,
		keys:       keys,
		serve:      serve,
		classifier: classifier,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromConfig wires the HTTP-backed collaborators described by cfg.
func NewFromConfig(cfg *config.Config, client *httputil.Client, cred *config.Credential, opts ...Option) (*Resolver, error) {
	scraper, err := extract.New(cfg.Scrape.Strategy)
	if err != nil {
		return nil, err
	}
	h := cfg.Hypem
	opts = append([]Option{WithIDExtractor(NewIDExtractor(h.TrackURL))}, opts...)
	return New(
		NewRedirectResolver(client, h.GoURL),
		NewKeyExtractor(client, h.TrackURL, cred, scraper),
		NewServeResolver(client, h.ServeURL, cred),
		HostClassifier{Host: h.PreferredHost, NotFoundPath: h.NotFoundPath},
		opts...,
	), nil
}

// Trace is the full account of one resolution.
type Trace struct {
	Input    string
	ID       string
	URL      *url.URL
	Path     media.Path
	Redirect Step[*url.URL]
	Key      Step[string]
	Serve    Step[*url.URL]
	Elapsed  time.Duration
}

// Resolve returns the hosting URL for id, or nil when none can be determined.
// It never fails for business reasons.
func (r *Resolver) Resolve(ctx context.Context, id string) *url.URL {
	return r.Trace(ctx, id).URL
}

// TraceInput accepts a track URL or a bare identifier.
func (r *Resolver) TraceInput(ctx context.Context, input string) Trace {
	id := r.ids.Normalize(input)
	t := r.Trace(ctx, id)
	t.Input = input
	return t
}

// Trace runs the pipeline for id and reports every step's outcome.
func (r *Resolver) Trace(ctx context.Context, id string) (t Trace) {
	start := time.Now()
	t = Trace{Input: id, ID: strings.TrimSpace(id)}
	defer func() {
		t.Elapsed = time.Since(start)
		r.metrics.resolution(t.Path, t.Elapsed)
	}()

	if t.ID == "" {
		return t
	}
	if err := httputil.ValidateID(t.ID); err != nil {
		r.logger.Debug("rejecting identifier", zap.String("id", t.ID), zap.Error(err))
		t.ID = ""
		return t
	}

	log := r.logger.With(zap.String("id", t.ID))

	t.Redirect = r.redirect.Resolve(ctx, t.ID)
	r.record(log, StepRedirect, t.Redirect.Outcome, t.Redirect.Err)
	if t.Redirect.OK() && r.classifier.Preferred(t.Redirect.Value) {
		t.URL, t.Path = t.Redirect.Value, media.PathRedirect
		return t
	}
	if t.Redirect.OK() {
		log.Debug("redirect not on preferred host, falling back", zap.Stringer("location", t.Redirect.Value))
	}

	t.Key = r.keys.Key(ctx, t.ID)
	r.record(log, StepKey, t.Key.Outcome, t.Key.Err)
	if !t.Key.OK() || strings.TrimSpace(t.Key.Value) == "" {
		return t
	}

	t.Serve = r.serve.Serve(ctx, t.ID, t.Key.Value)
	r.record(log, StepServe, t.Serve.Outcome, t.Serve.Err)
	if t.Serve.OK() && t.Serve.Value != nil {
		t.URL, t.Path = t.Serve.Value, media.PathServe
	}
	return t
}

// record logs and counts one step. Scrape failures are warnings so operators
// notice upstream format drift; a failed redirect only matters if the
// fallback also fails.
func (r *Resolver) record(log *zap.Logger, step string, o Outcome, err error) {
	r.metrics.step(step, o)

	fields := []zap.Field{zap.String("step", step), zap.Stringer("outcome", o)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	switch {
	case o == Found:
		log.Debug("step succeeded", fields...)
	case o == ParseFailed:
		log.Warn("scrape failed", fields...)
	case o == TransportFailed && step != StepRedirect:
		log.Warn("request failed", fields...)
	default:
		log.Debug("step yielded nothing", fields...)
	}
}

// Resolution converts a trace into a history record.
func (t Trace) Resolution(at time.Time) media.Resolution {
	res := media.Resolution{ID: t.ID, Input: t.Input, Path: t.Path, At: at}
	if t.URL != nil {
		res.URL = t.URL.String()
	}
	return res
}

// String summarises the trace on one line.
func (t Trace) String() string {
	loc := "absent"
	if t.URL != nil {
		loc = t.URL.String()
	}
	return fmt.Sprintf("%s -> %s (redirect=%s key=%s serve=%s)",
		t.ID, loc, t.Redirect.Outcome, t.Key.Outcome, t.Serve.Outcome)
}

type traceSteps struct {
	Redirect Outcome `json:"redirect"`
	Key      Outcome `json:"key"`
	Serve    Outcome `json:"serve"`
}

// MarshalJSON renders the trace without the access key.
func (t Trace) MarshalJSON() ([]byte, error) {
	out := struct {
		Input     string     `json:"input"`
		ID        string     `json:"id"`
		URL       string     `json:"url,omitempty"`
		Path      string     `json:"path"`
		Location  string     `json:"redirect_location,omitempty"`
		Steps     traceSteps `json:"steps"`
		ElapsedMS int64      `json:"elapsed_ms"`
	}{
		Input:     t.Input,
		ID:        t.ID,
		Path:      t.Path.String(),
		Steps:     traceSteps{t.Redirect.Outcome, t.Key.Outcome, t.Serve.Outcome},
		ElapsedMS: t.Elapsed.Milliseconds(),
	}
	if t.URL != nil {
		out.URL = t.URL.String()
	}
	if t.Redirect.Value != nil {
		out.Location = t.Redirect.Value.String()
	}
	return json.Marshal(out)
}
