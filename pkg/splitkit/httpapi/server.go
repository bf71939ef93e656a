// Package httpapi exposes the splitkit core over HTTP.
//
// The surface is deliberately thin: every handler is a direct
// composition of core calls, and all transport concerns (timeouts,
// TLS, auth for the results endpoints) belong to whatever wraps the
// returned handler.
//
// Routes:
//
//	POST /track                  ingest a tracking event
//	GET  /results                aggregated results for all experiments
//	GET  /results/{experiment}   aggregated results for one experiment
//	GET  /experiments            configured experiment listing
//	GET  /assign?target=/path    per-request assignment decisions
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/splitkit/splitkit/pkg/splitkit"
	"github.com/splitkit/splitkit/pkg/splitkit/aggregate"
	"github.com/splitkit/splitkit/pkg/splitkit/eventstore"
	"github.com/splitkit/splitkit/pkg/splitkit/observability"
)

// DefaultCookieName is the visitor identity cookie.
const DefaultCookieName = "ab-uid"

// Server wires the resolver and event store into HTTP handlers.
type Server struct {
	resolver   *splitkit.Resolver
	store      eventstore.Store
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	cookieName string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracing attaches a span manager.
func WithTracing(sm observability.SpanManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.spans = sm
		}
	}
}

// WithCookieName overrides the identity cookie name.
func WithCookieName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.cookieName = name
		}
	}
}

// NewServer creates an HTTP server over a resolver and an event store.
func NewServer(resolver *splitkit.Resolver, store eventstore.Store, opts ...Option) *Server {
	s := &Server{
		resolver:   resolver,
		store:      store,
		metrics:    observability.NoopMetrics{},
		spans:      observability.NoopSpanManager{},
		cookieName: DefaultCookieName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /track", s.handleTrack)
	mux.HandleFunc("GET /results", s.handleAllResults)
	mux.HandleFunc("GET /results/{experiment}", s.handleResults)
	mux.HandleFunc("GET /experiments", s.handleExperiments)
	mux.HandleFunc("GET /assign", s.handleAssign)
	return mux
}

// trackRequest is the POST /track payload, shaped for sendBeacon-style
// fire-and-forget clients.
type trackRequest struct {
	ExperimentID string `json:"experiment_id"`
	VariantIndex int    `json:"variant_index"`
	Kind         string `json:"kind"`
	Name         string `json:"name,omitempty"`
	Target       string `json:"target,omitempty"`
	Identity     string `json:"identity,omitempty"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	ctx, span := s.spans.StartTrackSpan(r.Context(), req.ExperimentID, req.Kind)

	evt := eventstore.Event{
		ExperimentID: req.ExperimentID,
		VariantIndex: req.VariantIndex,
		Kind:         eventstore.Kind(req.Kind),
		Name:         req.Name,
		Target:       req.Target,
		Identity:     req.Identity,
		UserAgent:    r.UserAgent(),
		Referer:      r.Referer(),
	}

	err := s.store.Append(ctx, evt)
	s.spans.EndSpanWithError(span, err)
	if err != nil {
		var verr *eventstore.ValidationError
		if errors.As(err, &verr) {
			s.metrics.RecordTrack(ctx, req.Kind, false)
			observability.LogTrackRejected(s.logger, req.ExperimentID, err)
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		// A storage fault must not surface to the visitor path beyond
		// a 5xx on this beacon; tracking is best-effort by contract.
		writeError(w, http.StatusInternalServerError, "event not stored")
		return
	}

	s.metrics.RecordTrack(ctx, req.Kind, true)
	observability.LogTrackStored(s.logger, req.ExperimentID, req.Kind, req.VariantIndex)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAllResults(w http.ResponseWriter, r *http.Request) {
	summary, err := s.aggregateFor(r.Context(), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("experiment")
	summary, err := s.aggregateFor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	// An unknown experiment is "no data yet", a normal state: report
	// empty variants rather than an error.
	variants := summary.Experiments[id]
	if variants == nil {
		variants = []aggregate.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"experiment_id": id,
		"variants":      variants,
	})
}

// aggregateFor queries the log and rolls it up, using the registry's
// variant labels so zero-traffic variants still report.
func (s *Server) aggregateFor(ctx context.Context, experimentID string) (aggregate.Summary, error) {
	done := observability.TimedOperation()

	events, err := s.store.Query(ctx, experimentID)
	if err != nil {
		return aggregate.Summary{}, err
	}

	labels := s.resolver.Registry().VariantLabels()
	if experimentID != "" {
		if l, ok := labels[experimentID]; ok {
			labels = map[string][]string{experimentID: l}
		} else {
			labels = nil
		}
	}

	summary := aggregate.Aggregate(events, aggregate.WithLabels(labels))

	ms := done()
	s.metrics.RecordAggregation(ctx, time.Duration(ms)*time.Millisecond, len(events))
	observability.LogAggregation(s.logger, len(events), summary.Skipped, ms)
	return summary, nil
}

// experimentInfo is the GET /experiments row.
type experimentInfo struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Match    string   `json:"match"`
	Active   bool     `json:"active"`
	Variants []string `json:"variants"`
}

func (s *Server) handleExperiments(w http.ResponseWriter, r *http.Request) {
	experiments := s.resolver.Registry().Experiments()
	out := make([]experimentInfo, 0, len(experiments))
	configured := make(map[string]bool, len(experiments))
	for _, e := range experiments {
		configured[e.ID] = true
		out = append(out, experimentInfo{
			ID:       e.ID,
			Kind:     string(e.Kind),
			Match:    e.Match,
			Active:   e.Active,
			Variants: e.VariantLabels(),
		})
	}

	// Experiments removed from configuration keep their event history.
	// List them too, inactive and unconfigured, so their results stay
	// reachable from the dashboard.
	ids, err := s.store.ExperimentIDs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	for _, id := range ids {
		if !configured[id] {
			out = append(out, experimentInfo{ID: id, Variants: []string{}})
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// assignDecision is the GET /assign row.
type assignDecision struct {
	ExperimentID string            `json:"experiment_id"`
	Kind         string            `json:"kind"`
	Variant      int               `json:"variant"`
	Label        string            `json:"label"`
	RedirectURL  string            `json:"redirect_url,omitempty"`
	Value        string            `json:"value,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeError(w, http.StatusBadRequest, "target query parameter is required")
		return
	}

	// The response cookie jar is the identity persistence collaborator
	// here: a missing ab-uid cookie gets a fresh token with a one-year
	// expiry, scoped to the whole site.
	identity, _ := s.resolver.Identity(r.Context(), cookieStore{r: r, w: w}, s.cookieName)

	decisions := s.resolver.Resolve(r.Context(), target, identity)
	out := make([]assignDecision, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, assignDecision{
			ExperimentID: d.ExperimentID,
			Kind:         string(d.Kind),
			Variant:      d.VariantIndex,
			Label:        d.VariantLabel,
			RedirectURL:  d.RedirectURL,
			Value:        d.Value,
			Fields:       d.Overrides,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity":  identity,
		"decisions": out,
	})
}

// cookieStore adapts a request/response pair to splitkit.IdentityStore.
type cookieStore struct {
	r *http.Request
	w http.ResponseWriter
}

// Get implements splitkit.IdentityStore.
func (c cookieStore) Get(_ context.Context, key string) (string, error) {
	ck, err := c.r.Cookie(key)
	if err != nil || ck.Value == "" {
		return "", splitkit.ErrIdentityNotFound
	}
	return ck.Value, nil
}

// Set implements splitkit.IdentityStore.
func (c cookieStore) Set(_ context.Context, key, token string, ttl time.Duration) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
