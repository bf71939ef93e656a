package splitkit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/splitkit/splitkit/pkg/splitkit/observability"
)

// Decision is the variant chosen for one experiment on one request.
// Decisions are derived, never stored: the same identity and
// experiment always recompute to the same decision, so there is no
// cache to invalidate.
type Decision struct {
	// ExperimentID is the experiment this decision belongs to.
	ExperimentID string
	// Kind is the experiment kind the decision was computed for.
	Kind Kind
	// Identity is the visitor token the decision was computed from.
	Identity string
	// VariantIndex is the chosen variant, 0 = control.
	VariantIndex int
	// VariantLabel is the reporting label for the chosen variant.
	VariantLabel string
	// RedirectURL is the rewrite destination. Redirect experiments only.
	RedirectURL string
	// Value is the variant value for rendering. Content experiments only.
	Value string
	// Overrides are the content field overrides for the chosen variant.
	// Content experiments only; empty for control.
	Overrides map[string]string
}

// Apply merges the decision's content overrides over base content.
// Base fields are kept wherever the override is missing or empty, so a
// variant only has to specify the fields it changes. The input map is
// not modified.
func (d Decision) Apply(base map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(d.Overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range d.Overrides {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Resolver is the request-time decision point: it combines the
// registry, the assigner, and the identity collaborator into a single
// call per request. Safe for concurrent use.
type Resolver struct {
	registry *Registry
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger attaches a structured logger. A nil logger disables
// resolver logging.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m observability.MetricsRecorder) ResolverOption {
	return func(r *Resolver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithTracing attaches a span manager for per-request trace spans.
func WithTracing(s observability.SpanManager) ResolverOption {
	return func(r *Resolver) {
		if s != nil {
			r.spans = s
		}
	}
}

// NewResolver creates a resolver over a registry. Metrics and tracing
// default to no-ops; logging defaults to off.
func NewResolver(registry *Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry: registry,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the resolver's experiment registry.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Identity resolves the visitor token for a session key through the
// identity collaborator. A missing token is created and persisted with
// IdentityTTL.
//
// Degradation, never a crash: if the store is nil or fails, the call
// returns a fresh throwaway token valid for this call only, and the
// degradation is logged. Assignment still resolves to a valid variant;
// only stickiness is lost until the store recovers.
func (r *Resolver) Identity(ctx context.Context, store IdentityStore, key string) (token string, isNew bool) {
	if store == nil {
		return NewToken(), true
	}

	token, err := store.Get(ctx, key)
	switch {
	case err == nil:
		return token, false
	case errors.Is(err, ErrIdentityNotFound):
		token = NewToken()
		if err := store.Set(ctx, key, token, IdentityTTL); err != nil {
			// Persist failure costs stickiness, not correctness.
			observability.LogIdentityDegraded(r.logger, key, err)
		}
		return token, true
	default:
		observability.LogIdentityDegraded(r.logger, key, err)
		return NewToken(), true
	}
}

// Resolve computes one decision per experiment applicable to the
// target. An empty identity is treated as a fresh visitor for this
// call only.
//
// Resolve never fails: a target with no applicable experiments yields
// an empty slice, and every returned decision carries a valid variant
// index.
func (r *Resolver) Resolve(ctx context.Context, target, identity string) []Decision {
	ctx, span := r.spans.StartResolveSpan(ctx, target)
	defer r.spans.EndSpanWithError(span, nil)

	if identity == "" {
		identity = NewToken()
		observability.LogFreshIdentity(r.logger, target)
	}

	experiments := r.registry.ActiveExperimentsFor(target)
	if len(experiments) == 0 {
		return nil
	}

	decisions := make([]Decision, 0, len(experiments))
	for _, e := range experiments {
		idx := e.Assign(identity)

		d := Decision{
			ExperimentID: e.ID,
			Kind:         e.Kind,
			Identity:     identity,
			VariantIndex: idx,
			VariantLabel: e.VariantLabels()[idx],
		}
		switch p := e.Variants[idx].Payload.(type) {
		case RedirectTarget:
			d.RedirectURL = p.URL
		case ContentOverride:
			d.Value = p.Value
			d.Overrides = p.Fields
		}
		decisions = append(decisions, d)

		r.metrics.RecordAssignment(ctx, e.ID, idx)
		observability.LogAssignment(r.logger, e.ID, target, idx)
	}
	return decisions
}
