package splitkit

import "fmt"

// Kind selects the treatment mechanism for an experiment.
type Kind string

const (
	// KindRedirect rewrites matching requests to a variant URL.
	KindRedirect Kind = "redirect"

	// KindContent keeps the URL and swaps content fields per variant.
	KindContent Kind = "content"
)

// valid reports whether k is a recognized kind.
func (k Kind) valid() bool {
	return k == KindRedirect || k == KindContent
}

// Payload is the variant treatment. One concrete type applies per
// experiment kind: RedirectTarget for redirect experiments,
// ContentOverride for content experiments. A nil payload is a
// no-treatment variant, typically control.
type Payload interface {
	isPayload()
}

// RedirectTarget sends matching traffic to a different URL.
type RedirectTarget struct {
	// URL is the rewrite destination for this variant.
	URL string
}

func (RedirectTarget) isPayload() {}

// ContentOverride keeps the URL and overrides content fields.
type ContentOverride struct {
	// Value is the variant value exposed to rendering (e.g. "A", "B").
	Value string
	// Fields are content overrides keyed by the same names as the base
	// content. Empty values keep the base.
	Fields map[string]string
}

func (ContentOverride) isPayload() {}

// Variant is one treatment within an experiment.
type Variant struct {
	// Weight is the relative share of traffic. Authors conventionally
	// make weights sum to 100, but any positive total works.
	Weight int

	// Label is the reporting name. Empty labels default to "Control"
	// for index 0 and "Variant N" otherwise.
	Label string

	// Payload is the treatment, matching the experiment kind.
	Payload Payload
}

// Experiment controls how traffic is split across variants for a
// target scope. Experiments are immutable at runtime: define them once
// per config load and never reuse an ID for a different test, since
// assignment hashing is keyed by ID.
type Experiment struct {
	// ID uniquely identifies the experiment. Part of the assignment
	// hash key, so changing it reshuffles all visitors.
	ID string

	// Kind selects redirect or content treatment.
	Kind Kind

	// Match is the target scope pattern: exact ("/pricing"),
	// prefix wildcard ("/services/*"), or global ("*").
	Match string

	// Active gates the experiment without deleting its definition.
	Active bool

	// Variants is the ordered treatment list. Index 0 is control by
	// convention of ordering, not by type.
	Variants []Variant
}

// Validate checks the experiment definition. All failures here are
// configuration errors: they are rejected at load time so request-time
// assignment never sees an invalid experiment.
func (e Experiment) Validate() error {
	if e.ID == "" {
		return &ConfigError{VariantIndex: -1, Err: ErrNoExperimentID}
	}
	if !e.Kind.valid() {
		return &ConfigError{ExperimentID: e.ID, VariantIndex: -1,
			Err: fmt.Errorf("%w: %q", ErrBadKind, e.Kind)}
	}
	if err := ValidatePattern(e.Match); err != nil {
		return &ConfigError{ExperimentID: e.ID, VariantIndex: -1, Err: err}
	}
	if len(e.Variants) == 0 {
		return &ConfigError{ExperimentID: e.ID, VariantIndex: -1, Err: ErrNoVariants}
	}
	for i, v := range e.Variants {
		if v.Weight <= 0 {
			return &ConfigError{ExperimentID: e.ID, VariantIndex: i,
				Err: fmt.Errorf("%w: got %d", ErrBadWeight, v.Weight)}
		}
		// A nil payload is a valid no-treatment variant (typically
		// control). A present payload must match the experiment kind.
		if v.Payload == nil {
			continue
		}
		switch e.Kind {
		case KindRedirect:
			if _, ok := v.Payload.(RedirectTarget); !ok {
				return &ConfigError{ExperimentID: e.ID, VariantIndex: i, Err: ErrPayloadMismatch}
			}
		case KindContent:
			if _, ok := v.Payload.(ContentOverride); !ok {
				return &ConfigError{ExperimentID: e.ID, VariantIndex: i, Err: ErrPayloadMismatch}
			}
		}
	}
	return nil
}

// Weights returns the ordered variant weights.
func (e Experiment) Weights() []int {
	w := make([]int, len(e.Variants))
	for i, v := range e.Variants {
		w[i] = v.Weight
	}
	return w
}

// Assign computes the deterministic variant index for an identity.
func (e Experiment) Assign(identity string) int {
	if e.unitWeights() {
		return AssignUniform(identity, e.ID, len(e.Variants))
	}
	return Assign(identity, e.ID, e.Weights())
}

// unitWeights reports whether every variant has weight 1, in which
// case the uniform fast path computes the identical index.
func (e Experiment) unitWeights() bool {
	for _, v := range e.Variants {
		if v.Weight != 1 {
			return false
		}
	}
	return len(e.Variants) > 0
}

// VariantLabels returns the reporting labels for all variants,
// applying the Control / Variant N defaults.
func (e Experiment) VariantLabels() []string {
	labels := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		labels[i] = v.Label
		if labels[i] == "" {
			labels[i] = DefaultLabel(i)
		}
	}
	return labels
}

// DefaultLabel returns the conventional reporting label for a variant
// index: "Control" for 0, "Variant N" otherwise.
func DefaultLabel(index int) string {
	if index == 0 {
		return "Control"
	}
	return fmt.Sprintf("Variant %d", index)
}
