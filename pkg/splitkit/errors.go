package splitkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for experiment configuration.
// All of these are load-time failures: a registry refuses to build
// from a bad definition so that requests never see a half-valid one.
var (
	// ErrNoVariants indicates an experiment with an empty variant list.
	ErrNoVariants = errors.New("experiment has no variants")

	// ErrBadWeight indicates a variant weight that is zero or negative.
	ErrBadWeight = errors.New("variant weight must be positive")

	// ErrBadPattern indicates a malformed scope pattern.
	ErrBadPattern = errors.New("malformed scope pattern")

	// ErrBadKind indicates an experiment kind outside redirect/content.
	ErrBadKind = errors.New("unknown experiment kind")

	// ErrDuplicateExperiment indicates two experiments sharing an ID.
	ErrDuplicateExperiment = errors.New("duplicate experiment id")

	// ErrPayloadMismatch indicates a variant payload that doesn't match
	// the experiment kind (e.g. a content override on a redirect test).
	ErrPayloadMismatch = errors.New("variant payload does not match experiment kind")

	// ErrNoExperimentID indicates an experiment with an empty ID.
	ErrNoExperimentID = errors.New("experiment id is required")
)

// ErrIdentityNotFound indicates an identity store has no token for a key.
var ErrIdentityNotFound = errors.New("identity not found")

// ConfigError wraps a configuration failure with the experiment that
// caused it.
type ConfigError struct {
	// ExperimentID is the offending experiment, or empty when the
	// failure is not attributable to a single experiment.
	ExperimentID string
	// VariantIndex is the offending variant, or -1.
	VariantIndex int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.ExperimentID == "" {
		return fmt.Sprintf("experiment config: %v", e.Err)
	}
	if e.VariantIndex >= 0 {
		return fmt.Sprintf("experiment %s variant %d: %v", e.ExperimentID, e.VariantIndex, e.Err)
	}
	return fmt.Sprintf("experiment %s: %v", e.ExperimentID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
