// Package eventstore provides append-only storage for experiment
// tracking events.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a tracking event.
type Kind string

const (
	// KindImpression records that a variant was shown.
	KindImpression Kind = "impression"

	// KindConversion records a goal completion (CTA click, signup).
	KindConversion Kind = "conversion"

	// KindCustom records a named custom event (scroll depth, video play).
	KindCustom Kind = "event"
)

// Event is one tracking record. Events are append-only: they are never
// mutated or deleted after ingestion, and duplicate delivery (retried
// beacons) is not deduplicated at this layer.
type Event struct {
	// ID uniquely identifies the record. Assigned on append if empty.
	ID string `json:"id,omitempty"`

	// ExperimentID is the experiment the event belongs to. Required.
	ExperimentID string `json:"experiment_id"`

	// VariantIndex is the variant that produced the event, 0 = control.
	VariantIndex int `json:"variant_index"`

	// Kind is the event classification. Required.
	Kind Kind `json:"kind"`

	// Name is the custom event name. Required for KindCustom.
	Name string `json:"name,omitempty"`

	// Target is the URL path the event occurred on.
	Target string `json:"target,omitempty"`

	// Identity is the visitor token, when the client supplied one.
	Identity string `json:"identity,omitempty"`

	// UserAgent and Referer are request metadata captured at ingestion.
	UserAgent string `json:"user_agent,omitempty"`
	Referer   string `json:"referer,omitempty"`

	// Timestamp is when the event occurred. Assigned on append if zero.
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the fields required for ingestion. A well-formed
// event always appends; a malformed one is rejected whole and never
// partially persists.
func (e Event) Validate() error {
	if e.ExperimentID == "" {
		return &ValidationError{Field: "experiment_id", Message: "required"}
	}
	switch e.Kind {
	case KindImpression, KindConversion:
	case KindCustom:
		if e.Name == "" {
			return &ValidationError{Field: "name", Message: "required for custom events"}
		}
	case "":
		return &ValidationError{Field: "kind", Message: "required"}
	default:
		return &ValidationError{Field: "kind",
			Message: fmt.Sprintf("must be %s, %s, or %s", KindImpression, KindConversion, KindCustom)}
	}
	if e.VariantIndex < 0 {
		return &ValidationError{Field: "variant_index", Message: "must not be negative"}
	}
	return nil
}

// Store is an append-only event log.
// Implementations must be safe for concurrent use: concurrent appends
// must never interleave or silently drop records.
type Store interface {
	// Append ingests one event. Malformed events are rejected with a
	// ValidationError; well-formed events always persist. There is no
	// update or delete.
	Append(ctx context.Context, evt Event) error

	// Query returns all events for an experiment, or all events when
	// experimentID is empty. Order is unspecified; aggregation does
	// not depend on it. Returns an empty slice (not an error) when
	// nothing matches.
	Query(ctx context.Context, experimentID string) ([]Event, error)

	// ExperimentIDs returns the distinct experiment IDs present in the
	// log, sorted. Lets the results surface report on experiments that
	// have events but are no longer configured.
	ExperimentIDs(ctx context.Context) ([]string, error)

	// Close releases any resources (connections, files).
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("event store closed")

// ValidationError indicates an ingested event missing required fields.
// Per-call and recoverable: the single event is rejected, the store
// keeps serving.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Message)
}
