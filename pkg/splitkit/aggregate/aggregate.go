// Package aggregate rolls the experiment event log into per-variant
// statistics.
//
// Aggregation is a pure read-side computation: it takes a snapshot of
// events and produces counts and rates, never mutating anything. It is
// safe to run concurrently with ongoing appends; events appended after
// the snapshot was taken simply land in the next pass (eventual, not
// strict, consistency).
package aggregate

import (
	"fmt"

	"github.com/splitkit/splitkit/pkg/splitkit/eventstore"
)

// Result holds the statistics for one variant of one experiment.
// Results are a derived, recomputable view over the event log, never
// the source of truth.
type Result struct {
	// ExperimentID is the experiment this result belongs to.
	ExperimentID string `json:"experiment_id"`

	// VariantIndex is the variant position, 0 = control.
	VariantIndex int `json:"index"`

	// Label is the reporting name for the variant.
	Label string `json:"label"`

	// Impressions counts how many times the variant was shown.
	Impressions int `json:"impressions"`

	// Conversions counts goal completions for the variant.
	Conversions int `json:"conversions"`

	// Rate is conversions/impressions as a percentage with one decimal
	// place ("7.9%"), or "0%" when there are no impressions.
	Rate string `json:"rate"`

	// Events counts custom events by name.
	Events map[string]int `json:"events"`
}

// Summary is the output of one aggregation pass.
type Summary struct {
	// Experiments maps experiment ID to per-variant results, ordered
	// by variant index.
	Experiments map[string][]Result `json:"experiments"`

	// Skipped counts malformed events dropped during the scan. Bad
	// records are a data-quality signal, not a failure: aggregation
	// keeps going.
	Skipped int `json:"skipped,omitempty"`
}

// Option configures an aggregation pass.
type Option func(*options)

type options struct {
	labels map[string][]string
}

// WithLabels supplies the variant-label universe for experiments known
// to the registry. Variants listed here are reported even with zero
// events: the registry, not the event log, defines which variants
// exist. Without labels, only variants that appear in the log are
// reported, under default labels.
func WithLabels(labels map[string][]string) Option {
	return func(o *options) {
		o.labels = labels
	}
}

// tally accumulates raw counts for one variant during the scan.
type tally struct {
	impressions int
	conversions int
	events      map[string]int
}

// Aggregate rolls events into per-experiment, per-variant results.
//
// Calling Aggregate twice on the same event set yields identical
// output: the computation depends only on its input.
func Aggregate(events []eventstore.Event, opts ...Option) Summary {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	tallies := make(map[string]map[int]*tally)
	skipped := 0

	for _, evt := range events {
		if evt.Validate() != nil {
			skipped++
			continue
		}
		variants := tallies[evt.ExperimentID]
		if variants == nil {
			variants = make(map[int]*tally)
			tallies[evt.ExperimentID] = variants
		}
		t := variants[evt.VariantIndex]
		if t == nil {
			t = &tally{}
			variants[evt.VariantIndex] = t
		}

		switch evt.Kind {
		case eventstore.KindImpression:
			t.impressions++
		case eventstore.KindConversion:
			t.conversions++
		case eventstore.KindCustom:
			if t.events == nil {
				t.events = make(map[string]int)
			}
			t.events[evt.Name]++
		}
	}

	summary := Summary{
		Experiments: make(map[string][]Result, len(tallies)),
		Skipped:     skipped,
	}

	for id, variants := range tallies {
		summary.Experiments[id] = buildResults(id, variants, o.labels[id])
	}

	// Experiments known to the registry but absent from the log still
	// report, with zeros.
	for id, labels := range o.labels {
		if _, ok := summary.Experiments[id]; !ok {
			summary.Experiments[id] = buildResults(id, nil, labels)
		}
	}

	return summary
}

// buildResults flattens tallies into ordered Results, filling in
// zero-count variants from the label universe.
func buildResults(experimentID string, variants map[int]*tally, labels []string) []Result {
	maxIndex := len(labels) - 1
	for idx := range variants {
		if idx > maxIndex {
			maxIndex = idx
		}
	}

	// Walk 0..maxIndex so holes in the log (a variant with zero
	// events) still produce a row.
	results := make([]Result, 0, maxIndex+1)
	for i := 0; i <= maxIndex; i++ {
		t := variants[i]
		if t == nil {
			t = &tally{}
		}
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		if label == "" {
			if i == 0 {
				label = "Control"
			} else {
				label = fmt.Sprintf("Variant %d", i)
			}
		}
		events := t.events
		if events == nil {
			events = map[string]int{}
		}
		results = append(results, Result{
			ExperimentID: experimentID,
			VariantIndex: i,
			Label:        label,
			Impressions:  t.impressions,
			Conversions:  t.conversions,
			Rate:         FormatRate(t.conversions, t.impressions),
			Events:       events,
		})
	}

	return results
}

// FormatRate renders a conversion rate as a percentage with one
// decimal place. No impressions means no rate, rendered as the literal
// "0%" rather than a division by zero.
func FormatRate(conversions, impressions int) string {
	if impressions <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(conversions)/float64(impressions)*100)
}
