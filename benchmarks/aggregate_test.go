package benchmarks

import (
	"fmt"
	"testing"

	"github.com/splitkit/splitkit/pkg/splitkit/aggregate"
	"github.com/splitkit/splitkit/pkg/splitkit/eventstore"
)

func buildEvents(n int) []eventstore.Event {
	events := make([]eventstore.Event, 0, n)
	for i := 0; i < n; i++ {
		kind := eventstore.KindImpression
		if i%5 == 0 {
			kind = eventstore.KindConversion
		}
		events = append(events, eventstore.Event{
			ID:           fmt.Sprintf("evt-%d", i),
			ExperimentID: fmt.Sprintf("exp-%d", i%4),
			VariantIndex: i % 3,
			Kind:         kind,
		})
	}
	return events
}

// BenchmarkAggregate_1k rolls up 1k events across 4 experiments.
func BenchmarkAggregate_1k(b *testing.B) {
	events := buildEvents(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		aggregate.Aggregate(events)
	}
}

// BenchmarkAggregate_100k rolls up 100k events across 4 experiments.
func BenchmarkAggregate_100k(b *testing.B) {
	events := buildEvents(100000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		aggregate.Aggregate(events)
	}
}

// BenchmarkAggregate_WithLabels includes the registry label universe.
func BenchmarkAggregate_WithLabels(b *testing.B) {
	events := buildEvents(10000)
	labels := map[string][]string{
		"exp-0": {"Control", "Variant 1", "Variant 2"},
		"exp-1": {"Control", "Variant 1", "Variant 2"},
		"exp-2": {"Control", "Variant 1", "Variant 2"},
		"exp-3": {"Control", "Variant 1", "Variant 2"},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		aggregate.Aggregate(events, aggregate.WithLabels(labels))
	}
}

// BenchmarkFormatRate measures conversion rate formatting.
func BenchmarkFormatRate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		aggregate.FormatRate(38, 480)
	}
}
