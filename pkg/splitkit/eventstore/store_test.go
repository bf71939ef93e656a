package eventstore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/splitkit/splitkit/pkg/splitkit/eventstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) eventstore.Store

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	impression := func(experimentID string, variant int) eventstore.Event {
		return eventstore.Event{
			ExperimentID: experimentID,
			VariantIndex: variant,
			Kind:         eventstore.KindImpression,
		}
	}

	t.Run(name+"/Append_and_Query", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Append(ctx, impression("exp-1", 0)))
		require.NoError(t, store.Append(ctx, impression("exp-1", 1)))

		events, err := store.Query(ctx, "exp-1")
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run(name+"/Append_FillsIDAndTimestamp", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Append(ctx, impression("exp-1", 0)))

		events, err := store.Query(ctx, "exp-1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.NotEmpty(t, events[0].ID)
		assert.False(t, events[0].Timestamp.IsZero())
	})

	t.Run(name+"/Append_RejectsMalformed", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		cases := []eventstore.Event{
			{Kind: eventstore.KindImpression},                      // no experiment id
			{ExperimentID: "exp-1"},                                // no kind
			{ExperimentID: "exp-1", Kind: "pageview"},              // unknown kind
			{ExperimentID: "exp-1", Kind: eventstore.KindCustom},   // custom without name
			{ExperimentID: "exp-1", Kind: eventstore.KindImpression, VariantIndex: -1},
		}
		for _, evt := range cases {
			err := store.Append(ctx, evt)
			var verr *eventstore.ValidationError
			assert.ErrorAs(t, err, &verr, "event %+v", evt)
		}

		// Nothing partially persisted.
		events, err := store.Query(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run(name+"/Query_FiltersByExperiment", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Append(ctx, impression("exp-1", 0)))
		require.NoError(t, store.Append(ctx, impression("exp-2", 0)))
		require.NoError(t, store.Append(ctx, impression("exp-2", 1)))

		events, err := store.Query(ctx, "exp-2")
		require.NoError(t, err)
		assert.Len(t, events, 2)

		all, err := store.Query(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run(name+"/Query_EmptyResult", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		events, err := store.Query(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run(name+"/Query_RoundTripsFields", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		in := eventstore.Event{
			ExperimentID: "exp-1",
			VariantIndex: 1,
			Kind:         eventstore.KindCustom,
			Name:         "cta_click",
			Target:       "/pricing",
			Identity:     "visitor-1",
			UserAgent:    "test-agent",
			Referer:      "https://example.com/",
		}
		require.NoError(t, store.Append(ctx, in))

		events, err := store.Query(ctx, "exp-1")
		require.NoError(t, err)
		require.Len(t, events, 1)

		got := events[0]
		assert.Equal(t, in.ExperimentID, got.ExperimentID)
		assert.Equal(t, in.VariantIndex, got.VariantIndex)
		assert.Equal(t, in.Kind, got.Kind)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.Target, got.Target)
		assert.Equal(t, in.Identity, got.Identity)
		assert.Equal(t, in.UserAgent, got.UserAgent)
		assert.Equal(t, in.Referer, got.Referer)
	})

	t.Run(name+"/ExperimentIDs", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Append(ctx, impression("zeta", 0)))
		require.NoError(t, store.Append(ctx, impression("alpha", 0)))
		require.NoError(t, store.Append(ctx, impression("alpha", 1)))

		ids, err := store.ExperimentIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "zeta"}, ids)
	})

	t.Run(name+"/DuplicatesNotDeduplicated", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		// At-least-once ingestion: a retried beacon appends twice.
		evt := impression("exp-1", 0)
		evt.Identity = "visitor-1"
		require.NoError(t, store.Append(ctx, evt))
		require.NoError(t, store.Append(ctx, evt))

		events, err := store.Query(ctx, "exp-1")
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		err := store.Append(ctx, impression("exp-1", 0))
		assert.ErrorIs(t, err, eventstore.ErrStoreClosed)

		_, err = store.Query(ctx, "")
		assert.ErrorIs(t, err, eventstore.ErrStoreClosed)

		_, err = store.ExperimentIDs(ctx)
		assert.ErrorIs(t, err, eventstore.ErrStoreClosed)
	})

	t.Run(name+"/ConcurrentAppend", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		// N concurrent appends with distinct payloads yield exactly N
		// retrievable records, none corrupted, order unconstrained.
		const goroutines = 20
		const perGoroutine = 25

		var wg sync.WaitGroup
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < perGoroutine; i++ {
					evt := eventstore.Event{
						ExperimentID: "exp-conc",
						VariantIndex: g % 2,
						Kind:         eventstore.KindImpression,
						Identity:     fmt.Sprintf("visitor-%d-%d", g, i),
					}
					assert.NoError(t, store.Append(ctx, evt))
				}
			}(g)
		}
		wg.Wait()

		events, err := store.Query(ctx, "exp-conc")
		require.NoError(t, err)
		require.Len(t, events, goroutines*perGoroutine)

		// Every record intact and distinct.
		seen := make(map[string]struct{}, len(events))
		for _, evt := range events {
			assert.Equal(t, "exp-conc", evt.ExperimentID)
			assert.Equal(t, eventstore.KindImpression, evt.Kind)
			assert.NotEmpty(t, evt.Identity)
			seen[evt.Identity] = struct{}{}
		}
		assert.Len(t, seen, goroutines*perGoroutine)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	storeContractTest(t, "memory", func(t *testing.T) eventstore.Store {
		return eventstore.NewMemoryStore()
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	storeContractTest(t, "sqlite", func(t *testing.T) eventstore.Store {
		dbPath := filepath.Join(t.TempDir(), "events.db")
		store, err := eventstore.NewSQLiteStore(dbPath)
		require.NoError(t, err)
		return store
	})
}

func TestEventValidate(t *testing.T) {
	valid := []eventstore.Event{
		{ExperimentID: "e", Kind: eventstore.KindImpression},
		{ExperimentID: "e", Kind: eventstore.KindConversion, VariantIndex: 3},
		{ExperimentID: "e", Kind: eventstore.KindCustom, Name: "cta_click"},
	}
	for _, evt := range valid {
		assert.NoError(t, evt.Validate(), "event %+v", evt)
	}

	t.Run("error names the field", func(t *testing.T) {
		err := eventstore.Event{Kind: eventstore.KindImpression}.Validate()
		var verr *eventstore.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "experiment_id", verr.Field)
	})
}
