/*
Package splitkit provides deterministic A/B experiment assignment and
conversion analytics for stateless web applications.

# Overview

splitkit decides, for a given visitor and a given experiment, which
treatment they see, and keeps that decision stable across requests
without persisting any assignment state. Assignment is a pure function
of (identity, experiment ID, variant weights), so any number of
independent service instances compute the same answer with no shared
memory and no coordination.

The library is split along the request path:

  - Identity: stable per-visitor tokens (UUIDv4) with a pluggable
    persistence collaborator
  - Registry: experiment definitions, scope-pattern matching, and the
    first-redirect-wins policy
  - Assignment: FNV-1a hash bucketing over relative variant weights
  - eventstore: append-only impression/conversion/custom event log
    (in-memory and SQLite backends)
  - aggregate: per-variant counts and conversion rates computed on read

# Basic Usage

Define experiments, build a registry, and resolve decisions per request:

	exps := []splitkit.Experiment{{
	    ID:     "pricing-redesign",
	    Kind:   splitkit.KindRedirect,
	    Match:  "/pricing",
	    Active: true,
	    Variants: []splitkit.Variant{
	        {Weight: 50, Payload: splitkit.RedirectTarget{URL: "/pricing"}},
	        {Weight: 50, Payload: splitkit.RedirectTarget{URL: "/pricing-v2"}},
	    },
	}}

	registry, err := splitkit.NewRegistry(exps)
	if err != nil {
	    log.Fatal(err)
	}

	resolver := splitkit.NewResolver(registry)
	decisions := resolver.Resolve(ctx, "/pricing", visitorToken)
	for _, d := range decisions {
	    fmt.Println(d.ExperimentID, d.VariantIndex)
	}

# Determinism

Assignment hashes the exact string identity + ":" + experimentID with
32-bit FNV-1a and reduces the hash modulo the total weight. The key
format and hash constants are a wire-level contract: any implementation
in any language that follows them produces identical assignments. Do
not change the separator or reuse an experiment ID for a different
experiment.

Weights are relative, not percentages. Authors conventionally make them
sum to 100, but any positive total works and produces proportional
traffic splits.

# Event Tracking

Events are append-only and validated on ingestion:

	store, err := eventstore.NewSQLiteStore("./events.db")
	...
	err = store.Append(ctx, eventstore.Event{
	    ExperimentID: "pricing-redesign",
	    VariantIndex: 1,
	    Kind:         eventstore.KindConversion,
	})

Aggregation is a pure read-side scan:

	events, _ := store.Query(ctx, "")
	summary := aggregate.Aggregate(events)

# Thread Safety

  - Assign and AssignUniform are pure functions, safe from any number
    of goroutines
  - Registry is immutable after construction and safe for concurrent use
  - Store implementations are safe for concurrent appends and queries

# Subpackages

  - config: experiment definitions from YAML or JSON files
  - eventstore: event log storage (memory, SQLite)
  - aggregate: per-variant statistics over the event log
  - observability: logging, metrics, and tracing helpers
  - httpapi: thin HTTP layer exposing track, results, and assignment
*/
package splitkit
