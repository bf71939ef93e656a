package splitkit

// Registry holds the experiment definitions for a deployment and
// answers which experiments apply to a target. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	experiments []Experiment
	byID        map[string]int // ID -> index into experiments
}

// NewRegistry validates every experiment and builds a registry.
// Declared order is preserved: later resolution depends on it (the
// first matching redirect experiment wins).
func NewRegistry(experiments []Experiment) (*Registry, error) {
	byID := make(map[string]int, len(experiments))
	for i, e := range experiments {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[e.ID]; dup {
			return nil, &ConfigError{ExperimentID: e.ID, VariantIndex: -1, Err: ErrDuplicateExperiment}
		}
		byID[e.ID] = i
	}
	exps := make([]Experiment, len(experiments))
	copy(exps, experiments)
	return &Registry{experiments: exps, byID: byID}, nil
}

// ActiveExperimentsFor returns the experiments that apply to a target,
// in declared order: active experiments whose scope pattern matches.
//
// At most one redirect experiment is returned. Rewriting a request
// twice is undefined, so when several redirect experiments match, the
// first declared wins and the rest are dropped. All matching content
// experiments apply simultaneously and independently.
func (r *Registry) ActiveExperimentsFor(target string) []Experiment {
	var out []Experiment
	redirectTaken := false
	for _, e := range r.experiments {
		if !e.Active || !Matches(target, e.Match) {
			continue
		}
		if e.Kind == KindRedirect {
			if redirectTaken {
				continue
			}
			redirectTaken = true
		}
		out = append(out, e)
	}
	return out
}

// Experiment returns the experiment with the given ID.
func (r *Registry) Experiment(id string) (Experiment, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Experiment{}, false
	}
	return r.experiments[i], true
}

// Experiments returns all experiments in declared order.
func (r *Registry) Experiments() []Experiment {
	out := make([]Experiment, len(r.experiments))
	copy(out, r.experiments)
	return out
}

// VariantLabels returns the reporting labels for every experiment,
// keyed by experiment ID. This is the variant universe handed to the
// aggregator so zero-traffic variants still report zeros: the
// registry, not the event log, defines which variants exist.
func (r *Registry) VariantLabels() map[string][]string {
	labels := make(map[string][]string, len(r.experiments))
	for _, e := range r.experiments {
		labels[e.ID] = e.VariantLabels()
	}
	return labels
}

// Len returns the number of configured experiments.
func (r *Registry) Len() int {
	return len(r.experiments)
}
