// Package config loads experiment definitions from YAML or JSON files.
//
// Configuration is validated in full at load time: a file with a
// zero-variant experiment, a non-positive weight, or a malformed scope
// pattern is rejected whole, so request-time assignment never sees a
// half-valid registry.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/splitkit/splitkit/pkg/splitkit"
)

// File is the top-level configuration document.
type File struct {
	Experiments []ExperimentConfig `yaml:"experiments" json:"experiments"`
}

// ExperimentConfig is one experiment definition as authored.
type ExperimentConfig struct {
	ID       string          `yaml:"id" json:"id"`
	Kind     string          `yaml:"kind" json:"kind"`
	Match    string          `yaml:"match" json:"match"`
	Active   bool            `yaml:"active" json:"active"`
	Variants []VariantConfig `yaml:"variants" json:"variants"`
}

// VariantConfig is one variant as authored. URL applies to redirect
// experiments; Value and Fields apply to content experiments.
//
// Weights should sum to 100 by convention so authors can read them as
// percentages, but that is an authoring convention, not a runtime
// invariant: any positive weights split traffic proportionally. When
// every variant of an experiment omits its weight, the split is
// uniform.
type VariantConfig struct {
	Weight int               `yaml:"weight" json:"weight"`
	Label  string            `yaml:"label,omitempty" json:"label,omitempty"`
	URL    string            `yaml:"url,omitempty" json:"url,omitempty"`
	Value  string            `yaml:"value,omitempty" json:"value,omitempty"`
	Fields map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// FromFile loads a validated registry from a file, auto-detecting
// format by extension. Supported extensions: .yaml, .yml, .json
func FromFile(path string) (*splitkit.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into a validated registry.
func FromYAML(data []byte) (*splitkit.Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return Build(f)
}

// FromJSON parses JSON data into a validated registry.
func FromJSON(data []byte) (*splitkit.Registry, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return Build(f)
}

// Build converts an authored document into a validated registry.
func Build(f File) (*splitkit.Registry, error) {
	experiments := make([]splitkit.Experiment, 0, len(f.Experiments))
	for _, ec := range f.Experiments {
		exp, err := buildExperiment(ec)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}
	return splitkit.NewRegistry(experiments)
}

func buildExperiment(ec ExperimentConfig) (splitkit.Experiment, error) {
	kind := splitkit.Kind(ec.Kind)

	exp := splitkit.Experiment{
		ID:       ec.ID,
		Kind:     kind,
		Match:    ec.Match,
		Active:   ec.Active,
		Variants: make([]splitkit.Variant, 0, len(ec.Variants)),
	}

	uniform := true
	for _, vc := range ec.Variants {
		if vc.Weight != 0 {
			uniform = false
			break
		}
	}

	for i, vc := range ec.Variants {
		v := splitkit.Variant{Weight: vc.Weight, Label: vc.Label}
		if uniform {
			v.Weight = 1
		}
		switch kind {
		case splitkit.KindRedirect:
			if vc.Value != "" || len(vc.Fields) > 0 {
				return splitkit.Experiment{}, fmt.Errorf(
					"experiment %s variant %d: redirect variant must not carry content fields", ec.ID, i)
			}
			v.Payload = splitkit.RedirectTarget{URL: vc.URL}
		case splitkit.KindContent:
			if vc.URL != "" {
				return splitkit.Experiment{}, fmt.Errorf(
					"experiment %s variant %d: content variant must not carry a url", ec.ID, i)
			}
			v.Payload = splitkit.ContentOverride{Value: vc.Value, Fields: vc.Fields}
		default:
			// Leave the payload nil; Experiment.Validate reports the
			// unknown kind with full context.
		}
		exp.Variants = append(exp.Variants, v)
	}

	if err := exp.Validate(); err != nil {
		return splitkit.Experiment{}, err
	}
	return exp, nil
}
