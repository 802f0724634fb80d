// Package rules registers the translation rule sets of every supported
// transfer model.
package rules

import (
	"sort"

	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/hooks"
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/valuelist"
	"github.com/Ramsey-B/moss/pkg/xtf"
)

// Set is everything a run needs to know about one transfer model.
type Set struct {
	// Model is the INTERLIS model the target schema is created from.
	Model string
	// ExportModel restricts the written transfer file, empty for Model.
	ExportModel string
	Family      string

	AppSchema       string
	ValueListSchema string
	// CodeColumn is the value list column holding codes.
	CodeColumn string
	Language   valuelist.Language

	Export *mapping.ExportSet
	Import *mapping.ImportSet
	Edges  []selection.Edge

	PreImport  []hooks.Step
	PostImport []hooks.Step
}

// SourceTables returns the application tables read by the export rules.
func (s *Set) SourceTables() []string {
	return uniq(func(add func(string)) {
		for _, r := range s.Export.Rules {
			add(r.Source)
		}
	})
}

// TargetClasses returns the transfer classes written by the export rules.
func (s *Set) TargetClasses() []string {
	return uniq(func(add func(string)) {
		for _, r := range s.Export.Rules {
			for _, t := range r.Targets {
				add(t.Class)
			}
		}
		if s.Export.Metaattribute != nil {
			add(s.Export.Metaattribute.Class)
		}
		for _, l := range s.Export.Labels {
			add(l.Class)
		}
	})
}

func uniq(fill func(add func(string))) []string {
	seen := map[string]bool{}
	out := []string{}
	fill(func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	})
	return out
}

// Factory builds the rule set of one model.
type Factory func(model string) *Set

// Registry maps model names to rule sets.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register binds models to f.
func (r *Registry) Register(f Factory, models ...string) *Registry {
	for _, m := range models {
		r.factories[m] = f
	}
	return r
}

// Lookup builds the rule set of model.
func (r *Registry) Lookup(model string) (*Set, error) {
	f, ok := r.factories[model]
	if !ok {
		return nil, errors.InvalidInput("unsupported model %q", model)
	}
	return f(model), nil
}

// Models returns the registered models in detection priority.
func (r *Registry) Models() []string {
	out := []string{}
	for _, m := range xtf.Priority {
		if _, ok := r.factories[m]; ok {
			out = append(out, m)
		}
	}
	rest := []string{}
	for m := range r.factories {
		if !ectolinq.Contains(out, m) {
			rest = append(rest, m)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Pick returns the highest ranked registered model among declared.
func (r *Registry) Pick(declared []string) (string, bool) {
	for _, m := range r.Models() {
		if ectolinq.Contains(declared, m) {
			return m, true
		}
	}
	return "", false
}
