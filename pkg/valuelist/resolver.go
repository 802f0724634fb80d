// Package valuelist resolves coded attributes against multilingual lookup
// tables and translates labels into transfer model enumeration literals.
package valuelist

import (
	"strings"
)

type Language string

const (
	German  Language = "de"
	French  Language = "fr"
	English Language = "en"
	Italian Language = "it"
	Romansh Language = "ro"
)

// Languages lists every supported label language, German first.
var Languages = []Language{German, French, English, Italian, Romansh}

// LabelColumn returns the lookup table column holding labels in lang.
func LabelColumn(lang Language) string {
	return "value_" + string(lang)
}

// Entry is one row of a value list table.
type Entry struct {
	List   string
	Code   string
	Labels map[Language]string
}

// Resolver resolves codes to labels in one language and back.
type Resolver struct {
	lang         Language
	entries      map[string]map[string]Entry
	reverse      map[string]map[string]string
	translations *Translations
}

func NewResolver(lang Language, entries []Entry, translations *Translations) *Resolver {
	if translations == nil {
		translations = &Translations{}
	}
	r := &Resolver{
		lang:         lang,
		entries:      map[string]map[string]Entry{},
		reverse:      map[string]map[string]string{},
		translations: translations,
	}
	for _, e := range entries {
		r.Add(e)
	}
	return r
}

// Add registers e. A later entry with the same code replaces the earlier.
func (r *Resolver) Add(e Entry) {
	if r.entries[e.List] == nil {
		r.entries[e.List] = map[string]Entry{}
		r.reverse[e.List] = map[string]string{}
	}
	r.entries[e.List][e.Code] = e
	for _, label := range e.Labels {
		if label == "" {
			continue
		}
		if _, taken := r.reverse[e.List][label]; !taken {
			r.reverse[e.List][label] = e.Code
		}
	}
}

func (r *Resolver) Language() Language {
	return r.lang
}

func (r *Resolver) HasList(list string) bool {
	_, ok := r.entries[list]
	return ok
}

// Label returns the label of code in the resolver language. It reports
// false when the code is empty, unknown or has no label in that language.
func (r *Resolver) Label(list, code string) (string, bool) {
	if code == "" {
		return "", false
	}
	entry, ok := r.entries[list][code]
	if !ok {
		return "", false
	}
	label := strings.TrimSpace(entry.Labels[r.lang])
	if label == "" {
		return "", false
	}
	return label, true
}

// Code returns the code whose label, in any language, equals label.
func (r *Resolver) Code(list, label string) (string, bool) {
	if label == "" {
		return "", false
	}
	code, ok := r.reverse[list][label]
	return code, ok
}

// Export resolves code and maps the label onto the enumeration literal of
// target. Labels without a dictionary entry are used verbatim.
func (r *Resolver) Export(list, target, code string) (string, bool) {
	label, ok := r.Label(list, code)
	if !ok {
		return "", false
	}
	if target == "" {
		return label, true
	}
	if literal, ok := r.translations.Forward(list, target, label); ok {
		return literal, true
	}
	if r.translations.Has(list, target) {
		return "", false
	}
	return label, true
}

// Import maps an enumeration literal of target back to a code of list.
func (r *Resolver) Import(list, target, literal string) (string, bool) {
	if literal == "" {
		return "", false
	}
	label := literal
	if target != "" {
		if l, ok := r.translations.Reverse(list, target, literal); ok {
			label = l
		}
	}
	if code, ok := r.Code(list, label); ok {
		return code, true
	}
	// dotted literals fall back to their last segment
	if i := strings.LastIndex(label, "."); i >= 0 {
		return r.Code(list, label[i+1:])
	}
	return "", false
}
