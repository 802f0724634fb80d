package valuelist

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed translations.yaml
var defaultTranslations []byte

// Dictionary maps source labels of one value list onto the enumeration
// literals of one transfer model attribute.
type Dictionary struct {
	Source string            `yaml:"source"`
	Target string            `yaml:"target"`
	Values map[string]string `yaml:"values"`
}

type dictKey struct {
	source string
	target string
}

// Translations holds the static dictionaries keyed by source list and
// target list.
type Translations struct {
	forward map[dictKey]map[string]string
	reverse map[dictKey]map[string]string
}

// DefaultTranslations parses the dictionaries shipped with the binary.
func DefaultTranslations() (*Translations, error) {
	return ParseTranslations(defaultTranslations)
}

func ParseTranslations(data []byte) (*Translations, error) {
	dicts := []Dictionary{}
	if err := yaml.Unmarshal(data, &dicts); err != nil {
		return nil, fmt.Errorf("failed to parse value list translations: %w", err)
	}

	t := &Translations{}
	for _, d := range dicts {
		if d.Source == "" || d.Target == "" {
			return nil, fmt.Errorf("value list translation without source or target")
		}
		if err := t.Add(d); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Translations) Add(d Dictionary) error {
	if t.forward == nil {
		t.forward = map[dictKey]map[string]string{}
		t.reverse = map[dictKey]map[string]string{}
	}
	key := dictKey{d.Source, d.Target}
	if _, exists := t.forward[key]; exists {
		return fmt.Errorf("duplicate value list translation %s -> %s", d.Source, d.Target)
	}

	t.forward[key] = map[string]string{}
	t.reverse[key] = map[string]string{}
	for label, literal := range d.Values {
		t.forward[key][label] = literal
		if _, taken := t.reverse[key][literal]; !taken {
			t.reverse[key][literal] = label
		}
	}
	return nil
}

func (t *Translations) Has(source, target string) bool {
	_, ok := t.forward[dictKey{source, target}]
	return ok
}

func (t *Translations) Forward(source, target, label string) (string, bool) {
	v, ok := t.forward[dictKey{source, target}][label]
	return v, ok
}

func (t *Translations) Reverse(source, target, literal string) (string, bool) {
	v, ok := t.reverse[dictKey{source, target}][literal]
	return v, ok
}
