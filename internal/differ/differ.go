// Package differ compares CloudFormation templates resource by resource.
//
// It answers "what would a rebuild change": which layers and policies appear
// or disappear, and which properties moved (a new S3Key means a layer's
// sources or packaging changed).
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-aws-catalog"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Entry is one added, removed or modified resource.
type Entry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// Diff groups entries by kind of change.
type Diff struct {
	Added    []Entry `json:"added,omitempty"`
	Removed  []Entry `json:"removed,omitempty"`
	Modified []Entry `json:"modified,omitempty"`
}

// Summary counts the entries of a Diff.
type Summary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// Result contains the difference between two templates.
type Result struct {
	Diff    Diff    `json:"diff"`
	Summary Summary `json:"summary"`
}

// Compare compares two CloudFormation templates; from is the old one.
func Compare(from, to *wetwire.Template, opts Options) (*Result, error) {
	result := &Result{}

	for name, def := range to.Resources {
		if _, exists := from.Resources[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, Entry{Resource: name, Type: def.Type})
		}
	}

	for name, def := range from.Resources {
		if _, exists := to.Resources[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, Entry{Resource: name, Type: def.Type})
		}
	}

	for name, def1 := range from.Resources {
		def2, exists := to.Resources[name]
		if !exists {
			continue
		}
		changes, err := compareResources(def1, def2, opts)
		if err != nil {
			return nil, fmt.Errorf("comparing %s: %w", name, err)
		}
		if len(changes) > 0 {
			result.Diff.Modified = append(result.Diff.Modified, Entry{
				Resource: name,
				Type:     def1.Type,
				Changes:  changes,
			})
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = Summary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*wetwire.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var template wetwire.Template
	if err := json.Unmarshal(data, &template); err != nil {
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}

	return &template, nil
}

func compareResources(def1, def2 wetwire.ResourceDef, opts Options) ([]string, error) {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	props, err := compareMaps("", def1.Properties, def2.Properties, opts)
	if err != nil {
		return nil, err
	}
	changes = append(changes, props...)

	metadata, err := compareMaps("Metadata", def1.Metadata, def2.Metadata, opts)
	if err != nil {
		return nil, err
	}
	changes = append(changes, metadata...)

	if !reflect.DeepEqual(nilIfEmpty(def1.DependsOn), nilIfEmpty(def2.DependsOn)) {
		changes = append(changes, "DependsOn changed")
	}

	return changes, nil
}

// compareMaps compares top-level keys of two maps.
func compareMaps(prefix string, m1, m2 map[string]any, opts Options) ([]string, error) {
	var changes []string

	path := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	for key, val2 := range m2 {
		val1, exists := m1[key]
		if !exists {
			changes = append(changes, path(key)+" added")
			continue
		}
		equal, err := deepEqual(val1, val2, opts)
		if err != nil {
			return nil, err
		}
		if !equal {
			changes = append(changes, path(key)+" modified")
		}
	}

	for key := range m1 {
		if _, exists := m2[key]; !exists {
			changes = append(changes, path(key)+" removed")
		}
	}

	sort.Strings(changes)
	return changes, nil
}

// deepEqual compares values after a JSON round trip, so a template read from
// disk compares equal to a freshly synthesized one.
func deepEqual(a, b any, opts Options) (bool, error) {
	ca, err := canonical(a)
	if err != nil {
		return false, err
	}
	cb, err := canonical(b)
	if err != nil {
		return false, err
	}
	if opts.IgnoreOrder {
		ca = sortSlices(ca)
		cb = sortSlices(cb)
	}
	return reflect.DeepEqual(ca, cb), nil
}

func canonical(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// sortSlices orders every array by the JSON encoding of its elements.
func sortSlices(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = sortSlices(item)
		}
		sort.SliceStable(result, func(i, j int) bool {
			return encoded(result[i]) < encoded(result[j])
		})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = sortSlices(item)
		}
		return result
	default:
		return v
	}
}

func encoded(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
