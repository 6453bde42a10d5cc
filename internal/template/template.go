// Package template assembles CloudFormation templates from registered resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/internal/serialize"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// Entry is a resource added to the builder.
type Entry struct {
	Name      string
	Resource  wetwire.Resource
	DependsOn []string
	Metadata  map[string]any
}

// Builder collects resources and outputs and renders them as a template.
type Builder struct {
	description string
	entries     map[string]Entry
	added       []string
	outputs     map[string]wetwire.Output
}

// NewBuilder creates an empty template builder.
func NewBuilder() *Builder {
	return &Builder{
		entries: make(map[string]Entry),
		outputs: make(map[string]wetwire.Output),
	}
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// Add registers a resource under its logical name.
func (b *Builder) Add(e Entry) error {
	if e.Name == "" {
		return errors.New("resource has no logical name")
	}
	if e.Resource == nil {
		return fmt.Errorf("resource %s has no value", e.Name)
	}
	if _, exists := b.entries[e.Name]; exists {
		return fmt.Errorf("duplicate logical name: %s", e.Name)
	}
	b.entries[e.Name] = e
	b.added = append(b.added, e.Name)
	return nil
}

// AddOutput registers a template output.
func (b *Builder) AddOutput(name, description string, value any) {
	b.outputs[name] = wetwire.Output{Description: description, Value: value}
}

// Names returns the logical names in the order they were added.
func (b *Builder) Names() []string {
	return append([]string(nil), b.added...)
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*wetwire.Template, error) {
	order, err := b.Order()
	if err != nil {
		return nil, err
	}

	template := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]wetwire.ResourceDef, len(order)),
	}

	for _, name := range order {
		e := b.entries[name]

		props, err := serialize.Resource(e.Resource)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}

		template.Resources[name] = wetwire.ResourceDef{
			Type:       e.Resource.ResourceType(),
			Properties: props,
			DependsOn:  e.DependsOn,
			Metadata:   e.Metadata,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]wetwire.Output, len(b.outputs))
		for name, output := range b.outputs {
			value, err := serialize.Value(output.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			output.Value = value
			template.Outputs[name] = output
		}
	}

	return template, nil
}

// Order returns logical names in dependency order, ties broken by name.
func (b *Builder) Order() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.entries {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, e := range b.entries {
		for _, dep := range e.DependsOn {
			if _, exists := b.entries[dep]; !exists {
				return nil, fmt.Errorf("%s depends on unknown resource %s", name, dep)
			}
			graph[dep] = append(graph[dep], name)
			inDegree[name]++
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.entries) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the DependsOn graph.
func (b *Builder) detectCycle() error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range b.entries[node].DependsOn {
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := append([]string(nil), b.added...)
	sort.Strings(names)
	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("circular dependency detected: %s", strings.Join(cycle, " → "))
	}
	return errors.New("circular dependency detected")
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
