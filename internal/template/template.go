// Package template builds a single CloudFormation template from serialized
// resources, parameters and outputs.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-atlas-go"
)

// FormatVersion is the template format version written to every template.
const FormatVersion = "2010-09-09"

var (
	// ErrCircularDependency is returned when resources depend on each other.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrDuplicateResource is returned when a logical id is added twice.
	ErrDuplicateResource = errors.New("duplicate resource")
)

// Entry is a serialized resource waiting to be placed in a template.
type Entry struct {
	Type       string
	Properties map[string]any
	// DependsOn lists explicit dependencies, written to the template.
	DependsOn []string
	// References lists resources referenced through Ref or Fn::GetAtt.
	// They order the resources but are not written as DependsOn.
	References []string
}

func (e Entry) dependencies() []string {
	return append(append([]string(nil), e.DependsOn...), e.References...)
}

// Builder constructs a CloudFormation template.
type Builder struct {
	description string
	resources   map[string]Entry
	parameters  map[string]wetwire.Parameter
	outputs     map[string]wetwire.Output
}

// NewBuilder creates an empty template builder.
func NewBuilder(description string) *Builder {
	return &Builder{
		description: description,
		resources:   make(map[string]Entry),
		parameters:  make(map[string]wetwire.Parameter),
		outputs:     make(map[string]wetwire.Output),
	}
}

// AddResource adds a resource under its logical id.
func (b *Builder) AddResource(name string, entry Entry) error {
	if _, exists := b.resources[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrDuplicateResource)
	}
	b.resources[name] = entry
	return nil
}

// AddParameter adds or replaces a parameter.
func (b *Builder) AddParameter(name string, param wetwire.Parameter) {
	b.parameters[name] = param
}

// AddOutput adds or replaces an output.
func (b *Builder) AddOutput(name string, output wetwire.Output) {
	b.outputs[name] = output
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

	if len(b.parameters) > 0 {
		template.Parameters = make(map[string]wetwire.Parameter, len(b.parameters))
		for name, param := range b.parameters {
			template.Parameters[name] = param
		}
	}

	for _, name := range order {
		res := b.resources[name]
		var dependsOn []string
		for _, dep := range res.DependsOn {
			if _, exists := b.resources[dep]; !exists {
				return nil, fmt.Errorf("%s depends on unknown resource %s", name, dep)
			}
			dependsOn = append(dependsOn, dep)
		}
		template.Resources[name] = wetwire.ResourceDef{
			Type:       res.Type,
			Properties: res.Properties,
			DependsOn:  dependsOn,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]wetwire.Output, len(b.outputs))
		for name, output := range b.outputs {
			template.Outputs[name] = output
		}
	}

	return template, nil
}

// Order returns the logical ids in dependency order. Independent resources
// are ordered by name so the result is deterministic.
func (b *Builder) Order() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, res := range b.resources {
		for _, dep := range res.dependencies() {
			if _, exists := b.resources[dep]; exists && dep != name {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
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

	if len(result) != len(b.resources) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle() error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range b.resources[node].dependencies() {
			if _, exists := b.resources[dep]; !exists {
				continue
			}
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

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(cycle, " → "))
	}
	return ErrCircularDependency
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// Parse reads a template from JSON or YAML.
func Parse(data []byte) (*wetwire.Template, error) {
	var t wetwire.Template
	if err := json.Unmarshal(data, &t); err == nil {
		return &t, nil
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return &t, nil
}
