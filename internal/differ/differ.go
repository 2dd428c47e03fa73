// Package differ provides semantic comparison of CloudFormation templates
// and synthesized assemblies.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
	"github.com/lex00/wetwire-atlas-go/internal/template"
	"github.com/lex00/wetwire-atlas-go/intrinsics"
	"github.com/lex00/wetwire-atlas-go/resources/cloudformation"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
	// IgnoreTemplateURL skips the TemplateURL of nested stacks, which
	// changes with any change to the nested template.
	IgnoreTemplateURL bool
}

// Result contains the difference between two templates or assemblies.
type Result struct {
	Diff    wetwire.TemplateDiff
	Summary wetwire.DiffSummary
}

// Empty reports whether nothing changed.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// Compare compares two CloudFormation templates and returns differences.
func Compare(template1, template2 *wetwire.Template, opts Options) (*Result, error) {
	result := &Result{}
	compareTemplates(result, "", template1, template2, opts)
	result.finish()
	return result, nil
}

// CompareAssemblies compares two assemblies stack by stack. Stacks are
// matched by path; entries carry the template file name. Templates are
// compared in their encoded form so freshly synthesized and previously
// written assemblies compare equal.
func CompareAssemblies(a1, a2 *synth.Assembly, opts Options) (*Result, error) {
	result := &Result{}
	empty := &wetwire.Template{}

	for _, s1 := range a1.Stacks {
		t1, err := decoded(s1)
		if err != nil {
			return nil, err
		}
		t2 := empty
		if s2, ok := a2.Stack(s1.Path); ok {
			if t2, err = decoded(s2); err != nil {
				return nil, err
			}
		}
		compareTemplates(result, s1.TemplateFile, t1, t2, opts)
	}

	for _, s2 := range a2.Stacks {
		if _, ok := a1.Stack(s2.Path); ok {
			continue
		}
		t2, err := decoded(s2)
		if err != nil {
			return nil, err
		}
		compareTemplates(result, s2.TemplateFile, empty, t2, opts)
	}

	result.finish()
	return result, nil
}

func decoded(s *synth.StackArtifact) (*wetwire.Template, error) {
	data, err := s.Data()
	if err != nil {
		return nil, err
	}
	return template.Parse(data)
}

// CompareDirs compares the assemblies written to two directories.
func CompareDirs(dir1, dir2 string, opts Options) (*Result, error) {
	a1, err := synth.ReadAssembly(dir1)
	if err != nil {
		return nil, err
	}
	a2, err := synth.ReadAssembly(dir2)
	if err != nil {
		return nil, err
	}
	return CompareAssemblies(a1, a2, opts)
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*wetwire.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return template.Parse(data)
}

func compareTemplates(result *Result, file string, template1, template2 *wetwire.Template, opts Options) {
	res1 := template1.Resources
	res2 := template2.Resources

	// Find added resources (in template2 but not in template1)
	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, wetwire.DiffEntry{
				Template: file,
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Find removed resources (in template1 but not in template2)
	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, wetwire.DiffEntry{
				Template: file,
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, wetwire.DiffEntry{
					Template: file,
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}
}

func (r *Result) finish() {
	sortEntries(r.Diff.Added)
	sortEntries(r.Diff.Removed)
	sortEntries(r.Diff.Modified)

	r.Summary = wetwire.DiffSummary{
		Added:    len(r.Diff.Added),
		Removed:  len(r.Diff.Removed),
		Modified: len(r.Diff.Modified),
	}
	r.Summary.Total = r.Summary.Added + r.Summary.Removed + r.Summary.Modified
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 wetwire.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	props1, props2 := def1.Properties, def2.Properties
	if opts.IgnoreTemplateURL && def1.Type == cloudformation.StackResourceType {
		props1 = without(props1, "TemplateURL")
		props2 = without(props2, "TemplateURL")
	}
	changes = append(changes, compareProperties("", props1, props2, opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

// compareProperties recursively compares property maps. Nested maps are
// descended into; any other value is compared as a whole.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}

		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !intrinsics.IsIntrinsic(m1) && !intrinsics.IsIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts slices by their JSON encoding, recursively.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		keys := make(map[int]string, len(val))
		for i, x := range val {
			result[i] = normalizeValue(x)
		}
		for i, x := range result {
			data, _ := json.Marshal(x)
			keys[i] = string(data)
		}
		idx := make([]int, len(result))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool { return keys[idx[i]] < keys[idx[j]] })
		sorted := make([]any, len(result))
		for i, k := range idx {
			sorted[i] = result[k]
		}
		return sorted
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, x := range val {
			result[k] = normalizeValue(x)
		}
		return result
	default:
		return v
	}
}

func without(m map[string]any, key string) map[string]any {
	if _, ok := m[key]; !ok {
		return m
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			result[k] = v
		}
	}
	return result
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by template, then resource name.
func sortEntries(entries []wetwire.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Template != entries[j].Template {
			return entries[i].Template < entries[j].Template
		}
		return entries[i].Resource < entries[j].Resource
	})
}
