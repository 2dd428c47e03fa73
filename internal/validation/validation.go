// Package validation checks synthesized assemblies before deployment.
//
// Three layers of checks are available:
//   - structure: every Ref, Fn::GetAtt and DependsOn resolves, and nested
//     stack parameters and outputs line up between parent and child
//   - schema: resources match the offline schemas of internal/schema
//   - cfn-lint-go: written template files are linted (library dependency)
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/schema"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
	"github.com/lex00/wetwire-atlas-go/internal/template"
	"github.com/lex00/wetwire-atlas-go/resources/cloudformation"
)

// Options configures assembly validation.
type Options struct {
	// Strict reports unknown resource properties as warnings.
	Strict bool
	// SkipSchema disables the schema layer.
	SkipSchema bool
}

// ValidateAssembly runs the structural and schema checks over every
// template of the assembly.
func ValidateAssembly(assembly *synth.Assembly, opts Options) (*wetwire.ValidateResult, error) {
	result := &wetwire.ValidateResult{}

	for _, s := range assembly.Stacks {
		if s.Template == nil {
			return nil, fmt.Errorf("%s: template not loaded", s.Path)
		}
		result.Templates++
		result.Resources += len(s.Template.Resources)

		for _, msg := range checkReferences(s.Template) {
			result.Errors = append(result.Errors, s.TemplateFile+": "+msg)
		}
		errs, warnings := checkNesting(assembly, s)
		for _, msg := range errs {
			result.Errors = append(result.Errors, s.TemplateFile+": "+msg)
		}
		for _, msg := range warnings {
			result.Warnings = append(result.Warnings, s.TemplateFile+": "+msg)
		}

		if opts.SkipSchema {
			continue
		}
		schemaResult, err := schema.ValidateTemplate(s.Template, schema.Options{Strict: opts.Strict})
		if err != nil {
			return nil, err
		}
		for _, e := range schemaResult.Errors {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s.%s: %s", s.TemplateFile, e.Resource, e.Property, e.Message))
		}
		for _, w := range schemaResult.Warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s.%s: %s", s.TemplateFile, w.Resource, w.Property, w.Message))
		}
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// checkReferences reports Refs, GetAtts and DependsOn entries that do not
// resolve within the template.
func checkReferences(t *wetwire.Template) []string {
	var errors []string

	check := func(where string, v any) {
		for _, ref := range template.References(v) {
			if ref.IsPseudo() {
				continue
			}
			_, isResource := t.Resources[ref.Target]
			_, isParam := t.Parameters[ref.Target]
			switch {
			case ref.IsRef() && !isResource && !isParam:
				errors = append(errors, fmt.Sprintf("%s: Ref to undefined %s", where, ref.Target))
			case !ref.IsRef() && !isResource:
				errors = append(errors, fmt.Sprintf("%s: Fn::GetAtt on undefined resource %s", where, ref.Target))
			}
		}
	}

	for _, name := range sortedKeys(t.Resources) {
		res := t.Resources[name]
		check(name, res.Properties)
		for _, dep := range res.DependsOn {
			if _, ok := t.Resources[dep]; !ok {
				errors = append(errors, fmt.Sprintf("%s: DependsOn undefined resource %s", name, dep))
			}
		}
	}
	for _, name := range sortedKeys(t.Outputs) {
		check("Outputs."+name, t.Outputs[name].Value)
	}
	return errors
}

// checkNesting verifies the nested stack resources of s against the
// child templates they point at.
func checkNesting(assembly *synth.Assembly, s *synth.StackArtifact) (errors, warnings []string) {
	children := make(map[string]*synth.StackArtifact)
	for _, path := range s.Children {
		child, ok := assembly.Stack(path)
		if !ok {
			errors = append(errors, fmt.Sprintf("child stack %s missing from assembly", path))
			continue
		}
		children[child.NestedStackLogicalID] = child
	}

	for _, name := range sortedKeys(s.Template.Resources) {
		res := s.Template.Resources[name]

		// Outputs read from a nested stack must exist in the child.
		for _, ref := range template.References(res.Properties) {
			child, ok := children[ref.Target]
			if !ok || ref.IsRef() {
				continue
			}
			output, ok := strings.CutPrefix(ref.Attribute, "Outputs.")
			if !ok {
				continue
			}
			if child.Template == nil {
				continue
			}
			if _, ok := child.Template.Outputs[output]; !ok {
				errors = append(errors, fmt.Sprintf("%s: %s has no output %s", name, child.Path, output))
			}
		}

		if res.Type != cloudformation.StackResourceType {
			continue
		}
		child, ok := children[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: nested stack not part of the assembly", name))
			continue
		}
		if child.Template == nil {
			continue
		}

		if !strings.Contains(fmt.Sprint(res.Properties["TemplateURL"]), child.ObjectKey) {
			errors = append(errors, fmt.Sprintf("%s: TemplateURL does not point at %s", name, child.ObjectKey))
		}

		passed, _ := res.Properties["Parameters"].(map[string]any)
		for _, param := range sortedKeys(child.Template.Parameters) {
			if _, ok := passed[param]; ok || child.Template.Parameters[param].Default != nil {
				continue
			}
			errors = append(errors, fmt.Sprintf("%s: parameter %s of %s is not passed", name, param, child.Path))
		}
		for _, param := range sortedKeys(passed) {
			if _, ok := child.Template.Parameters[param]; !ok {
				errors = append(errors, fmt.Sprintf("%s: %s declares no parameter %s", name, child.Path, param))
			}
		}
	}
	return errors, warnings
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Template      string   `json:"template,omitempty"`
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Template: templatePath,
			Passed:   false,
			Errors:   []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Template: templatePath,
			Passed:   false,
			Errors:   []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Template:      templatePath,
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// warnings are acceptable
	result.Passed = len(result.Errors) == 0

	return result, nil
}

// RunCfnLintDir runs cfn-lint-go on every template of the assembly
// written to dir.
func RunCfnLintDir(dir string, assembly *synth.Assembly) ([]*CfnLintResult, error) {
	results := make([]*CfnLintResult, 0, len(assembly.Stacks))
	for _, s := range assembly.Stacks {
		result, err := RunCfnLint(filepath.Join(dir, s.TemplateFile))
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
