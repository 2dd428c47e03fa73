// Package lint provides advisory lint rules for synthesized templates.
package lint

import (
	"sort"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

// Severity levels of lint issues.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Rule checks one template at a time.
type Rule interface {
	ID() string
	Description() string
	Check(file string, template *wetwire.Template) []wetwire.LintIssue
}

// AssemblyRule checks the templates of an assembly together.
type AssemblyRule interface {
	ID() string
	Description() string
	CheckAssembly(assembly *synth.Assembly) []wetwire.LintIssue
}

// Result contains the outcome of linting.
type Result struct {
	// Success is false when an error-severity issue was found.
	Success bool
	Issues  []wetwire.LintIssue
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// Rules to skip.
	DisabledRules []string
}

// LintTemplate lints a single template. Assembly rules are not run.
func LintTemplate(file string, template *wetwire.Template, opts Options) Result {
	var issues []wetwire.LintIssue
	for _, rule := range AllRules() {
		if !opts.enabled(rule.ID()) {
			continue
		}
		issues = append(issues, rule.Check(file, template)...)
	}
	return newResult(issues)
}

// LintAssembly lints every template of the assembly and runs the assembly
// rules.
func LintAssembly(assembly *synth.Assembly, opts Options) Result {
	var issues []wetwire.LintIssue
	for _, s := range assembly.Stacks {
		if s.Template == nil {
			continue
		}
		for _, rule := range AllRules() {
			if !opts.enabled(rule.ID()) {
				continue
			}
			issues = append(issues, rule.Check(s.TemplateFile, s.Template)...)
		}
	}
	for _, rule := range AllAssemblyRules() {
		if !opts.enabled(rule.ID()) {
			continue
		}
		issues = append(issues, rule.CheckAssembly(assembly)...)
	}
	return newResult(issues)
}

func newResult(issues []wetwire.LintIssue) Result {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Template != b.Template {
			return a.Template < b.Template
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Rule < b.Rule
	})

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
			break
		}
	}
	return Result{Success: success, Issues: issues}
}

func (o Options) enabled(id string) bool {
	for _, disabled := range o.DisabledRules {
		if disabled == id {
			return false
		}
	}
	if len(o.EnabledRules) == 0 {
		return true
	}
	for _, enabled := range o.EnabledRules {
		if enabled == id {
			return true
		}
	}
	return false
}
