// Rules:
//
//	MAS001: IAM policy statement allows every resource
//	MAS002: IP access list open to the whole internet
//	MAS003: Unresolved {{TOKEN}} placeholder
//	MAS004: Literal database user password
//	MAS005: Atlas type used without a matching type activation
//	MAS006: Nested stack without a TemplateURL

package lint

import (
	"fmt"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/render"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
	"github.com/lex00/wetwire-atlas-go/intrinsics"
	"github.com/lex00/wetwire-atlas-go/resources/cloudformation"
	"github.com/lex00/wetwire-atlas-go/resources/iam"
	"github.com/lex00/wetwire-atlas-go/resources/mongodbatlas"
)

// AllRules returns the template rules in id order.
func AllRules() []Rule {
	return []Rule{
		WildcardResource{},
		OpenAccessList{},
		UnresolvedPlaceholder{},
		LiteralPassword{},
		NestedStackTemplateURL{},
	}
}

// AllAssemblyRules returns the assembly rules in id order.
func AllAssemblyRules() []AssemblyRule {
	return []AssemblyRule{
		MissingActivation{},
	}
}

func sortedResources(t *wetwire.Template) []string {
	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WildcardResource flags IAM role policy statements with Resource "*".
type WildcardResource struct{}

func (r WildcardResource) ID() string { return "MAS001" }
func (r WildcardResource) Description() string {
	return "IAM policy statement allows every resource"
}

func (r WildcardResource) Check(file string, t *wetwire.Template) []wetwire.LintIssue {
	var issues []wetwire.LintIssue
	for _, name := range sortedResources(t) {
		res := t.Resources[name]
		if res.Type != (iam.Role{}).ResourceType() {
			continue
		}
		policies, _ := res.Properties["Policies"].([]any)
		for _, p := range policies {
			policy, _ := p.(map[string]any)
			doc, _ := policy["PolicyDocument"].(map[string]any)
			statements, _ := doc["Statement"].([]any)
			for i, s := range statements {
				statement, _ := s.(map[string]any)
				if statement["Effect"] != intrinsics.EffectAllow || !matchesAll(statement["Resource"]) {
					continue
				}
				issues = append(issues, wetwire.LintIssue{
					Template: file,
					Resource: name,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("policy %v statement %d allows actions on every resource", policy["PolicyName"], i),
					Rule:     r.ID(),
				})
			}
		}
	}
	return issues
}

func matchesAll(v any) bool {
	switch val := v.(type) {
	case string:
		return val == intrinsics.AllResources
	case []any:
		for _, x := range val {
			if x == intrinsics.AllResources {
				return true
			}
		}
	}
	return false
}

// OpenAccessList flags access list entries that admit any address.
type OpenAccessList struct{}

func (r OpenAccessList) ID() string { return "MAS002" }
func (r OpenAccessList) Description() string {
	return "IP access list open to the whole internet"
}

func (r OpenAccessList) Check(file string, t *wetwire.Template) []wetwire.LintIssue {
	var issues []wetwire.LintIssue
	for _, name := range sortedResources(t) {
		res := t.Resources[name]
		if res.Type != mongodbatlas.TypeProjectIpAccessList {
			continue
		}
		entries, _ := res.Properties["AccessList"].([]any)
		for _, e := range entries {
			entry, _ := e.(map[string]any)
			if entry["CIDRBlock"] != "0.0.0.0/0" {
				continue
			}
			issues = append(issues, wetwire.LintIssue{
				Template: file,
				Resource: name,
				Severity: SeverityWarning,
				Message:  "access list admits 0.0.0.0/0",
				Rule:     r.ID(),
			})
		}
	}
	return issues
}

// UnresolvedPlaceholder reports {{TOKEN}} placeholders left for the
// render step.
type UnresolvedPlaceholder struct{}

func (r UnresolvedPlaceholder) ID() string { return "MAS003" }
func (r UnresolvedPlaceholder) Description() string {
	return "Unresolved {{TOKEN}} placeholder"
}

func (r UnresolvedPlaceholder) Check(file string, t *wetwire.Template) []wetwire.LintIssue {
	var issues []wetwire.LintIssue
	for _, name := range sortedResources(t) {
		var found []string
		collectStrings(t.Resources[name].Properties, func(s string) {
			found = append(found, render.Placeholders([]byte(s))...)
		})
		if len(found) == 0 {
			continue
		}
		sort.Strings(found)
		found = compact(found)
		issues = append(issues, wetwire.LintIssue{
			Template: file,
			Resource: name,
			Severity: SeverityInfo,
			Message:  "placeholders need values before deployment: " + strings.Join(found, ", "),
			Rule:     r.ID(),
		})
	}
	return issues
}

func collectStrings(v any, fn func(string)) {
	switch val := v.(type) {
	case string:
		fn(val)
	case map[string]any:
		for _, x := range val {
			collectStrings(x, fn)
		}
	case []any:
		for _, x := range val {
			collectStrings(x, fn)
		}
	}
}

func compact(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// LiteralPassword flags database user passwords written into the template.
type LiteralPassword struct{}

func (r LiteralPassword) ID() string { return "MAS004" }
func (r LiteralPassword) Description() string {
	return "Literal database user password"
}

func (r LiteralPassword) Check(file string, t *wetwire.Template) []wetwire.LintIssue {
	var issues []wetwire.LintIssue
	for _, name := range sortedResources(t) {
		res := t.Resources[name]
		if res.Type != mongodbatlas.TypeDatabaseUser {
			continue
		}
		password, ok := res.Properties["Password"].(string)
		if !ok || password == "" || len(render.Placeholders([]byte(password))) > 0 {
			continue
		}
		issues = append(issues, wetwire.LintIssue{
			Template: file,
			Resource: name,
			Severity: SeverityError,
			Message:  "password is a literal; use a {{TOKEN}} placeholder or a dynamic reference",
			Rule:     r.ID(),
		})
	}
	return issues
}

// NestedStackTemplateURL flags nested stacks CloudFormation cannot fetch.
type NestedStackTemplateURL struct{}

func (r NestedStackTemplateURL) ID() string { return "MAS006" }
func (r NestedStackTemplateURL) Description() string {
	return "Nested stack without a TemplateURL"
}

func (r NestedStackTemplateURL) Check(file string, t *wetwire.Template) []wetwire.LintIssue {
	var issues []wetwire.LintIssue
	for _, name := range sortedResources(t) {
		res := t.Resources[name]
		if res.Type != cloudformation.StackResourceType {
			continue
		}
		if url, ok := res.Properties["TemplateURL"]; ok && url != "" && url != nil {
			continue
		}
		issues = append(issues, wetwire.LintIssue{
			Template: file,
			Resource: name,
			Severity: SeverityError,
			Message:  "nested stack has no TemplateURL",
			Rule:     r.ID(),
		})
	}
	return issues
}

// MissingActivation compares the Atlas types used across an assembly with
// the types it activates. A used type without activation fails deployment;
// an activation nothing uses is reported as a warning.
type MissingActivation struct{}

func (r MissingActivation) ID() string { return "MAS005" }
func (r MissingActivation) Description() string {
	return "Atlas type used without a matching type activation"
}

func (r MissingActivation) CheckAssembly(assembly *synth.Assembly) []wetwire.LintIssue {
	type location struct{ file, resource string }
	used := make(map[string]location)
	activated := make(map[string]location)

	for _, s := range assembly.Stacks {
		if s.Template == nil {
			continue
		}
		for _, name := range sortedResources(s.Template) {
			res := s.Template.Resources[name]
			switch {
			case mongodbatlas.IsAtlasType(res.Type):
				if _, ok := used[res.Type]; !ok {
					used[res.Type] = location{s.TemplateFile, name}
				}
			case res.Type == cloudformation.TypeActivationResourceType:
				if typeName, ok := activatedType(res.Properties["PublicTypeArn"]); ok {
					activated[typeName] = location{s.TemplateFile, name}
				}
			}
		}
	}

	var issues []wetwire.LintIssue
	for typeName, loc := range used {
		if _, ok := activated[typeName]; ok {
			continue
		}
		issues = append(issues, wetwire.LintIssue{
			Template: loc.file,
			Resource: loc.resource,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s is not activated in this deployment", typeName),
			Rule:     r.ID(),
		})
	}
	for typeName, loc := range activated {
		if _, ok := used[typeName]; ok || !mongodbatlas.IsAtlasType(typeName) {
			continue
		}
		issues = append(issues, wetwire.LintIssue{
			Template: loc.file,
			Resource: loc.resource,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%s is activated but not used", typeName),
			Rule:     r.ID(),
		})
	}
	return issues
}

// activatedType extracts the type name from a public type ARN, e.g.
// ".../type/resource/<publisher>/MongoDB-Atlas-Project".
func activatedType(v any) (string, bool) {
	arn, ok := v.(string)
	if !ok {
		return "", false
	}
	i := strings.LastIndex(arn, "/")
	if i < 0 || i == len(arn)-1 {
		return "", false
	}
	return strings.ReplaceAll(arn[i+1:], "-", "::"), true
}
