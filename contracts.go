// Package wetwire_atlas provides Go types for declaring MongoDB Atlas deployments
// as CloudFormation stacks.
//
// Resources are plain Go structs added to stacks of a construct tree:
//
//	project, _ := stack.AddResource("AtlasProject", &mongodbatlas.Project{
//	    Name:  "Demo",
//	    OrgId: "{{ATLAS_ORG_ID}}",
//	})
//
//	stack.AddResource("AtlasCluster", &mongodbatlas.Cluster{
//	    ProjectId: project.GetAtt("Id"),  // GetAtt reference
//	})
//
// The wetwire-atlas CLI synthesizes the tree into a set of CloudFormation templates
// (one per stack) that CloudFormation then provisions.
package wetwire_atlas

import (
	"encoding/json"
)

// Resource represents a CloudFormation resource.
// All resource types (iam.Role, mongodbatlas.Cluster, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "MongoDB::Atlas::Project")
	ResourceType() string
}

// AttrRef represents a reference to a resource or one of its attributes.
// Resource handles hand these out; they can be used as any property value.
//
// Example:
//
//	role, _ := stack.AddResource("ExecutionRole", &iam.Role{...})
//	activation := cloudformation.TypeActivation{
//	    ExecutionRoleArn: role.GetAtt("Arn"),  // AttrRef
//	}
//
// When serialized inside its own stack, AttrRef becomes:
//
//	{"Fn::GetAtt": ["ExecutionRole", "Arn"]}
//
// or {"Ref": "ExecutionRole"} when Attribute is empty. References that cross
// stack boundaries are rewritten by the synthesizer into nested stack
// Outputs and Parameters.
type AttrRef struct {
	// Stack is the path of the stack that owns the referenced resource
	Stack string
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "Id"); empty means Ref
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt or Ref syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	if a.Attribute == "" {
		return json.Marshal(map[string]string{"Ref": a.Resource})
	}
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// IsRef reports whether the reference resolves with Ref rather than Fn::GetAtt.
func (a AttrRef) IsRef() bool {
	return a.Attribute == ""
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type        string `json:"Type" yaml:"Type"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default     any    `json:"Default,omitempty" yaml:"Default,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string        `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any           `json:"Value" yaml:"Value"`
	Export      *OutputExport `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// OutputExport names a cross-stack export.
type OutputExport struct {
	Name string `json:"Name" yaml:"Name"`
}

// SynthResult is the JSON output from `wetwire-atlas synth`.
type SynthResult struct {
	Success   bool     `json:"success"`
	Directory string   `json:"directory,omitempty"`
	Templates []string `json:"templates,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// LintResult is the JSON output from `wetwire-atlas lint`.
type LintResult struct {
	Success bool        `json:"success"`
	Issues  []LintIssue `json:"issues,omitempty"`
}

// LintIssue is a single linting issue.
type LintIssue struct {
	Template string `json:"template"`
	Resource string `json:"resource,omitempty"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// ValidateResult is the JSON output from `wetwire-atlas validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Templates int      `json:"templates"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `wetwire-atlas list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Stack string `json:"stack"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// SchemaError describes a schema violation found in a template.
type SchemaError struct {
	Resource string `json:"resource"`
	Property string `json:"property"`
	Message  string `json:"message"`
}

// DiffEntry is one resource-level difference between two templates.
type DiffEntry struct {
	Template string   `json:"template,omitempty"`
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff groups resource differences by kind of change.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffSummary counts differences.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}
