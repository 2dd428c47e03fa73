// Package cloudformation contains the AWS::CloudFormation resource types
// used to compose stacks and activate third-party resource types.
package cloudformation

// CloudFormation type names.
const (
	StackResourceType          = "AWS::CloudFormation::Stack"
	TypeActivationResourceType = "AWS::CloudFormation::TypeActivation"
)

// Stack represents AWS::CloudFormation::Stack, a nested stack.
type Stack struct {
	TemplateURL      any            `json:"TemplateURL"`
	Parameters       map[string]any `json:"Parameters,omitempty"`
	TimeoutInMinutes int            `json:"TimeoutInMinutes,omitempty"`
}

// ResourceType returns the CloudFormation type for Stack.
func (r Stack) ResourceType() string {
	return StackResourceType
}

// TypeActivation represents AWS::CloudFormation::TypeActivation.
type TypeActivation struct {
	PublicTypeArn    any  `json:"PublicTypeArn,omitempty"`
	ExecutionRoleArn any  `json:"ExecutionRoleArn,omitempty"`
	AutoUpdate       bool `json:"AutoUpdate,omitempty"`
	TypeNameAlias    any  `json:"TypeNameAlias,omitempty"`
}

// ResourceType returns the CloudFormation type for TypeActivation.
func (r TypeActivation) ResourceType() string {
	return TypeActivationResourceType
}
