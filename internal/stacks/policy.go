package stacks

import "github.com/lex00/wetwire-atlas-go/intrinsics"

// ExecutionRolePolicyName names the execution role's inline policy.
const ExecutionRolePolicyName = "ResourceTypePolicy"

// TrustedServices may assume the execution role.
var TrustedServices = []string{
	"cloudformation.amazonaws.com",
	"resources.cloudformation.amazonaws.com",
	"lambda.amazonaws.com",
}

// ExecutionRoleActions is the allow-list the Atlas resource handlers need.
var ExecutionRoleActions = []string{
	"secretsmanager:CreateSecret",
	"secretsmanager:CreateSecretInput",
	"secretsmanager:DescribeSecret",
	"secretsmanager:GetSecretValue",
	"secretsmanager:PutSecretValue",
	"secretsmanager:UpdateSecretVersionStage",
	"ec2:CreateVpcEndpoint",
	"ec2:DeleteVpcEndpoints",
	"cloudformation:CreateResource",
	"cloudformation:DeleteResource",
	"cloudformation:GetResource",
	"cloudformation:GetResourceRequestStatus",
	"cloudformation:ListResources",
	"cloudformation:UpdateResource",
	"iam:AttachRolePolicy",
	"iam:CreateRole",
	"iam:DeleteRole",
	"iam:GetRole",
	"iam:GetRolePolicy",
	"iam:ListAttachedRolePolicies",
	"iam:ListRolePolicies",
	"iam:PutRolePolicy",
}

// executionRoleTrustPolicy lets TrustedServices assume the role.
func executionRoleTrustPolicy() intrinsics.PolicyDocument {
	return intrinsics.NewPolicyDocument(intrinsics.AssumeRoleStatement(TrustedServices...))
}

// executionRolePolicy is the inline policy with one Allow statement over
// every resource.
func executionRolePolicy() intrinsics.PolicyDocument {
	return intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
		Effect:   intrinsics.EffectAllow,
		Action:   append([]string(nil), ExecutionRoleActions...),
		Resource: intrinsics.AllResources,
	}).AssignSids()
}
