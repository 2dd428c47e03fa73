package intrinsics

import (
	"encoding/json"
	"strconv"
)

// PolicyVersion is the IAM policy language version used by every document.
const PolicyVersion = "2012-10-17"

const (
	EffectAllow = "Allow"
	EffectDeny  = "Deny"
)

// AllResources is the wildcard policy resource.
const AllResources = "*"

// PolicyDocument represents an IAM policy document.
//
//	PolicyDocument{
//	    Version:   PolicyVersion,
//	    Statement: []PolicyStatement{{Effect: EffectAllow, Action: []string{"iam:GetRole"}, Resource: AllResources}},
//	}
type PolicyDocument struct {
	Version   string            `json:"Version,omitempty"`
	Statement []PolicyStatement `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...PolicyStatement) PolicyDocument {
	return PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// AssignSids gives every statement without a Sid its index as Sid
// ("0", "1", ...). Statements that already carry a Sid are left alone.
func (d PolicyDocument) AssignSids() PolicyDocument {
	statements := make([]PolicyStatement, len(d.Statement))
	for i, s := range d.Statement {
		if s.Sid == "" {
			s.Sid = strconv.Itoa(i)
		}
		statements[i] = s
	}
	d.Statement = statements
	return d
}

// PolicyStatement represents an IAM policy statement.
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
}

// AssumeRoleStatement allows the given service principals to assume a role.
func AssumeRoleStatement(services ...string) PolicyStatement {
	principal := make(ServicePrincipal, len(services))
	for i, s := range services {
		principal[i] = s
	}
	return PolicyStatement{
		Effect:    EffectAllow,
		Principal: principal,
		Action:    "sts:AssumeRole",
	}
}

// ServicePrincipal represents a service principal (e.g., lambda.amazonaws.com).
// Serializes to {"Service": ...} format.
//
//	ServicePrincipal{"lambda.amazonaws.com"}
//	ServicePrincipal{"cloudformation.amazonaws.com", "lambda.amazonaws.com"}
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}

// Services returns the principal entries that are plain strings.
func (p ServicePrincipal) Services() []string {
	var out []string
	for _, v := range p {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
