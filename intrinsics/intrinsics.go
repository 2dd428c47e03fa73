// Package intrinsics provides CloudFormation intrinsic functions.
//
// The core intrinsic types are re-exported from cloudformation-schema-go;
// policy.go adds the IAM policy document types used by the execution role.
//
//	Ref{"AtlasProject"} → {"Ref": "AtlasProject"}
//	Sub{"${AWS::Region}-assets"} → {"Fn::Sub": "${AWS::Region}-assets"}
//	Join{"-", []any{"a", "b"}} → {"Fn::Join": ["-", ["a", "b"]]}
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join
)

// NestedOutput returns the GetAtt that reads an output of a nested stack
// from its parent template.
//
//	NestedOutput("ProjectStackNestedStackResource", "AtlasProjectId")
//	→ {"Fn::GetAtt": ["ProjectStackNestedStackResource", "Outputs.AtlasProjectId"]}
func NestedOutput(nestedStackLogicalID, outputName string) GetAtt {
	return GetAtt{LogicalName: nestedStackLogicalID, Attribute: "Outputs." + outputName}
}

// IsIntrinsic reports whether a serialized value is a single-key intrinsic
// function map such as {"Ref": ...} or {"Fn::GetAtt": ...}.
func IsIntrinsic(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	for key := range m {
		return key == "Ref" || len(key) > 4 && key[:4] == "Fn::"
	}
	return false
}
