package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferences(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected []Reference
	}{
		{
			name:     "ref",
			value:    map[string]any{"Ref": "ProjectId"},
			expected: []Reference{{Target: "ProjectId"}},
		},
		{
			name:     "getatt list",
			value:    map[string]any{"Fn::GetAtt": []any{"AtlasProject", "Id"}},
			expected: []Reference{{Target: "AtlasProject", Attribute: "Id"}},
		},
		{
			name:     "getatt string",
			value:    map[string]any{"Fn::GetAtt": "ExecutionRole.Arn"},
			expected: []Reference{{Target: "ExecutionRole", Attribute: "Arn"}},
		},
		{
			name:     "nested output",
			value:    map[string]any{"Fn::GetAtt": []any{"ProjectStackNestedStackResource", "Outputs.DemoStackAtlasProjectId"}},
			expected: []Reference{{Target: "ProjectStackNestedStackResource", Attribute: "Outputs.DemoStackAtlasProjectId"}},
		},
		{
			name: "sub with pseudo parameters",
			value: map[string]any{
				"Fn::Sub": "https://s3.${AWS::Region}.${AWS::URLSuffix}/bucket/${Key}",
			},
			expected: []Reference{
				{Target: "AWS::Region"},
				{Target: "AWS::URLSuffix"},
				{Target: "Key"},
			},
		},
		{
			name: "sub with local variables",
			value: map[string]any{
				"Fn::Sub": []any{
					"${Name}-${Role.Arn}-${!Literal}",
					map[string]any{"Name": map[string]any{"Ref": "ClusterName"}},
				},
			},
			expected: []Reference{
				{Target: "ClusterName"},
				{Target: "Role", Attribute: "Arn"},
			},
		},
		{
			name: "nested properties deduplicated",
			value: map[string]any{
				"ProjectId": map[string]any{"Ref": "ProjectId"},
				"Specs": []any{
					map[string]any{"ProjectId": map[string]any{"Ref": "ProjectId"}},
					"M10",
				},
			},
			expected: []Reference{{Target: "ProjectId"}},
		},
		{
			name:     "plain values",
			value:    map[string]any{"Name": "Demo", "Ref": 3, "Count": 2},
			expected: []Reference{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, References(tt.value))
		})
	}
}

func TestReference_Kinds(t *testing.T) {
	assert.True(t, Reference{Target: "AWS::Region"}.IsPseudo())
	assert.True(t, Reference{Target: "AWS::Region"}.IsRef())
	assert.False(t, Reference{Target: "Role", Attribute: "Arn"}.IsRef())
	assert.False(t, Reference{Target: "Role"}.IsPseudo())
}
