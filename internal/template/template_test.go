package template

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-atlas-go"
)

func TestBuilder_Build_SimpleResource(t *testing.T) {
	builder := NewBuilder("Atlas project")
	require.NoError(t, builder.AddResource("AtlasProject", Entry{
		Type: "MongoDB::Atlas::Project",
		Properties: map[string]any{
			"Name":  "Demo",
			"OrgId": "{{ATLAS_ORG_ID}}",
		},
	}))

	template, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", template.AWSTemplateFormatVersion)
	assert.Equal(t, "Atlas project", template.Description)
	assert.Len(t, template.Resources, 1)
	assert.Nil(t, template.Parameters)
	assert.Nil(t, template.Outputs)

	project := template.Resources["AtlasProject"]
	assert.Equal(t, "MongoDB::Atlas::Project", project.Type)
	assert.Equal(t, "Demo", project.Properties["Name"])
	assert.Empty(t, project.DependsOn)
}

func TestBuilder_Build_DependsOnOnlyForExplicitEdges(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.AddResource("PrerequisitesStackNestedStackResource", Entry{
		Type: "AWS::CloudFormation::Stack",
	}))
	require.NoError(t, builder.AddResource("ProjectStackNestedStackResource", Entry{
		Type:      "AWS::CloudFormation::Stack",
		DependsOn: []string{"PrerequisitesStackNestedStackResource"},
	}))
	require.NoError(t, builder.AddResource("ClusterStackNestedStackResource", Entry{
		Type:       "AWS::CloudFormation::Stack",
		References: []string{"ProjectStackNestedStackResource"},
	}))

	template, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"PrerequisitesStackNestedStackResource"},
		template.Resources["ProjectStackNestedStackResource"].DependsOn)
	assert.Empty(t, template.Resources["ClusterStackNestedStackResource"].DependsOn)
}

func TestBuilder_Build_UnknownDependsOn(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.AddResource("A", Entry{Type: "T", DependsOn: []string{"Missing"}}))

	_, err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing")
}

func TestBuilder_AddResource_Duplicate(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.AddResource("A", Entry{Type: "T"}))
	assert.ErrorIs(t, builder.AddResource("A", Entry{Type: "T"}), ErrDuplicateResource)
}

func TestBuilder_ParametersAndOutputs(t *testing.T) {
	builder := NewBuilder("")
	builder.AddParameter("ProjectStackAtlasProjectId", wetwire.Parameter{Type: "String"})
	builder.AddOutput("AtlasProjectId", wetwire.Output{
		Value: map[string]any{"Fn::GetAtt": []any{"AtlasProject", "Id"}},
	})
	require.NoError(t, builder.AddResource("AtlasProject", Entry{Type: "MongoDB::Atlas::Project"}))

	template, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "String", template.Parameters["ProjectStackAtlasProjectId"].Type)
	assert.Contains(t, template.Outputs, "AtlasProjectId")
}

func TestBuilder_Order(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.AddResource("C", Entry{Type: "T", References: []string{"B"}}))
	require.NoError(t, builder.AddResource("B", Entry{Type: "T", DependsOn: []string{"A"}}))
	require.NoError(t, builder.AddResource("A", Entry{Type: "T"}))
	require.NoError(t, builder.AddResource("D", Entry{Type: "T"}))

	order, err := builder.Order()
	require.NoError(t, err)

	assert.Less(t, indexOf(order, "A"), indexOf(order, "B"))
	assert.Less(t, indexOf(order, "B"), indexOf(order, "C"))
	assert.Len(t, order, 4)
}

func TestBuilder_Order_Deterministic(t *testing.T) {
	builder := NewBuilder("")
	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		require.NoError(t, builder.AddResource(name, Entry{Type: "T"}))
	}

	order, err := builder.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, order)
}

func TestBuilder_Order_IgnoresSelfAndExternalReferences(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.AddResource("A", Entry{Type: "T", References: []string{"A", "Elsewhere"}}))

	order, err := builder.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, order)
}

func TestBuilder_DetectCycle(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.AddResource("A", Entry{Type: "T", References: []string{"B"}}))
	require.NoError(t, builder.AddResource("B", Entry{Type: "T", References: []string{"C"}}))
	require.NoError(t, builder.AddResource("C", Entry{Type: "T", DependsOn: []string{"A"}}))

	_, err := builder.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)
	assert.Contains(t, err.Error(), "A")
	assert.Contains(t, err.Error(), "→")
}

func TestToJSON(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.AddResource("AtlasProject", Entry{
		Type:       "MongoDB::Atlas::Project",
		Properties: map[string]any{"Name": "Demo"},
	}))
	template, err := builder.Build()
	require.NoError(t, err)

	data, err := ToJSON(template)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "2010-09-09", parsed["AWSTemplateFormatVersion"])
	assert.True(t, strings.Contains(string(data), "\n  \"Resources\""), "output is indented")
}

func TestToYAML(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.AddResource("AtlasProject", Entry{
		Type:       "MongoDB::Atlas::Project",
		Properties: map[string]any{"Name": "Demo"},
	}))
	template, err := builder.Build()
	require.NoError(t, err)

	data, err := ToYAML(template)
	require.NoError(t, err)

	yaml := string(data)
	assert.Contains(t, yaml, "AWSTemplateFormatVersion:")
	assert.Contains(t, yaml, "2010-09-09")
	assert.Contains(t, yaml, "Type: MongoDB::Atlas::Project")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "json",
			input: `{"AWSTemplateFormatVersion":"2010-09-09","Resources":{"AtlasProject":{"Type":"MongoDB::Atlas::Project","Properties":{"Name":"Demo"}}}}`,
		},
		{
			name: "yaml",
			input: `AWSTemplateFormatVersion: "2010-09-09"
Resources:
  AtlasProject:
    Type: MongoDB::Atlas::Project
    Properties:
      Name: Demo
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, "MongoDB::Atlas::Project", template.Resources["AtlasProject"].Type)
			assert.Equal(t, "Demo", template.Resources["AtlasProject"].Properties["Name"])
		})
	}

	_, err := Parse([]byte("::: not a template"))
	assert.Error(t, err)
}

func indexOf(slice []string, item string) int {
	for i, s := range slice {
		if s == item {
			return i
		}
	}
	return -1
}
