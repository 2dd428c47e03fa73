package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/construct"
	"github.com/lex00/wetwire-atlas-go/internal/stacks"
	"github.com/lex00/wetwire-atlas-go/internal/template"
	"github.com/lex00/wetwire-atlas-go/resources/mongodbatlas"
)

func demoApp(t *testing.T, variant stacks.Variant) *construct.App {
	t.Helper()
	app := construct.NewApp()
	_, err := stacks.NewDeploymentStack(app, "DemoStack", stacks.DeploymentProps{
		Variant: variant,
		Region:  "eu-west-1",
		Project: stacks.ProjectProps{
			Name:  "Demo",
			OrgID: "{{ATLAS_ORG_ID}}",
			DatabaseUser: &stacks.DatabaseUserProps{
				DatabaseName: "admin",
				Username:     "test",
				Password:     "{{DB_PASSWORD}}",
				Roles:        []stacks.DatabaseRole{{DatabaseName: "admin", RoleName: "readWriteAnyDatabase"}},
			},
			AccessList: []string{"0.0.0.0/0"},
			Network: &stacks.NetworkProps{
				AtlasCidrBlock: "192.168.248.0/21",
				VpcID:          "{{AWS_VPC_ID}}",
				VpcCidrBlock:   "10.0.0.0/24",
				AccountID:      "{{AWS_ACCOUNT_ID}}",
			},
		},
		Cluster: stacks.ClusterProps{Name: "Demo"},
	})
	require.NoError(t, err)
	return app
}

func countDependsOn(tmpl *wetwire.Template) int {
	n := 0
	for _, r := range tmpl.Resources {
		n += len(r.DependsOn)
	}
	return n
}

func TestSynthesize_Full(t *testing.T) {
	assembly, err := Synthesize(demoApp(t, stacks.VariantFull), Options{})
	require.NoError(t, err)

	require.Len(t, assembly.Stacks, 4)
	paths := make([]string, len(assembly.Stacks))
	for i, s := range assembly.Stacks {
		paths[i] = s.Path
	}
	assert.Equal(t, []string{
		"DemoStack",
		"DemoStack/PrerequisitesStack",
		"DemoStack/ProjectStack",
		"DemoStack/ClusterStack",
	}, paths)

	root, ok := assembly.Stack("DemoStack")
	require.True(t, ok)
	assert.Equal(t, "DemoStack.template.json", root.TemplateFile)
	assert.Empty(t, root.ObjectKey)

	nestedCount := 0
	for _, r := range root.Template.Resources {
		if r.Type == "AWS::CloudFormation::Stack" {
			nestedCount++
		}
	}
	assert.Equal(t, 3, nestedCount)
	assert.Equal(t, 1, countDependsOn(root.Template))
	assert.Equal(t, []string{"PrerequisitesStackNestedStackResource"},
		root.Template.Resources["ProjectStackNestedStackResource"].DependsOn)
}

func TestSynthesize_ProjectIDHandOff(t *testing.T) {
	assembly, err := Synthesize(demoApp(t, stacks.VariantFull), Options{})
	require.NoError(t, err)

	project, _ := assembly.Stack("DemoStack/ProjectStack")
	cluster, _ := assembly.Stack("DemoStack/ClusterStack")
	root, _ := assembly.Stack("DemoStack")

	// producer output
	output, ok := project.Template.Outputs["DemoStackAtlasProjectId"]
	require.True(t, ok)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"DemoStackAtlasProject", "Id"}}, output.Value)

	// consumer parameter and reference
	param, ok := cluster.Template.Parameters["ProjectStackDemoStackAtlasProjectId"]
	require.True(t, ok)
	assert.Equal(t, "String", param.Type)
	clusterProps := cluster.Template.Resources["DemoStackAtlasCluster"].Properties
	assert.Equal(t, map[string]any{"Ref": "ProjectStackDemoStackAtlasProjectId"}, clusterProps["ProjectId"])

	// parent wiring
	nested := root.Template.Resources["ClusterStackNestedStackResource"]
	params := nested.Properties["Parameters"].(map[string]any)
	assert.Equal(t, map[string]any{
		"Fn::GetAtt": []any{"ProjectStackNestedStackResource", "Outputs.DemoStackAtlasProjectId"},
	}, params["ProjectStackDemoStackAtlasProjectId"])
	// the hand-off orders the stacks without an explicit DependsOn
	assert.Empty(t, nested.DependsOn)
}

func TestSynthesize_SameStackReferences(t *testing.T) {
	assembly, err := Synthesize(demoApp(t, stacks.VariantFull), Options{})
	require.NoError(t, err)

	project, _ := assembly.Stack("DemoStack/ProjectStack")
	peering := project.Template.Resources["DemoStackAtlasNetworkPeering"].Properties
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"DemoStackAtlasNetworkContainer", "Id"}}, peering["ContainerId"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"DemoStackAtlasProject", "Id"}}, peering["ProjectId"])
	assert.Empty(t, project.Template.Parameters)

	prereq, _ := assembly.Stack("DemoStack/PrerequisitesStack")
	activations := 0
	for _, r := range prereq.Template.Resources {
		if r.Type != "AWS::CloudFormation::TypeActivation" {
			continue
		}
		activations++
		assert.Equal(t,
			map[string]any{"Fn::GetAtt": []any{"DemoStackMongoDBAtlasExecutionRole", "Arn"}},
			r.Properties["ExecutionRoleArn"])
	}
	assert.Equal(t, 6, activations)
}

func TestSynthesize_ActivationCounts(t *testing.T) {
	tests := []struct {
		variant     stacks.Variant
		stacks      int
		activations int
		dependsOn   int
	}{
		{stacks.VariantFull, 4, 6, 1},
		{stacks.VariantPartial, 3, 1, 1},
		{stacks.VariantSkeleton, 2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			assembly, err := Synthesize(demoApp(t, tt.variant), Options{})
			require.NoError(t, err)
			assert.Len(t, assembly.Stacks, tt.stacks)

			prereq, ok := assembly.Stack("DemoStack/PrerequisitesStack")
			require.True(t, ok)
			activations := 0
			for _, r := range prereq.Template.Resources {
				if r.Type == "AWS::CloudFormation::TypeActivation" {
					activations++
				}
			}
			assert.Equal(t, tt.activations, activations)

			root, _ := assembly.Stack("DemoStack")
			assert.Equal(t, tt.dependsOn, countDependsOn(root.Template))
		})
	}
}

func TestSynthesize_TemplateURL(t *testing.T) {
	assembly, err := Synthesize(demoApp(t, stacks.VariantFull), Options{
		AssetBucket: "assets-bucket",
		AssetPrefix: "atlas/",
	})
	require.NoError(t, err)

	root, _ := assembly.Stack("DemoStack")
	for _, nested := range assembly.Nested() {
		assert.True(t, strings.HasPrefix(nested.ObjectKey, "atlas/"), nested.ObjectKey)
		assert.Equal(t, "atlas/"+nested.Hash+".json", nested.ObjectKey)

		res := root.Template.Resources[nested.NestedStackLogicalID]
		assert.Equal(t, map[string]any{
			"Fn::Sub": "https://s3.${AWS::Region}.${AWS::URLSuffix}/assets-bucket/" + nested.ObjectKey,
		}, res.Properties["TemplateURL"])
	}
	assert.Equal(t, "assets-bucket", assembly.AssetBucket)
}

func TestSynthesize_DefaultBucket(t *testing.T) {
	assembly, err := Synthesize(demoApp(t, stacks.VariantSkeleton), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultAssetBucket, assembly.AssetBucket)
}

func TestSynthesize_Deterministic(t *testing.T) {
	first, err := Synthesize(demoApp(t, stacks.VariantFull), Options{})
	require.NoError(t, err)
	second, err := Synthesize(demoApp(t, stacks.VariantFull), Options{})
	require.NoError(t, err)

	for i := range first.Stacks {
		assert.Equal(t, first.Stacks[i].Hash, second.Stacks[i].Hash, first.Stacks[i].Path)
	}
}

func TestSynthesize_HashFollowsContent(t *testing.T) {
	first, err := Synthesize(demoApp(t, stacks.VariantPartial), Options{})
	require.NoError(t, err)
	second, err := Synthesize(demoApp(t, stacks.VariantFull), Options{})
	require.NoError(t, err)

	a, _ := first.Stack("DemoStack/PrerequisitesStack")
	b, _ := second.Stack("DemoStack/PrerequisitesStack")
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestSynthesize_ParentToChild(t *testing.T) {
	app := construct.NewApp()
	root, _ := construct.NewStack(app, "Root", nil)
	project, err := root.AddResource("Project", &mongodbatlas.Project{Name: "Demo", OrgId: "org"})
	require.NoError(t, err)
	child, _ := construct.NewNestedStack(root, "Child", nil)
	_, err = child.AddResource("Cluster", &mongodbatlas.Cluster{ProjectId: project.GetAtt("Id"), Name: "Demo"})
	require.NoError(t, err)

	assembly, err := Synthesize(app, Options{})
	require.NoError(t, err)

	rootArtifact, _ := assembly.Stack("Root")
	nested := rootArtifact.Template.Resources["ChildNestedStackResource"]
	params := nested.Properties["Parameters"].(map[string]any)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"Project", "Id"}}, params["ProjectId"])

	childArtifact, _ := assembly.Stack("Root/Child")
	assert.Contains(t, childArtifact.Template.Parameters, "ProjectId")
	assert.Equal(t, map[string]any{"Ref": "ProjectId"},
		childArtifact.Template.Resources["Cluster"].Properties["ProjectId"])
}

func TestSynthesize_ChildToParent(t *testing.T) {
	app := construct.NewApp()
	root, _ := construct.NewStack(app, "Root", nil)
	child, _ := construct.NewNestedStack(root, "Child", nil)
	project, err := child.AddResource("Project", &mongodbatlas.Project{Name: "Demo", OrgId: "org"})
	require.NoError(t, err)
	_, err = root.AddResource("Cluster", &mongodbatlas.Cluster{ProjectId: project.GetAtt("Id"), Name: "Demo"})
	require.NoError(t, err)

	assembly, err := Synthesize(app, Options{})
	require.NoError(t, err)

	rootArtifact, _ := assembly.Stack("Root")
	assert.Equal(t,
		map[string]any{"Fn::GetAtt": []any{"ChildNestedStackResource", "Outputs.ProjectId"}},
		rootArtifact.Template.Resources["Cluster"].Properties["ProjectId"])

	order, err := orderOf(rootArtifact.Template)
	require.NoError(t, err)
	assert.Equal(t, []string{"ChildNestedStackResource", "Cluster"}, order)

	childArtifact, _ := assembly.Stack("Root/Child")
	assert.Contains(t, childArtifact.Template.Outputs, "ProjectId")
}

func TestSynthesize_RefOutputName(t *testing.T) {
	app := construct.NewApp()
	root, _ := construct.NewStack(app, "Root", nil)
	a, _ := construct.NewNestedStack(root, "A", nil)
	b, _ := construct.NewNestedStack(root, "B", nil)
	project, _ := a.AddResource("Project", &mongodbatlas.Project{Name: "Demo", OrgId: "org"})
	_, err := b.AddResource("Cluster", &mongodbatlas.Cluster{ProjectId: project.Ref(), Name: "Demo"})
	require.NoError(t, err)

	assembly, err := Synthesize(app, Options{})
	require.NoError(t, err)

	aArtifact, _ := assembly.Stack("Root/A")
	assert.Equal(t, map[string]any{"Ref": "Project"}, aArtifact.Template.Outputs["ProjectRef"].Value)
	bArtifact, _ := assembly.Stack("Root/B")
	assert.Contains(t, bArtifact.Template.Parameters, "AProjectRef")
}

func TestSynthesize_UnsupportedReference(t *testing.T) {
	app := construct.NewApp()
	root, _ := construct.NewStack(app, "Root", nil)
	a, _ := construct.NewNestedStack(root, "A", nil)
	b, _ := construct.NewNestedStack(root, "B", nil)
	deep, _ := construct.NewNestedStack(b, "Deep", nil)
	project, _ := a.AddResource("Project", &mongodbatlas.Project{Name: "Demo", OrgId: "org"})
	_, err := deep.AddResource("Cluster", &mongodbatlas.Cluster{ProjectId: project.GetAtt("Id"), Name: "Demo"})
	require.NoError(t, err)

	_, err = Synthesize(app, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedReference)
}

func TestSynthesize_UnknownTargets(t *testing.T) {
	tests := []struct {
		name     string
		ref      wetwire.AttrRef
		expected error
	}{
		{"unknown stack", wetwire.AttrRef{Stack: "Nowhere", Resource: "Project", Attribute: "Id"}, ErrUnknownStack},
		{"unknown resource", wetwire.AttrRef{Stack: "Root", Resource: "Missing", Attribute: "Id"}, ErrUnknownResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := construct.NewApp()
			root, _ := construct.NewStack(app, "Root", nil)
			_, err := root.AddResource("Cluster", &mongodbatlas.Cluster{ProjectId: tt.ref, Name: "Demo"})
			require.NoError(t, err)

			_, err = Synthesize(app, Options{})
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestSynthesize_StackCycle(t *testing.T) {
	app := construct.NewApp()
	root, _ := construct.NewStack(app, "Root", nil)
	a, _ := construct.NewNestedStack(root, "A", nil)
	b, _ := construct.NewNestedStack(root, "B", nil)
	require.NoError(t, a.AddDependency(b))
	require.NoError(t, b.AddDependency(a))

	_, err := Synthesize(app, Options{})
	assert.ErrorIs(t, err, template.ErrCircularDependency)
}

func TestSynthesize_ExplicitOutputs(t *testing.T) {
	app := construct.NewApp()
	root, _ := construct.NewStack(app, "Root", nil)
	project, _ := root.AddResource("Project", &mongodbatlas.Project{Name: "Demo", OrgId: "org"})
	require.NoError(t, root.AddOutput("AtlasProjectId", project.GetAtt("Id"), "Atlas project id"))

	assembly, err := Synthesize(app, Options{})
	require.NoError(t, err)

	rootArtifact, _ := assembly.Stack("Root")
	output := rootArtifact.Template.Outputs["AtlasProjectId"]
	assert.Equal(t, "Atlas project id", output.Description)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"Project", "Id"}}, output.Value)
}

func orderOf(tmpl *wetwire.Template) ([]string, error) {
	builder := template.NewBuilder("")
	for name, res := range tmpl.Resources {
		var refs []string
		collectRefs(res.Properties, &refs)
		if err := builder.AddResource(name, template.Entry{Type: res.Type, DependsOn: res.DependsOn, References: refs}); err != nil {
			return nil, err
		}
	}
	return builder.Order()
}

func collectRefs(v any, refs *[]string) {
	switch val := v.(type) {
	case map[string]any:
		if getAtt, ok := val["Fn::GetAtt"].([]any); ok && len(getAtt) > 0 {
			if name, ok := getAtt[0].(string); ok {
				*refs = append(*refs, name)
			}
		}
		for _, x := range val {
			collectRefs(x, refs)
		}
	case []any:
		for _, x := range val {
			collectRefs(x, refs)
		}
	}
}
