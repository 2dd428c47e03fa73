package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/render"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSynthCmd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "atlas.out")

	out, err := execute(t, "synth", "-o", dir, "-f", "json")
	require.NoError(t, err, out)

	var result wetwire.SynthResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)
	assert.Equal(t, dir, result.Directory)
	assert.Len(t, result.Templates, 4)

	assert.FileExists(t, filepath.Join(dir, "DemoStack.template.json"))
	assert.FileExists(t, filepath.Join(dir, synth.ManifestFile))

	assembly, err := synth.ReadAssembly(dir)
	require.NoError(t, err)
	assert.Len(t, assembly.Nested(), 3)
}

func TestSynthCmd_Flags(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "synth", "-o", dir, "--variant", "skeleton", "--stack-name", "Other")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Wrote 2 templates to "+dir)
	assert.FileExists(t, filepath.Join(dir, "Other.template.json"))
}

func TestSynthCmd_InvalidVariant(t *testing.T) {
	out, err := execute(t, "synth", "-o", t.TempDir(), "--variant", "huge", "-f", "json")
	require.ErrorIs(t, err, errSynthFailed)

	var result wetwire.SynthResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}

func TestSynthCmd_Print(t *testing.T) {
	out, err := execute(t, "synth", "--print", "ClusterStack")
	require.NoError(t, err)
	assert.Contains(t, out, `"MongoDB::Atlas::Cluster"`)
	assert.Contains(t, out, `"REPLICASET"`)

	out, err = execute(t, "synth", "--print", "DemoStack", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Type: AWS::CloudFormation::Stack")

	_, err = execute(t, "synth", "--print", "Missing")
	assert.Error(t, err)
}

func TestListCmd(t *testing.T) {
	out, err := execute(t, "list", "-f", "json")
	require.NoError(t, err)

	var result wetwire.ListResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Contains(t, result.Resources, wetwire.ListResource{
		Stack: "DemoStack/ClusterStack",
		Name:  "DemoStackAtlasCluster",
		Type:  "MongoDB::Atlas::Cluster",
	})
	assert.Contains(t, result.Resources, wetwire.ListResource{
		Stack: "DemoStack",
		Name:  "ProjectStackNestedStackResource",
		Type:  "AWS::CloudFormation::Stack",
	})

	out, err = execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "DemoStack/PrerequisitesStack\n")
	assert.Contains(t, out, "  DemoStackMongoDBAtlasExecutionRole: AWS::IAM::Role\n")
}

func TestGraphCmd(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")

	out, err = execute(t, "graph", "-f", "mermaid")
	require.NoError(t, err)
	assert.NotContains(t, out, "digraph")

	_, err = execute(t, "graph", "-f", "svg")
	assert.Error(t, err)
}

func TestValidateCmd(t *testing.T) {
	out, err := execute(t, "validate", "--strict", "-f", "json")
	require.NoError(t, err, out)

	var result wetwire.ValidateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 4, result.Templates)
}

func TestLintCmd(t *testing.T) {
	out, err := execute(t, "lint", "-f", "json")
	require.NoError(t, err, out)

	var result wetwire.LintResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)

	rules := make(map[string]bool)
	for _, issue := range result.Issues {
		rules[issue.Rule] = true
	}
	assert.True(t, rules["MAS001"])
	assert.True(t, rules["MAS002"])
	assert.True(t, rules["MAS003"])

	out, err = execute(t, "lint", "--enable", "MAS006")
	require.NoError(t, err)
	assert.Equal(t, "No issues found.\n", out)

	out, err = execute(t, "lint", "--rules")
	require.NoError(t, err)
	assert.Contains(t, out, "MAS005")
}

func TestDiffCmd(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "synth", "-o", dir)
	require.NoError(t, err)

	out, err := execute(t, "diff", "-o", dir)
	require.NoError(t, err)
	assert.Equal(t, "No differences.\n", out)

	other := t.TempDir()
	_, err = execute(t, "synth", "-o", other, "--variant", "partial")
	require.NoError(t, err)

	out, err = execute(t, "diff", dir, other, "-f", "json")
	require.NoError(t, err)
	var result struct {
		Diff    wetwire.TemplateDiff `json:"diff"`
		Summary wetwire.DiffSummary  `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Positive(t, result.Summary.Removed)

	removed := make(map[string]bool)
	for _, e := range result.Diff.Removed {
		removed[e.Resource] = true
	}
	assert.True(t, removed["DemoStackAtlasCluster"])
	assert.True(t, removed["ClusterStackNestedStackResource"])
}

func TestRenderCmd(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "rendered")

	if _, set := os.LookupEnv("ATLAS_ORG_ID"); !set {
		out, err := execute(t, "render", "--check", "--env-file", "")
		require.ErrorIs(t, err, render.ErrMissingValue)
		assert.Contains(t, out, "ATLAS_ORG_ID")
	}

	t.Setenv("ATLAS_ORG_ID", "5f0a1b2c3d4e5f6a7b8c9d0e")
	t.Setenv("DB_PASSWORD", `pa"ss`)
	t.Setenv("AWS_VPC_ID", "vpc-0123456789abcdef0")
	t.Setenv("AWS_ACCOUNT_ID", "123456789012")

	out, err := execute(t, "render", "--dest", dest, "--env-file", "")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Rendered 4 templates to "+dest)

	assembly, err := synth.ReadAssembly(dest)
	require.NoError(t, err)
	for _, s := range assembly.Stacks {
		data, err := s.Data()
		require.NoError(t, err)
		assert.Empty(t, render.Placeholders(data), s.TemplateFile)
	}

	project, ok := assembly.Stack("DemoStack/ProjectStack")
	require.True(t, ok)
	assert.Equal(t, "5f0a1b2c3d4e5f6a7b8c9d0e", project.Template.Resources["DemoStackAtlasProject"].Properties["OrgId"])
}

func TestWatchedFiles(t *testing.T) {
	cmd := newRootCmd()
	cmd.Flags().AddFlagSet(cmd.PersistentFlags())
	require.NoError(t, cmd.Flags().Set("config", "conf/prod.yaml"))
	require.NoError(t, cmd.Flags().Set("env-file", "a.env,conf/prod.yaml"))

	files, err := watchedFiles(cmd)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(wd, "conf", "prod.yaml"),
		filepath.Join(wd, "a.env"),
	}, files)
}

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd()
	assert.Equal(t, "watch", cmd.Use)
	require.NotNil(t, cmd.Flags().Lookup("lint-only"))

	flag := cmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, "500ms", flag.DefValue)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "wetwire-atlas "+getVersion()+"\n", out)
}

func TestExampleConfigs(t *testing.T) {
	tests := []struct {
		config    string
		root      string
		templates int
	}{
		{config: "../../examples/wetwire-atlas.yaml", root: "DemoStack", templates: 4},
		{config: "../../examples/skeleton.yaml", root: "AtlasSkeleton", templates: 2},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.config), func(t *testing.T) {
			dir := t.TempDir()
			out, err := execute(t, "synth", "--config", tt.config, "-o", dir, "-f", "json")
			require.NoError(t, err, out)

			var result wetwire.SynthResult
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			assert.Len(t, result.Templates, tt.templates)
			assert.FileExists(t, filepath.Join(dir, tt.root+".template.json"))

			out, err = execute(t, "validate", "--config", tt.config)
			require.NoError(t, err, out)
		})
	}
}
