package synth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-atlas-go/internal/stacks"
)

func TestAssembly_WriteAndRead(t *testing.T) {
	assembly, err := Synthesize(demoApp(t, stacks.VariantFull), Options{AssetPrefix: "atlas/"})
	require.NoError(t, err)

	dir := t.TempDir()
	written, err := assembly.Write(dir)
	require.NoError(t, err)

	assert.Len(t, written, 4)
	assert.FileExists(t, filepath.Join(dir, "DemoStack.template.json"))
	assert.FileExists(t, filepath.Join(dir, "DemoStackProjectStack.nested.template.json"))
	assert.FileExists(t, filepath.Join(dir, ManifestFile))

	loaded, err := ReadAssembly(dir)
	require.NoError(t, err)

	assert.Equal(t, assembly.AssetBucket, loaded.AssetBucket)
	assert.Equal(t, "atlas/", loaded.AssetPrefix)
	require.Len(t, loaded.Stacks, len(assembly.Stacks))
	for i, s := range loaded.Stacks {
		original := assembly.Stacks[i]
		assert.Equal(t, original.Path, s.Path)
		assert.Equal(t, original.Hash, s.Hash)
		assert.Equal(t, original.ObjectKey, s.ObjectKey)
		assert.Equal(t, original.Dependencies, s.Dependencies)
		require.NotNil(t, s.Template)
		assert.Len(t, s.Template.Resources, len(original.Template.Resources))

		data, err := s.Data()
		require.NoError(t, err)
		originalData, err := original.Data()
		require.NoError(t, err)
		assert.Equal(t, originalData, data)
	}

	project, ok := loaded.Stack("DemoStack/ProjectStack")
	require.True(t, ok)
	assert.Equal(t, []string{"DemoStack/PrerequisitesStack"}, project.Dependencies)
	assert.Equal(t, "ProjectStackNestedStackResource", project.NestedStackLogicalID)

	assert.Len(t, loaded.Roots(), 1)
	assert.Len(t, loaded.Nested(), 3)
}

func TestReadAssembly_NoManifest(t *testing.T) {
	_, err := ReadAssembly(t.TempDir())
	assert.ErrorIs(t, err, ErrNoManifest)
}

func TestReadAssembly_BadVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"version":"99","stacks":[]}`), 0644))

	_, err := ReadAssembly(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported manifest version")
}

func TestReadAssembly_MissingTemplate(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"version":"1","assetBucket":"b","stacks":[{"id":"DemoStack","path":"DemoStack","templateFile":"DemoStack.template.json","hash":"x"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0644))

	_, err := ReadAssembly(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DemoStack.template.json")
}
