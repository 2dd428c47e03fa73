package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wetwire-atlas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `stackName: YamlStack
region: us-east-1
project:
  name: YamlProject
cluster:
  instanceSize: M30
`)

	t.Setenv("WETWIRE_ATLAS_REGION", "eu-central-1")
	t.Setenv("WETWIRE_ATLAS_CLUSTER_INSTANCESIZE", "M40")
	t.Setenv("WETWIRE_ATLAS_STACKNAME", "EnvStack")

	cmd := &cobra.Command{}
	cmd.Flags().String("stack-name", "", "")
	require.NoError(t, cmd.ParseFlags([]string{"--stack-name", "FlagStack"}))

	cfg, err := Load(cmd, path)
	require.NoError(t, err)

	assert.Equal(t, "FlagStack", cfg.StackName)
	assert.Equal(t, "eu-central-1", cfg.Region)
	assert.Equal(t, "M40", cfg.Cluster.InstanceSize)
	assert.Equal(t, "YamlProject", cfg.Project.Name)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Cluster.NodeCount)
	assert.Equal(t, "{{ATLAS_ORG_ID}}", cfg.Project.OrgID)
}

func TestLoad_NestedLists(t *testing.T) {
	path := writeConfig(t, `project:
  accessList:
    - 10.0.0.0/8
    - 192.168.0.0/16
  databaseUser:
    roles:
      - databaseName: admin
        roleName: atlasAdmin
      - databaseName: app
        roleName: readWrite
`)

	cfg, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, cfg.Project.AccessList)
	assert.Equal(t, []RoleConfig{
		{DatabaseName: "admin", RoleName: "atlasAdmin"},
		{DatabaseName: "app", RoleName: "readWrite"},
	}, cfg.Project.DatabaseUser.Roles)
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	path := writeConfig(t, "variant: skeleton\n")
	t.Setenv("WETWIRE_ATLAS_CONFIG", path)

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "skeleton", cfg.Variant)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "variant: everything\n")

	_, err := Load(nil, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "region: [unterminated\n")

	_, err := Load(nil, path)
	require.Error(t, err)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("WETWIRE_ATLAS_TEST_ONLY=from-file\nWETWIRE_ATLAS_TEST_SET=from-file\n"), 0o600))

	t.Setenv("WETWIRE_ATLAS_TEST_SET", "from-env")
	t.Setenv("WETWIRE_ATLAS_TEST_ONLY", "")
	require.NoError(t, os.Unsetenv("WETWIRE_ATLAS_TEST_ONLY"))

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), envFile))

	assert.Equal(t, "from-file", os.Getenv("WETWIRE_ATLAS_TEST_ONLY"))
	assert.Equal(t, "from-env", os.Getenv("WETWIRE_ATLAS_TEST_SET"))
	require.NoError(t, os.Unsetenv("WETWIRE_ATLAS_TEST_ONLY"))
}
