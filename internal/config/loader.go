package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WETWIRE_ATLAS"

// DefaultConfigName is the config file looked up in the working directory.
const DefaultConfigName = "wetwire-atlas"

// Load constructs a new *Config by merging (in increasing precedence order):
//  1. built-in defaults (see New())
//  2. YAML config file (./wetwire-atlas.yaml, override via --config / WETWIRE_ATLAS_CONFIG)
//  3. environment variables prefixed with WETWIRE_ATLAS_
//  4. command-line flags bound on the provided *cobra.Command
//
// Pass nil for cmd if you do not wish to bind flags (e.g., in tests).
func Load(cmd *cobra.Command, explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, New())

	if explicitPath == "" {
		explicitPath = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		bind := func(key, name string) {
			if f := cmd.Flags().Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
		bind("stackName", "stack-name")
		bind("region", "region")
		bind("variant", "variant")
		bind("outputDir", "output")
		bind("assets.bucket", "asset-bucket")
		bind("assets.prefix", "asset-prefix")
		bind("assets.accountId", "account-id")
	}

	// Every key has a default, so a fresh struct receives the full merge.
	out := &Config{}
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// setDefaults registers every key so environment variables can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("stackName", cfg.StackName)
	v.SetDefault("description", cfg.Description)
	v.SetDefault("variant", cfg.Variant)
	v.SetDefault("region", cfg.Region)
	v.SetDefault("publisherId", cfg.PublisherID)
	v.SetDefault("profile", cfg.Profile)
	v.SetDefault("outputDir", cfg.OutputDir)

	v.SetDefault("assets.bucket", cfg.Assets.Bucket)
	v.SetDefault("assets.prefix", cfg.Assets.Prefix)
	v.SetDefault("assets.accountId", cfg.Assets.AccountID)

	v.SetDefault("project.name", cfg.Project.Name)
	v.SetDefault("project.orgId", cfg.Project.OrgID)
	v.SetDefault("project.accessList", cfg.Project.AccessList)
	v.SetDefault("project.databaseUser.databaseName", cfg.Project.DatabaseUser.DatabaseName)
	v.SetDefault("project.databaseUser.username", cfg.Project.DatabaseUser.Username)
	v.SetDefault("project.databaseUser.password", cfg.Project.DatabaseUser.Password)
	roles := make([]map[string]any, len(cfg.Project.DatabaseUser.Roles))
	for i, r := range cfg.Project.DatabaseUser.Roles {
		roles[i] = map[string]any{"databaseName": r.DatabaseName, "roleName": r.RoleName}
	}
	v.SetDefault("project.databaseUser.roles", roles)
	v.SetDefault("project.network.atlasCidrBlock", cfg.Project.Network.AtlasCidrBlock)
	v.SetDefault("project.network.vpcId", cfg.Project.Network.VpcID)
	v.SetDefault("project.network.vpcCidrBlock", cfg.Project.Network.VpcCidrBlock)
	v.SetDefault("project.network.accountId", cfg.Project.Network.AccountID)

	v.SetDefault("cluster.name", cfg.Cluster.Name)
	v.SetDefault("cluster.instanceSize", cfg.Cluster.InstanceSize)
	v.SetDefault("cluster.nodeCount", cfg.Cluster.NodeCount)
	v.SetDefault("cluster.priority", cfg.Cluster.Priority)
}

// LoadEnvFiles loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := gotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}
