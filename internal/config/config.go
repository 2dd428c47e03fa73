// Package config defines the deployment configuration and how it is loaded.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lex00/wetwire-atlas-go/internal/stacks"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

// Built-in defaults. Placeholders are substituted by the render step.
const (
	DefaultStackName    = "DemoStack"
	DefaultRegion       = "eu-west-1"
	DefaultOutputDir    = "atlas.out"
	DefaultOrgID        = "{{ATLAS_ORG_ID}}"
	DefaultPassword     = "{{DB_PASSWORD}}"
	DefaultVpcID        = "{{AWS_VPC_ID}}"
	DefaultVpcCidrBlock = "10.0.0.0/24"
	DefaultAccountID    = "{{AWS_ACCOUNT_ID}}"
	DefaultAtlasCidr    = "192.168.248.0/21"
	DefaultName         = "Demo"
)

// Config is the fully resolved configuration of one invocation.
//
// Only structural settings are validated. CIDR blocks and fields that may
// hold {{PLACEHOLDER}} tokens are passed through as given.
type Config struct {
	StackName   string `mapstructure:"stackName" yaml:"stackName" validate:"required"`
	Description string `mapstructure:"description" yaml:"description"`
	Variant     string `mapstructure:"variant" yaml:"variant" validate:"required,oneof=full partial skeleton"`
	Region      string `mapstructure:"region" yaml:"region" validate:"required"`
	PublisherID string `mapstructure:"publisherId" yaml:"publisherId" validate:"required"`
	Profile     string `mapstructure:"profile" yaml:"profile"`
	OutputDir   string `mapstructure:"outputDir" yaml:"outputDir" validate:"required"`

	Assets  AssetsConfig  `mapstructure:"assets" yaml:"assets"`
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	Cluster ClusterConfig `mapstructure:"cluster" yaml:"cluster"`
}

// AssetsConfig locates the bucket nested templates are published to.
type AssetsConfig struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket" validate:"required"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	// AccountID substitutes ${AWS::AccountId} in Bucket when publishing.
	AccountID string `mapstructure:"accountId" yaml:"accountId"`
}

// ProjectConfig configures the Atlas project and its records.
type ProjectConfig struct {
	Name         string             `mapstructure:"name" yaml:"name" validate:"required"`
	OrgID        string             `mapstructure:"orgId" yaml:"orgId" validate:"required"`
	AccessList   []string           `mapstructure:"accessList" yaml:"accessList"`
	DatabaseUser DatabaseUserConfig `mapstructure:"databaseUser" yaml:"databaseUser"`
	Network      NetworkConfig      `mapstructure:"network" yaml:"network"`
}

// DatabaseUserConfig configures the database user.
type DatabaseUserConfig struct {
	DatabaseName string       `mapstructure:"databaseName" yaml:"databaseName" validate:"required"`
	Username     string       `mapstructure:"username" yaml:"username" validate:"required"`
	Password     string       `mapstructure:"password" yaml:"password"`
	Roles        []RoleConfig `mapstructure:"roles" yaml:"roles" validate:"dive"`
}

// RoleConfig grants a role on a database.
type RoleConfig struct {
	DatabaseName string `mapstructure:"databaseName" yaml:"databaseName" validate:"required"`
	RoleName     string `mapstructure:"roleName" yaml:"roleName" validate:"required"`
}

// NetworkConfig configures the network container and VPC peering.
type NetworkConfig struct {
	AtlasCidrBlock string `mapstructure:"atlasCidrBlock" yaml:"atlasCidrBlock"`
	VpcID          string `mapstructure:"vpcId" yaml:"vpcId"`
	VpcCidrBlock   string `mapstructure:"vpcCidrBlock" yaml:"vpcCidrBlock"`
	AccountID      string `mapstructure:"accountId" yaml:"accountId"`
}

// ClusterConfig configures the replica-set cluster.
type ClusterConfig struct {
	Name         string `mapstructure:"name" yaml:"name" validate:"required"`
	InstanceSize string `mapstructure:"instanceSize" yaml:"instanceSize" validate:"required"`
	NodeCount    int    `mapstructure:"nodeCount" yaml:"nodeCount" validate:"min=1"`
	Priority     int    `mapstructure:"priority" yaml:"priority" validate:"min=1,max=7"`
}

// New returns a Config populated with builtin defaults.
func New() *Config {
	return &Config{
		StackName:   DefaultStackName,
		Variant:     string(stacks.VariantFull),
		Region:      DefaultRegion,
		PublisherID: stacks.DefaultPublisherID,
		OutputDir:   DefaultOutputDir,
		Assets: AssetsConfig{
			Bucket: synth.DefaultAssetBucket,
		},
		Project: ProjectConfig{
			Name:       DefaultName,
			OrgID:      DefaultOrgID,
			AccessList: []string{"0.0.0.0/0"},
			DatabaseUser: DatabaseUserConfig{
				DatabaseName: "admin",
				Username:     "test",
				Password:     DefaultPassword,
				Roles:        []RoleConfig{{DatabaseName: "admin", RoleName: "readWriteAnyDatabase"}},
			},
			Network: NetworkConfig{
				AtlasCidrBlock: DefaultAtlasCidr,
				VpcID:          DefaultVpcID,
				VpcCidrBlock:   DefaultVpcCidrBlock,
				AccountID:      DefaultAccountID,
			},
		},
		Cluster: ClusterConfig{
			Name:         DefaultName,
			InstanceSize: stacks.DefaultInstanceSize,
			NodeCount:    stacks.DefaultNodeCount,
			Priority:     stacks.DefaultPriority,
		},
	}
}

var validate = validator.New()

// Validate checks the structural settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DeploymentProps maps the configuration onto the deployment declaration.
func (c *Config) DeploymentProps() (stacks.DeploymentProps, error) {
	variant, err := stacks.ParseVariant(c.Variant)
	if err != nil {
		return stacks.DeploymentProps{}, err
	}

	roles := make([]stacks.DatabaseRole, len(c.Project.DatabaseUser.Roles))
	for i, r := range c.Project.DatabaseUser.Roles {
		roles[i] = stacks.DatabaseRole{DatabaseName: r.DatabaseName, RoleName: r.RoleName}
	}

	return stacks.DeploymentProps{
		Description: c.Description,
		Variant:     variant,
		Region:      c.Region,
		PublisherID: c.PublisherID,
		Project: stacks.ProjectProps{
			Name:    c.Project.Name,
			OrgID:   c.Project.OrgID,
			Profile: c.Profile,
			DatabaseUser: &stacks.DatabaseUserProps{
				DatabaseName: c.Project.DatabaseUser.DatabaseName,
				Username:     c.Project.DatabaseUser.Username,
				Password:     c.Project.DatabaseUser.Password,
				Roles:        roles,
			},
			AccessList: append([]string{}, c.Project.AccessList...),
			Network: &stacks.NetworkProps{
				AtlasCidrBlock: c.Project.Network.AtlasCidrBlock,
				VpcID:          c.Project.Network.VpcID,
				VpcCidrBlock:   c.Project.Network.VpcCidrBlock,
				AccountID:      c.Project.Network.AccountID,
			},
		},
		Cluster: stacks.ClusterProps{
			Name:         c.Cluster.Name,
			InstanceSize: c.Cluster.InstanceSize,
			NodeCount:    c.Cluster.NodeCount,
			Priority:     c.Cluster.Priority,
			Profile:      c.Profile,
		},
	}, nil
}

// SynthOptions returns the synthesis options for the configured assets.
func (c *Config) SynthOptions() synth.Options {
	return synth.Options{
		AssetBucket: c.Assets.Bucket,
		AssetPrefix: c.Assets.Prefix,
	}
}
