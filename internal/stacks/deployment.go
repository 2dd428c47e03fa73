// Package stacks declares the MongoDB Atlas deployment: a root stack with
// Prerequisites, Project and Cluster nested stacks.
//
// Values flow between units through constructor arguments: the Project
// unit's generated project id is handed to the Cluster unit, and the
// synthesizer turns that reference into a nested stack Output/Parameter
// pair.
package stacks

import (
	"fmt"

	"github.com/lex00/wetwire-atlas-go/internal/construct"
)

// Nested stack ids.
const (
	PrerequisitesStackID = "PrerequisitesStack"
	ProjectStackID       = "ProjectStack"
	ClusterStackID       = "ClusterStack"
)

// DeploymentProps configures a whole deployment.
type DeploymentProps struct {
	Description string
	Variant     Variant
	Region      string
	PublisherID string

	// Project holds every optional record; the variant decides which are
	// declared. Prefix and Region are filled in from the deployment.
	Project ProjectProps
	// Cluster is used by the full variant. Prefix, Region and ProjectID
	// are filled in from the deployment.
	Cluster ClusterProps
}

// DeploymentStack is the root unit.
type DeploymentStack struct {
	*construct.Stack

	Prerequisites *PrerequisitesStack
	Project       *ProjectStack
	Cluster       *ClusterStack
}

// NewDeploymentStack adds the root unit and its nested units to app.
func NewDeploymentStack(app *construct.App, id string, props DeploymentProps) (*DeploymentStack, error) {
	variant := props.Variant
	if variant == "" {
		variant = VariantFull
	}
	if _, err := ParseVariant(string(variant)); err != nil {
		return nil, err
	}
	topology := variant.Topology()

	root, err := construct.NewStack(app, id, &construct.StackProps{Description: props.Description})
	if err != nil {
		return nil, err
	}
	prefix := root.ID()
	d := &DeploymentStack{Stack: root}

	d.Prerequisites, err = NewPrerequisitesStack(root, PrerequisitesStackID, PrerequisitesProps{
		Prefix:        prefix,
		Region:        props.Region,
		PublisherID:   props.PublisherID,
		ResourceKinds: topology.ResourceKinds(),
	})
	if err != nil {
		return nil, fmt.Errorf("prerequisites stack: %w", err)
	}

	if !topology.Project {
		return d, nil
	}

	projectProps := props.Project
	projectProps.Prefix = prefix
	projectProps.Region = props.Region
	if !topology.DatabaseUser {
		projectProps.DatabaseUser = nil
	}
	if !topology.AccessList {
		projectProps.AccessList = nil
	}
	if !topology.Network {
		projectProps.Network = nil
	}

	d.Project, err = NewProjectStack(root, ProjectStackID, projectProps)
	if err != nil {
		return nil, fmt.Errorf("project stack: %w", err)
	}

	if topology.Cluster {
		clusterProps := props.Cluster
		clusterProps.Prefix = prefix
		clusterProps.Region = props.Region
		clusterProps.ProjectID = d.Project.ProjectID()

		d.Cluster, err = NewClusterStack(root, ClusterStackID, &clusterProps)
		if err != nil {
			return nil, fmt.Errorf("cluster stack: %w", err)
		}
	}

	if err := d.Project.AddDependency(d.Prerequisites.Stack); err != nil {
		return nil, err
	}

	return d, nil
}
