package stacks

import (
	"errors"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/construct"
	"github.com/lex00/wetwire-atlas-go/resources/mongodbatlas"
)

// ErrMissingProjectID is returned when a cluster is declared without the
// id of the project it belongs to.
var ErrMissingProjectID = errors.New("missing Atlas project id")

// Cluster defaults.
const (
	DefaultInstanceSize = "M10"
	DefaultNodeCount    = 3
	DefaultPriority     = 7
)

// ClusterProps configures the Cluster unit.
type ClusterProps struct {
	Prefix string
	// ProjectID is a string or a reference to the project id.
	ProjectID    any
	Region       string
	Name         string
	InstanceSize string
	NodeCount    int
	Priority     int
	Profile      string
}

// ClusterStack declares one replica-set cluster.
type ClusterStack struct {
	*construct.Stack

	Cluster *construct.Resource
}

// NewClusterStack adds the Cluster unit to scope. It fails with
// ErrMissingProjectID, before registering anything, when props or its
// project id is absent or empty.
func NewClusterStack(scope *construct.Stack, id string, props *ClusterProps) (*ClusterStack, error) {
	if props == nil || isEmptyID(props.ProjectID) {
		return nil, ErrMissingProjectID
	}

	stack, err := construct.NewNestedStack(scope, id, &construct.StackProps{
		Description: "MongoDB Atlas cluster",
	})
	if err != nil {
		return nil, err
	}

	instanceSize := props.InstanceSize
	if instanceSize == "" {
		instanceSize = DefaultInstanceSize
	}
	nodeCount := props.NodeCount
	if nodeCount == 0 {
		nodeCount = DefaultNodeCount
	}
	priority := props.Priority
	if priority == 0 {
		priority = DefaultPriority
	}

	cluster, err := stack.AddResource(props.Prefix+"AtlasCluster", &mongodbatlas.Cluster{
		ProjectId:   props.ProjectID,
		Name:        props.Name,
		ClusterType: mongodbatlas.ClusterTypeReplicaSet,
		ReplicationSpecs: []mongodbatlas.Cluster_ReplicationSpec{{
			AdvancedRegionConfigs: []mongodbatlas.Cluster_AdvancedRegionConfig{{
				RegionName: AtlasRegionName(props.Region),
				Priority:   priority,
				ElectableSpecs: &mongodbatlas.Cluster_Specs{
					InstanceSize: instanceSize,
					NodeCount:    nodeCount,
				},
			}},
		}},
		Profile: optional(props.Profile),
	})
	if err != nil {
		return nil, err
	}

	return &ClusterStack{Stack: stack, Cluster: cluster}, nil
}

func isEmptyID(v any) bool {
	switch id := v.(type) {
	case nil:
		return true
	case string:
		return id == ""
	case *string:
		return id == nil || *id == ""
	case wetwire.AttrRef:
		return id.IsZero()
	case *wetwire.AttrRef:
		return id == nil || id.IsZero()
	default:
		return false
	}
}
