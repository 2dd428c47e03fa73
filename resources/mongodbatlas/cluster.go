package mongodbatlas

// ClusterTypeReplicaSet is the only cluster type this package declares.
const ClusterTypeReplicaSet = "REPLICASET"

// Cluster represents MongoDB::Atlas::Cluster.
type Cluster struct {
	ProjectId        any                       `json:"ProjectId"`
	Name             any                       `json:"Name"`
	ClusterType      any                       `json:"ClusterType,omitempty"`
	ReplicationSpecs []Cluster_ReplicationSpec `json:"ReplicationSpecs,omitempty"`
	Profile          any                       `json:"Profile,omitempty"`
}

// ResourceType returns the CloudFormation type for Cluster.
func (r Cluster) ResourceType() string {
	return TypeCluster
}

// Cluster_ReplicationSpec describes one replication spec (zone) of a cluster.
type Cluster_ReplicationSpec struct {
	NumShards             int                            `json:"NumShards,omitempty"`
	ZoneName              any                            `json:"ZoneName,omitempty"`
	AdvancedRegionConfigs []Cluster_AdvancedRegionConfig `json:"AdvancedRegionConfigs"`
}

// Cluster_AdvancedRegionConfig places nodes in one region.
type Cluster_AdvancedRegionConfig struct {
	RegionName     any            `json:"RegionName"`
	Priority       int            `json:"Priority,omitempty"`
	ElectableSpecs *Cluster_Specs `json:"ElectableSpecs,omitempty"`
	ReadOnlySpecs  *Cluster_Specs `json:"ReadOnlySpecs,omitempty"`
	AnalyticsSpecs *Cluster_Specs `json:"AnalyticsSpecs,omitempty"`
}

// Cluster_Specs sizes a group of nodes.
type Cluster_Specs struct {
	InstanceSize any `json:"InstanceSize"`
	NodeCount    int `json:"NodeCount,omitempty"`
}
