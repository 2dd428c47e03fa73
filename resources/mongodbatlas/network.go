package mongodbatlas

// NetworkContainer represents MongoDB::Atlas::NetworkContainer.
type NetworkContainer struct {
	AtlasCidrBlock any `json:"AtlasCidrBlock"`
	ProjectId      any `json:"ProjectId"`
	RegionName     any `json:"RegionName"`
	Profile        any `json:"Profile,omitempty"`
}

// ResourceType returns the CloudFormation type for NetworkContainer.
func (r NetworkContainer) ResourceType() string {
	return TypeNetworkContainer
}

// NetworkPeering represents MongoDB::Atlas::NetworkPeering.
type NetworkPeering struct {
	ContainerId         any `json:"ContainerId"`
	ProjectId           any `json:"ProjectId"`
	VpcId               any `json:"VpcId"`
	AccepterRegionName  any `json:"AccepterRegionName,omitempty"`
	AwsAccountId        any `json:"AwsAccountId,omitempty"`
	RouteTableCIDRBlock any `json:"RouteTableCIDRBlock,omitempty"`
	Profile             any `json:"Profile,omitempty"`
}

// ResourceType returns the CloudFormation type for NetworkPeering.
func (r NetworkPeering) ResourceType() string {
	return TypeNetworkPeering
}
