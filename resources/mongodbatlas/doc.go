// Package mongodbatlas contains the MongoDB::Atlas third-party resource types.
//
// These types are published to the CloudFormation public registry by MongoDB
// and must be activated in the account (AWS::CloudFormation::TypeActivation)
// before a template using them can be deployed.
//
// Every type accepts an optional Profile naming the Secrets Manager profile
// that holds the Atlas API keys; it is omitted from templates when empty.
//
//	project := mongodbatlas.Project{
//	    Name:  "Demo",
//	    OrgId: "{{ATLAS_ORG_ID}}",
//	}
package mongodbatlas

import "strings"

// Type names of the Atlas resource kinds.
const (
	TypeProject             = "MongoDB::Atlas::Project"
	TypeDatabaseUser        = "MongoDB::Atlas::DatabaseUser"
	TypeProjectIpAccessList = "MongoDB::Atlas::ProjectIpAccessList"
	TypeCluster             = "MongoDB::Atlas::Cluster"
	TypeNetworkContainer    = "MongoDB::Atlas::NetworkContainer"
	TypeNetworkPeering      = "MongoDB::Atlas::NetworkPeering"
)

// TypePrefix is shared by every Atlas resource type.
const TypePrefix = "MongoDB::Atlas::"

// IsAtlasType reports whether typeName is an Atlas third-party type.
func IsAtlasType(typeName string) bool {
	return strings.HasPrefix(typeName, TypePrefix)
}

// ActivationName returns the registry name of a type, with "::" replaced by "-".
//
//	ActivationName("MongoDB::Atlas::Project") → "MongoDB-Atlas-Project"
func ActivationName(typeName string) string {
	return strings.ReplaceAll(typeName, "::", "-")
}
