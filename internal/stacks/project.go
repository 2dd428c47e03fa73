package stacks

import (
	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/construct"
	"github.com/lex00/wetwire-atlas-go/resources/mongodbatlas"
)

// ProjectProps configures the Project unit. Nil optional parts are not
// declared. Values are emitted verbatim, placeholders included.
type ProjectProps struct {
	Prefix  string
	Region  string
	Name    string
	OrgID   string
	Profile string

	DatabaseUser *DatabaseUserProps
	// AccessList holds CIDR blocks; nil declares no access list.
	AccessList []string
	Network    *NetworkProps
}

// DatabaseUserProps configures the database user.
type DatabaseUserProps struct {
	DatabaseName string
	Username     string
	Password     string
	Roles        []DatabaseRole
}

// DatabaseRole grants RoleName on DatabaseName.
type DatabaseRole struct {
	DatabaseName string
	RoleName     string
}

// NetworkProps configures the network container and its VPC peering.
type NetworkProps struct {
	AtlasCidrBlock string
	VpcID          string
	VpcCidrBlock   string
	AccountID      string
}

// ProjectStack declares the Atlas project and its project-scoped records.
type ProjectStack struct {
	*construct.Stack

	Project          *construct.Resource
	DatabaseUser     *construct.Resource
	AccessList       *construct.Resource
	NetworkContainer *construct.Resource
	NetworkPeering   *construct.Resource
}

// NewProjectStack adds the Project unit to scope.
func NewProjectStack(scope *construct.Stack, id string, props ProjectProps) (*ProjectStack, error) {
	stack, err := construct.NewNestedStack(scope, id, &construct.StackProps{
		Description: "MongoDB Atlas project",
	})
	if err != nil {
		return nil, err
	}

	p := &ProjectStack{Stack: stack}
	profile := optional(props.Profile)

	p.Project, err = stack.AddResource(props.Prefix+"AtlasProject", &mongodbatlas.Project{
		Name:    props.Name,
		OrgId:   props.OrgID,
		Profile: profile,
	})
	if err != nil {
		return nil, err
	}
	projectID := p.ProjectID()

	if u := props.DatabaseUser; u != nil {
		roles := make([]mongodbatlas.DatabaseUser_RoleDefinition, len(u.Roles))
		for i, r := range u.Roles {
			roles[i] = mongodbatlas.DatabaseUser_RoleDefinition{
				DatabaseName: r.DatabaseName,
				RoleName:     r.RoleName,
			}
		}
		p.DatabaseUser, err = stack.AddResource(props.Prefix+"AtlasDatabaseUser", &mongodbatlas.DatabaseUser{
			DatabaseName: u.DatabaseName,
			ProjectId:    projectID,
			Username:     u.Username,
			Password:     u.Password,
			Roles:        roles,
			Profile:      profile,
		})
		if err != nil {
			return nil, err
		}
	}

	if props.AccessList != nil {
		entries := make([]mongodbatlas.ProjectIpAccessList_AccessListDefinition, len(props.AccessList))
		for i, cidr := range props.AccessList {
			entries[i] = mongodbatlas.ProjectIpAccessList_AccessListDefinition{CIDRBlock: cidr}
		}
		p.AccessList, err = stack.AddResource(props.Prefix+"AtlasProjectIpAccessList", &mongodbatlas.ProjectIpAccessList{
			ProjectId:  projectID,
			AccessList: entries,
			Profile:    profile,
		})
		if err != nil {
			return nil, err
		}
	}

	if n := props.Network; n != nil {
		p.NetworkContainer, err = stack.AddResource(props.Prefix+"AtlasNetworkContainer", &mongodbatlas.NetworkContainer{
			AtlasCidrBlock: n.AtlasCidrBlock,
			ProjectId:      projectID,
			RegionName:     AtlasRegionName(props.Region),
			Profile:        profile,
		})
		if err != nil {
			return nil, err
		}

		p.NetworkPeering, err = stack.AddResource(props.Prefix+"AtlasNetworkPeering", &mongodbatlas.NetworkPeering{
			ContainerId:         p.NetworkContainer.GetAtt("Id"),
			ProjectId:           projectID,
			VpcId:               n.VpcID,
			AccepterRegionName:  props.Region,
			AwsAccountId:        n.AccountID,
			RouteTableCIDRBlock: n.VpcCidrBlock,
			Profile:             profile,
		})
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ProjectID returns a reference to the generated Atlas project id.
func (p *ProjectStack) ProjectID() wetwire.AttrRef {
	return p.Project.GetAtt("Id")
}

// NetworkContainerID returns a reference to the network container id, or
// a zero reference when no network container is declared.
func (p *ProjectStack) NetworkContainerID() wetwire.AttrRef {
	if p.NetworkContainer == nil {
		return wetwire.AttrRef{}
	}
	return p.NetworkContainer.GetAtt("Id")
}

// optional returns nil for an empty string so the property is omitted.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
