package mongodbatlas

// Project represents MongoDB::Atlas::Project.
type Project struct {
	Name    any `json:"Name"`
	OrgId   any `json:"OrgId"`
	Profile any `json:"Profile,omitempty"`
}

// ResourceType returns the CloudFormation type for Project.
func (r Project) ResourceType() string {
	return TypeProject
}

// DatabaseUser represents MongoDB::Atlas::DatabaseUser.
type DatabaseUser struct {
	DatabaseName any                           `json:"DatabaseName"`
	ProjectId    any                           `json:"ProjectId"`
	Username     any                           `json:"Username"`
	Password     any                           `json:"Password,omitempty"`
	Roles        []DatabaseUser_RoleDefinition `json:"Roles"`
	Profile      any                           `json:"Profile,omitempty"`
}

// ResourceType returns the CloudFormation type for DatabaseUser.
func (r DatabaseUser) ResourceType() string {
	return TypeDatabaseUser
}

// DatabaseUser_RoleDefinition grants a role on a database.
type DatabaseUser_RoleDefinition struct {
	DatabaseName   any `json:"DatabaseName"`
	RoleName       any `json:"RoleName"`
	CollectionName any `json:"CollectionName,omitempty"`
}

// ProjectIpAccessList represents MongoDB::Atlas::ProjectIpAccessList.
type ProjectIpAccessList struct {
	ProjectId  any                                        `json:"ProjectId"`
	AccessList []ProjectIpAccessList_AccessListDefinition `json:"AccessList"`
	Profile    any                                        `json:"Profile,omitempty"`
}

// ResourceType returns the CloudFormation type for ProjectIpAccessList.
func (r ProjectIpAccessList) ResourceType() string {
	return TypeProjectIpAccessList
}

// ProjectIpAccessList_AccessListDefinition is one access list entry.
// Entries are emitted as given; CIDR blocks are not validated.
type ProjectIpAccessList_AccessListDefinition struct {
	CIDRBlock        any `json:"CIDRBlock,omitempty"`
	IPAddress        any `json:"IPAddress,omitempty"`
	AwsSecurityGroup any `json:"AwsSecurityGroup,omitempty"`
	Comment          any `json:"Comment,omitempty"`
}
