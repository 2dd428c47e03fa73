// Package schema provides offline CloudFormation schema validation.
// It validates resources against the schemas of the resource types a
// deployment uses.
package schema

import (
	"fmt"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/intrinsics"
	"github.com/lex00/wetwire-atlas-go/resources/cloudformation"
	"github.com/lex00/wetwire-atlas-go/resources/iam"
	"github.com/lex00/wetwire-atlas-go/resources/mongodbatlas"
)

// Options configures schema validation.
type Options struct {
	// Strict reports unknown properties as warnings
	Strict bool
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []wetwire.SchemaError
	Warnings []wetwire.SchemaError
}

// ValidateTemplate validates a CloudFormation template against known schemas.
func ValidateTemplate(template *wetwire.Template, opts Options) (*Result, error) {
	result := &Result{Valid: true}

	names := make([]string, 0, len(template.Resources))
	for name := range template.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errors, warnings := validateResource(name, template.Resources[name], opts)
		result.Errors = append(result.Errors, errors...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result, nil
}

// Lookup returns the schema of a resource type.
func Lookup(resourceType string) (ResourceSchema, bool) {
	s, ok := resourceSchemas[resourceType]
	return s, ok
}

// Types lists the resource types with a schema, sorted.
func Types() []string {
	types := make([]string, 0, len(resourceSchemas))
	for t := range resourceSchemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// validateResource validates a single resource.
func validateResource(name string, resource wetwire.ResourceDef, opts Options) ([]wetwire.SchemaError, []wetwire.SchemaError) {
	var errors, warnings []wetwire.SchemaError

	if !isValidResourceType(resource.Type) {
		errors = append(errors, wetwire.SchemaError{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		// Registry types may be newer than these schemas
		warnings = append(warnings, wetwire.SchemaError{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errors, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errors = append(errors, wetwire.SchemaError{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	props := make([]string, 0, len(resource.Properties))
	for propName := range resource.Properties {
		props = append(props, propName)
	}
	sort.Strings(props)

	for _, propName := range props {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, wetwire.SchemaError{
					Resource: name,
					Property: propName,
					Message:  fmt.Sprintf("unknown property: %s", propName),
				})
			}
			continue
		}

		errors = append(errors, validateProperty(name, propName, resource.Properties[propName], propSchema)...)
	}

	return errors, warnings
}

// isValidResourceType checks if a resource type has valid format:
// Organization::Service::Resource, or Custom::*.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// validateProperty validates a property value against its schema.
func validateProperty(resource, property string, value any, schema PropertySchema) []wetwire.SchemaError {
	var errors []wetwire.SchemaError

	if !isValidType(value, schema.Type) {
		errors = append(errors, wetwire.SchemaError{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
	}

	if len(schema.AllowedValues) > 0 {
		if strVal, ok := value.(string); ok {
			found := false
			for _, allowed := range schema.AllowedValues {
				if strVal == allowed {
					found = true
					break
				}
			}
			if !found {
				errors = append(errors, wetwire.SchemaError{
					Resource: resource,
					Property: property,
					Message:  fmt.Sprintf("value %q not in allowed values: %v", strVal, schema.AllowedValues),
				})
			}
		}
	}

	return errors
}

// isValidType checks if a value matches the expected type.
func isValidType(value any, expectedType string) bool {
	// intrinsic functions resolve at deploy time
	if intrinsics.IsIntrinsic(value) {
		return true
	}

	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		switch value.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	case "Json":
		return true
	default:
		return true
	}
}

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Type       string
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
}

func props(types map[string]string) map[string]PropertySchema {
	m := make(map[string]PropertySchema, len(types))
	for name, t := range types {
		m[name] = PropertySchema{Type: t}
	}
	return m
}

// resourceSchemas covers the types a deployment declares. Properties
// follow the published registry schemas, top level only.
var resourceSchemas = map[string]ResourceSchema{
	iam.Role{}.ResourceType(): {
		Type:     iam.Role{}.ResourceType(),
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: props(map[string]string{
			"AssumeRolePolicyDocument": "Json",
			"Description":              "String",
			"ManagedPolicyArns":        "List",
			"MaxSessionDuration":       "Integer",
			"Path":                     "String",
			"PermissionsBoundary":      "String",
			"Policies":                 "List",
			"RoleName":                 "String",
			"Tags":                     "List",
		}),
	},
	cloudformation.StackResourceType: {
		Type:     cloudformation.StackResourceType,
		Required: []string{"TemplateURL"},
		Properties: props(map[string]string{
			"NotificationARNs": "List",
			"Parameters":       "Map",
			"Tags":             "List",
			"TemplateURL":      "String",
			"TimeoutInMinutes": "Integer",
		}),
	},
	cloudformation.TypeActivationResourceType: {
		Type: cloudformation.TypeActivationResourceType,
		Properties: props(map[string]string{
			"AutoUpdate":       "Boolean",
			"ExecutionRoleArn": "String",
			"LoggingConfig":    "Map",
			"MajorVersion":     "String",
			"PublicTypeArn":    "String",
			"PublisherId":      "String",
			"Type":             "String",
			"TypeName":         "String",
			"TypeNameAlias":    "String",
			"VersionBump":      "String",
		}),
	},
	mongodbatlas.TypeProject: {
		Type:     mongodbatlas.TypeProject,
		Required: []string{"Name", "OrgId"},
		Properties: props(map[string]string{
			"Name":                      "String",
			"OrgId":                     "String",
			"Profile":                   "String",
			"ProjectOwnerId":            "String",
			"WithDefaultAlertsSettings": "Boolean",
			"ProjectSettings":           "Map",
			"ProjectTeams":              "List",
			"ProjectApiKeys":            "List",
			"RegionUsageRestrictions":   "String",
			"Tags":                      "Map",
		}),
	},
	mongodbatlas.TypeDatabaseUser: {
		Type:     mongodbatlas.TypeDatabaseUser,
		Required: []string{"DatabaseName", "ProjectId", "Roles", "Username"},
		Properties: props(map[string]string{
			"AWSIAMType":      "String",
			"DatabaseName":    "String",
			"DeleteAfterDate": "String",
			"Labels":          "List",
			"LdapAuthType":    "String",
			"Password":        "String",
			"Profile":         "String",
			"ProjectId":       "String",
			"Roles":           "List",
			"Scopes":          "List",
			"Username":        "String",
			"X509Type":        "String",
		}),
	},
	mongodbatlas.TypeProjectIpAccessList: {
		Type:     mongodbatlas.TypeProjectIpAccessList,
		Required: []string{"AccessList", "ProjectId"},
		Properties: props(map[string]string{
			"AccessList": "List",
			"Profile":    "String",
			"ProjectId":  "String",
			"TotalCount": "Integer",
		}),
	},
	mongodbatlas.TypeCluster: {
		Type:     mongodbatlas.TypeCluster,
		Required: []string{"Name", "ProjectId"},
		Properties: func() map[string]PropertySchema {
			m := props(map[string]string{
				"AdvancedSettings":             "Map",
				"BackupEnabled":                "Boolean",
				"BiConnector":                  "Map",
				"ConnectionStrings":            "Map",
				"DiskSizeGB":                   "Integer",
				"EncryptionAtRestProvider":     "String",
				"Labels":                       "List",
				"MongoDBMajorVersion":          "String",
				"Name":                         "String",
				"Paused":                       "Boolean",
				"PitEnabled":                   "Boolean",
				"Profile":                      "String",
				"ProjectId":                    "String",
				"ReplicationSpecs":             "List",
				"RootCertType":                 "String",
				"Tags":                         "List",
				"TerminationProtectionEnabled": "Boolean",
				"VersionReleaseSystem":         "String",
			})
			m["ClusterType"] = PropertySchema{
				Type:          "String",
				AllowedValues: []string{mongodbatlas.ClusterTypeReplicaSet, "SHARDED", "GEOSHARDED"},
			}
			return m
		}(),
	},
	mongodbatlas.TypeNetworkContainer: {
		Type:     mongodbatlas.TypeNetworkContainer,
		Required: []string{"AtlasCidrBlock", "ProjectId", "RegionName"},
		Properties: props(map[string]string{
			"AtlasCidrBlock": "String",
			"Profile":        "String",
			"ProjectId":      "String",
			"RegionName":     "String",
			"VpcId":          "String",
		}),
	},
	mongodbatlas.TypeNetworkPeering: {
		Type:     mongodbatlas.TypeNetworkPeering,
		Required: []string{"ContainerId", "ProjectId", "VpcId"},
		Properties: props(map[string]string{
			"AccepterRegionName":  "String",
			"AwsAccountId":        "String",
			"ContainerId":         "String",
			"Profile":             "String",
			"ProjectId":           "String",
			"RouteTableCIDRBlock": "String",
			"VpcId":               "String",
		}),
	},
}
