package stacks

import (
	"fmt"

	"github.com/lex00/wetwire-atlas-go/internal/construct"
	"github.com/lex00/wetwire-atlas-go/resources/cloudformation"
	"github.com/lex00/wetwire-atlas-go/resources/iam"
)

// PrerequisitesProps configures the Prerequisites unit.
type PrerequisitesProps struct {
	// Prefix is prepended to logical ids and the role name.
	Prefix string
	// Region is the AWS region the types are activated in.
	Region      string
	PublisherID string
	// ResourceKinds lists the Atlas types to activate, in order.
	ResourceKinds []string
}

// PrerequisitesStack declares the execution role and the type activations
// the Atlas resources need.
type PrerequisitesStack struct {
	*construct.Stack

	ExecutionRole *construct.Resource
	Activations   []*construct.Resource
}

// NewPrerequisitesStack adds the Prerequisites unit to scope.
func NewPrerequisitesStack(scope *construct.Stack, id string, props PrerequisitesProps) (*PrerequisitesStack, error) {
	stack, err := construct.NewNestedStack(scope, id, &construct.StackProps{
		Description: "MongoDB Atlas execution role and resource type activations",
	})
	if err != nil {
		return nil, err
	}

	publisher := props.PublisherID
	if publisher == "" {
		publisher = DefaultPublisherID
	}

	roleName := props.Prefix + "MongoDBAtlasExecutionRole"
	role, err := stack.AddResource(roleName, &iam.Role{
		RoleName:                 roleName,
		AssumeRolePolicyDocument: executionRoleTrustPolicy(),
		Policies: []iam.Role_Policy{{
			PolicyName:     ExecutionRolePolicyName,
			PolicyDocument: executionRolePolicy(),
		}},
	})
	if err != nil {
		return nil, err
	}

	p := &PrerequisitesStack{Stack: stack, ExecutionRole: role}

	seen := make(map[string]bool)
	for _, kind := range props.ResourceKinds {
		if seen[kind] {
			continue
		}
		seen[kind] = true

		activation, err := stack.AddResource(props.Prefix+"TypeActivation"+kind, &cloudformation.TypeActivation{
			PublicTypeArn:    PublicTypeARN(props.Region, publisher, kind),
			ExecutionRoleArn: role.GetAtt("Arn"),
		})
		if err != nil {
			return nil, fmt.Errorf("activating %s: %w", kind, err)
		}
		p.Activations = append(p.Activations, activation)
	}

	return p, nil
}
