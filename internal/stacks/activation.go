package stacks

import (
	"fmt"

	"github.com/lex00/wetwire-atlas-go/resources/mongodbatlas"
)

// DefaultPublisherID is the registry publisher id of the MongoDB Atlas types.
const DefaultPublisherID = "bb989456c78c398a858fef18f2ca1bfc1fbba082"

// PublicTypeARN returns the public registry ARN of a third-party resource
// type. The region is used as given; only the type name has "::" replaced.
//
//	PublicTypeARN("eu-west-1", DefaultPublisherID, "MongoDB::Atlas::Project")
//	→ "arn:aws:cloudformation:eu-west-1::type/resource/bb98…/MongoDB-Atlas-Project"
func PublicTypeARN(region, publisherID, typeName string) string {
	return fmt.Sprintf("arn:aws:cloudformation:%s::type/resource/%s/%s",
		region, publisherID, mongodbatlas.ActivationName(typeName))
}
