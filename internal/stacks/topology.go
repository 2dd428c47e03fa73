package stacks

import (
	"errors"
	"fmt"

	"github.com/lex00/wetwire-atlas-go/resources/mongodbatlas"
)

// Variant selects which units and records a deployment declares.
type Variant string

const (
	// VariantFull declares every unit and record.
	VariantFull Variant = "full"
	// VariantPartial declares the project record only, without a cluster.
	VariantPartial Variant = "partial"
	// VariantSkeleton declares the execution role only.
	VariantSkeleton Variant = "skeleton"
)

// ErrUnknownVariant is returned by ParseVariant.
var ErrUnknownVariant = errors.New("unknown variant")

// Variants lists the supported variants.
var Variants = []Variant{VariantFull, VariantPartial, VariantSkeleton}

// ParseVariant parses a variant name.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownVariant)
}

// Topology records which optional parts of a deployment are declared.
type Topology struct {
	Project      bool
	DatabaseUser bool
	AccessList   bool
	Network      bool
	Cluster      bool
}

// Topology returns the parts declared by v. Unknown variants declare nothing.
func (v Variant) Topology() Topology {
	switch v {
	case VariantFull:
		return Topology{Project: true, DatabaseUser: true, AccessList: true, Network: true, Cluster: true}
	case VariantPartial:
		return Topology{Project: true}
	default:
		return Topology{}
	}
}

// ResourceKinds returns the Atlas types the topology uses, in activation
// order.
func (t Topology) ResourceKinds() []string {
	var kinds []string
	if t.Project {
		kinds = append(kinds, mongodbatlas.TypeProject)
	}
	if t.Project && t.DatabaseUser {
		kinds = append(kinds, mongodbatlas.TypeDatabaseUser)
	}
	if t.Project && t.AccessList {
		kinds = append(kinds, mongodbatlas.TypeProjectIpAccessList)
	}
	if t.Project && t.Cluster {
		kinds = append(kinds, mongodbatlas.TypeCluster)
	}
	if t.Project && t.Network {
		kinds = append(kinds, mongodbatlas.TypeNetworkContainer, mongodbatlas.TypeNetworkPeering)
	}
	return kinds
}
