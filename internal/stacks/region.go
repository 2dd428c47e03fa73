package stacks

import "strings"

// AtlasRegionName converts an AWS region to Atlas region notation.
//
//	AtlasRegionName("eu-west-1") → "EU_WEST_1"
func AtlasRegionName(region string) string {
	return strings.ToUpper(strings.ReplaceAll(region, "-", "_"))
}
