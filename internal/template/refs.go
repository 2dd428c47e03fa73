package template

import (
	"regexp"
	"sort"
	"strings"
)

// Reference is a Ref or Fn::GetAtt found in a template value.
type Reference struct {
	// Target is the logical id of a resource or parameter.
	Target string
	// Attribute is empty for Ref.
	Attribute string
}

// IsRef reports whether the reference is a Ref.
func (r Reference) IsRef() bool {
	return r.Attribute == ""
}

// IsPseudo reports whether the reference names a pseudo parameter such as
// AWS::Region.
func (r Reference) IsPseudo() bool {
	return strings.HasPrefix(r.Target, "AWS::")
}

var subVariable = regexp.MustCompile(`\$\{([^}!][^}]*)\}`)

// References collects every Ref, Fn::GetAtt and Fn::Sub variable in v,
// sorted and without duplicates.
func References(v any) []Reference {
	seen := make(map[Reference]bool)
	collectReferences(v, seen)

	refs := make([]Reference, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Target != refs[j].Target {
			return refs[i].Target < refs[j].Target
		}
		return refs[i].Attribute < refs[j].Attribute
	})
	return refs
}

func collectReferences(v any, seen map[Reference]bool) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if ref, ok := val["Ref"].(string); ok {
				seen[Reference{Target: ref}] = true
				return
			}
			if getAtt, ok := val["Fn::GetAtt"]; ok {
				if r, ok := parseGetAtt(getAtt); ok {
					seen[r] = true
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSub(sub, seen)
				return
			}
		}
		for _, x := range val {
			collectReferences(x, seen)
		}
	case []any:
		for _, x := range val {
			collectReferences(x, seen)
		}
	}
}

func parseGetAtt(v any) (Reference, bool) {
	switch val := v.(type) {
	case string:
		target, attr, ok := strings.Cut(val, ".")
		return Reference{Target: target, Attribute: attr}, ok
	case []any:
		if len(val) != 2 {
			return Reference{}, false
		}
		target, ok1 := val[0].(string)
		attr, ok2 := val[1].(string)
		return Reference{Target: target, Attribute: attr}, ok1 && ok2
	case []string:
		if len(val) != 2 {
			return Reference{}, false
		}
		return Reference{Target: val[0], Attribute: val[1]}, true
	}
	return Reference{}, false
}

func collectSub(v any, seen map[Reference]bool) {
	var text string
	locals := make(map[string]bool)

	switch val := v.(type) {
	case string:
		text = val
	case []any:
		if len(val) == 0 {
			return
		}
		text, _ = val[0].(string)
		if len(val) > 1 {
			if vars, ok := val[1].(map[string]any); ok {
				for name, x := range vars {
					locals[name] = true
					collectReferences(x, seen)
				}
			}
		}
	}

	for _, m := range subVariable.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if locals[name] {
			continue
		}
		target, attr, _ := strings.Cut(name, ".")
		if strings.HasPrefix(name, "AWS::") {
			target, attr = name, ""
		}
		seen[Reference{Target: target, Attribute: attr}] = true
	}
}
