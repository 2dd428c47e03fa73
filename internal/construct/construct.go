// Package construct provides the in-memory tree of stacks and resources that
// a deployment is declared as.
//
// An App holds root stacks; a Stack holds resources and nested stacks. The
// tree is built once, synchronously, and handed to the synthesizer:
//
//	app := construct.NewApp()
//	root, _ := construct.NewStack(app, "DemoStack", nil)
//	project, _ := construct.NewNestedStack(root, "ProjectStack", nil)
//	res, _ := project.AddResource("AtlasProject", &mongodbatlas.Project{...})
//	res.GetAtt("Id") // usable as a property value anywhere in the tree
package construct

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	wetwire "github.com/lex00/wetwire-atlas-go"
)

var (
	// ErrInvalidID is returned for ids that are empty after sanitisation.
	ErrInvalidID = errors.New("invalid construct id")

	// ErrDuplicateID is returned when an id is already used in the same scope.
	ErrDuplicateID = errors.New("duplicate construct id")

	// ErrInvalidDependency is returned for dependencies between stacks that
	// are not siblings, or between resources of different stacks.
	ErrInvalidDependency = errors.New("invalid dependency")
)

// App is the root of a construct tree.
type App struct {
	stacks []*Stack
}

// NewApp creates an empty app.
func NewApp() *App {
	return &App{}
}

// Stacks returns the root stacks in creation order.
func (a *App) Stacks() []*Stack {
	return append([]*Stack(nil), a.stacks...)
}

// AllStacks returns every stack of the tree, parents before children.
func (a *App) AllStacks() []*Stack {
	var out []*Stack
	var walk func(s *Stack)
	walk = func(s *Stack) {
		out = append(out, s)
		for _, c := range s.children {
			walk(c)
		}
	}
	for _, s := range a.stacks {
		walk(s)
	}
	return out
}

// FindStack returns the stack at path (e.g. "DemoStack/ProjectStack").
func (a *App) FindStack(path string) (*Stack, bool) {
	for _, s := range a.AllStacks() {
		if s.Path() == path {
			return s, true
		}
	}
	return nil, false
}

// StackProps configures a stack.
type StackProps struct {
	Description string
}

// Stack is a unit of deployment. Root stacks become top-level templates;
// nested stacks become AWS::CloudFormation::Stack resources of their parent.
type Stack struct {
	app         *App
	id          string
	parent      *Stack
	description string

	children  []*Stack
	resources []*Resource
	byID      map[string]*Resource
	deps      []*Stack
	outputs   []Output
}

// Output is an output declared explicitly on a stack.
type Output struct {
	Name        string
	Description string
	Value       any
}

// NewStack adds a root stack to app.
func NewStack(app *App, id string, props *StackProps) (*Stack, error) {
	logicalID := SanitizeID(id)
	if logicalID == "" {
		return nil, fmt.Errorf("stack %q: %w", id, ErrInvalidID)
	}
	for _, s := range app.stacks {
		if s.id == logicalID {
			return nil, fmt.Errorf("stack %q: %w", id, ErrDuplicateID)
		}
	}

	s := newStack(app, logicalID, nil, props)
	app.stacks = append(app.stacks, s)
	return s, nil
}

// NewNestedStack adds a nested stack to parent.
func NewNestedStack(parent *Stack, id string, props *StackProps) (*Stack, error) {
	logicalID := SanitizeID(id)
	if logicalID == "" {
		return nil, fmt.Errorf("nested stack %q: %w", id, ErrInvalidID)
	}
	for _, c := range parent.children {
		if c.id == logicalID {
			return nil, fmt.Errorf("nested stack %q in %s: %w", id, parent.Path(), ErrDuplicateID)
		}
	}
	if _, exists := parent.byID[nestedStackLogicalID(logicalID)]; exists {
		return nil, fmt.Errorf("nested stack %q in %s: %w", id, parent.Path(), ErrDuplicateID)
	}

	s := newStack(parent.app, logicalID, parent, props)
	parent.children = append(parent.children, s)
	return s, nil
}

func newStack(app *App, id string, parent *Stack, props *StackProps) *Stack {
	s := &Stack{
		app:    app,
		id:     id,
		parent: parent,
		byID:   make(map[string]*Resource),
	}
	if props != nil {
		s.description = props.Description
	}
	return s
}

// ID returns the stack id.
func (s *Stack) ID() string { return s.id }

// Description returns the template description.
func (s *Stack) Description() string { return s.description }

// Parent returns the parent stack, or nil for a root stack.
func (s *Stack) Parent() *Stack { return s.parent }

// IsNested reports whether the stack has a parent.
func (s *Stack) IsNested() bool { return s.parent != nil }

// App returns the app the stack belongs to.
func (s *Stack) App() *App { return s.app }

// Root returns the root stack of the tree s belongs to.
func (s *Stack) Root() *Stack {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Path returns the slash-separated ids from the root stack to s.
func (s *Stack) Path() string {
	if s.parent == nil {
		return s.id
	}
	return s.parent.Path() + "/" + s.id
}

// Children returns the nested stacks in creation order.
func (s *Stack) Children() []*Stack {
	return append([]*Stack(nil), s.children...)
}

// Resources returns the resources in creation order.
func (s *Stack) Resources() []*Resource {
	return append([]*Resource(nil), s.resources...)
}

// Resource returns the resource with the given logical id.
func (s *Stack) Resource(logicalID string) (*Resource, bool) {
	r, ok := s.byID[logicalID]
	return r, ok
}

// TemplateFile returns the file name of the stack's synthesized template.
//
//	DemoStack              → DemoStack.template.json
//	DemoStack/ProjectStack → DemoStackProjectStack.nested.template.json
func (s *Stack) TemplateFile() string {
	if s.parent == nil {
		return s.id + ".template.json"
	}
	return strings.ReplaceAll(s.Path(), "/", "") + ".nested.template.json"
}

// NestedStackLogicalID returns the logical id of the AWS::CloudFormation::Stack
// resource that represents s in its parent's template.
func (s *Stack) NestedStackLogicalID() string {
	return nestedStackLogicalID(s.id)
}

func nestedStackLogicalID(id string) string {
	return id + "NestedStackResource"
}

// AddResource declares a resource in the stack under logicalID.
func (s *Stack) AddResource(logicalID string, value wetwire.Resource) (*Resource, error) {
	id := SanitizeID(logicalID)
	if id == "" {
		return nil, fmt.Errorf("resource %q in %s: %w", logicalID, s.Path(), ErrInvalidID)
	}
	if value == nil {
		return nil, fmt.Errorf("resource %q in %s: nil value", logicalID, s.Path())
	}
	if _, exists := s.byID[id]; exists {
		return nil, fmt.Errorf("resource %q in %s: %w", logicalID, s.Path(), ErrDuplicateID)
	}
	for _, c := range s.children {
		if c.NestedStackLogicalID() == id {
			return nil, fmt.Errorf("resource %q in %s: %w", logicalID, s.Path(), ErrDuplicateID)
		}
	}

	r := &Resource{stack: s, logicalID: id, value: value}
	s.resources = append(s.resources, r)
	s.byID[id] = r
	return r, nil
}

// AddDependency declares that s is deployed after target. Both stacks must
// be nested stacks of the same parent; the dependency becomes a DependsOn
// entry on s's nested stack resource.
func (s *Stack) AddDependency(target *Stack) error {
	if target == nil || target == s {
		return fmt.Errorf("%s depends on itself: %w", s.Path(), ErrInvalidDependency)
	}
	if s.parent == nil || s.parent != target.parent {
		return fmt.Errorf("%s → %s: stacks are not siblings: %w", s.Path(), target.Path(), ErrInvalidDependency)
	}
	for _, d := range s.deps {
		if d == target {
			return nil
		}
	}
	s.deps = append(s.deps, target)
	return nil
}

// Dependencies returns the stacks s was declared to depend on.
func (s *Stack) Dependencies() []*Stack {
	return append([]*Stack(nil), s.deps...)
}

// AddOutput declares an explicit output of the stack's template.
func (s *Stack) AddOutput(name string, value any, description string) error {
	id := SanitizeID(name)
	if id == "" {
		return fmt.Errorf("output %q in %s: %w", name, s.Path(), ErrInvalidID)
	}
	for _, o := range s.outputs {
		if o.Name == id {
			return fmt.Errorf("output %q in %s: %w", name, s.Path(), ErrDuplicateID)
		}
	}
	s.outputs = append(s.outputs, Output{Name: id, Description: description, Value: value})
	return nil
}

// Outputs returns the explicitly declared outputs.
func (s *Stack) Outputs() []Output {
	return append([]Output(nil), s.outputs...)
}

// Resource is a handle to a declared resource.
type Resource struct {
	stack     *Stack
	logicalID string
	value     wetwire.Resource
	dependsOn []*Resource
}

// LogicalID returns the resource's logical id in its template.
func (r *Resource) LogicalID() string { return r.logicalID }

// Type returns the CloudFormation resource type.
func (r *Resource) Type() string { return r.value.ResourceType() }

// Value returns the declared property struct.
func (r *Resource) Value() wetwire.Resource { return r.value }

// Stack returns the stack owning the resource.
func (r *Resource) Stack() *Stack { return r.stack }

// Ref returns a Ref reference to the resource.
func (r *Resource) Ref() wetwire.AttrRef {
	return wetwire.AttrRef{Stack: r.stack.Path(), Resource: r.logicalID}
}

// GetAtt returns a reference to one of the resource's attributes.
func (r *Resource) GetAtt(attribute string) wetwire.AttrRef {
	return wetwire.AttrRef{Stack: r.stack.Path(), Resource: r.logicalID, Attribute: attribute}
}

// AddDependsOn adds an explicit DependsOn entry. Both resources must belong
// to the same stack; use Stack.AddDependency across stacks.
func (r *Resource) AddDependsOn(target *Resource) error {
	if target == nil || target == r {
		return fmt.Errorf("%s depends on itself: %w", r.logicalID, ErrInvalidDependency)
	}
	if target.stack != r.stack {
		return fmt.Errorf("%s → %s: resources are in different stacks: %w", r.logicalID, target.logicalID, ErrInvalidDependency)
	}
	for _, d := range r.dependsOn {
		if d == target {
			return nil
		}
	}
	r.dependsOn = append(r.dependsOn, target)
	return nil
}

// DependsOn returns the logical ids of explicit dependencies.
func (r *Resource) DependsOn() []string {
	ids := make([]string, len(r.dependsOn))
	for i, d := range r.dependsOn {
		ids[i] = d.logicalID
	}
	return ids
}

// SanitizeID strips every character CloudFormation does not allow in a
// logical id (anything but ASCII letters and digits).
//
//	SanitizeID("TypeActivationMongoDB-Atlas-Project") → "TypeActivationMongoDBAtlasProject"
func SanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
