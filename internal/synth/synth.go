// Package synth turns a construct tree into a cloud assembly: one
// CloudFormation template per stack plus a manifest.
//
// Synthesis runs in two passes. The first serializes every resource and
// rewrites references that cross stack boundaries:
//
//   - sibling nested stacks: the producer gains an Output, the consumer a
//     String Parameter, and the parent passes
//     Fn::GetAtt [<Producer>NestedStackResource, Outputs.<Name>] into it
//   - parent to nested stack: the parent passes the value as a Parameter
//   - nested stack to parent: the parent reads the child's Output
//
// The second pass builds templates children first, hashes each nested
// template and points the parent's TemplateURL at the content-addressed
// object key.
package synth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/intrinsics"
	"github.com/lex00/wetwire-atlas-go/internal/construct"
	"github.com/lex00/wetwire-atlas-go/internal/serialize"
	"github.com/lex00/wetwire-atlas-go/internal/template"
	"github.com/lex00/wetwire-atlas-go/resources/cloudformation"
)

// DefaultAssetBucket is where nested templates are expected to be published.
// It is resolved by CloudFormation through Fn::Sub.
const DefaultAssetBucket = "wetwire-atlas-assets-${AWS::AccountId}-${AWS::Region}"

var (
	// ErrUnsupportedReference is returned for references between stacks
	// that are neither siblings nor parent and child.
	ErrUnsupportedReference = errors.New("unsupported cross-stack reference")

	// ErrUnknownStack is returned for references to stacks outside the app.
	ErrUnknownStack = errors.New("reference to unknown stack")

	// ErrUnknownResource is returned for references to undeclared resources.
	ErrUnknownResource = errors.New("reference to unknown resource")
)

// Options configures synthesis.
type Options struct {
	// AssetBucket hosts nested templates; may contain ${AWS::Region} and
	// ${AWS::AccountId}. Defaults to DefaultAssetBucket.
	AssetBucket string
	// AssetPrefix is prepended to every object key.
	AssetPrefix string
	Logger      *zap.Logger
}

// stackState accumulates the template pieces of one stack during pass one.
type stackState struct {
	stack      *construct.Stack
	entries    map[string]template.Entry
	parameters map[string]wetwire.Parameter
	outputs    map[string]wetwire.Output
	// nestedParams holds, per child stack path, the Parameters property of
	// the child's nested stack resource.
	nestedParams map[string]map[string]any
	// nestedRefs holds, per child stack path, the logical ids the child's
	// nested stack resource references.
	nestedRefs map[string][]string
}

type synthesizer struct {
	opts   Options
	logger *zap.Logger
	app    *construct.App
	states map[string]*stackState
}

// Synthesize builds the cloud assembly for every root stack of app.
func Synthesize(app *construct.App, opts Options) (*Assembly, error) {
	if opts.AssetBucket == "" {
		opts.AssetBucket = DefaultAssetBucket
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &synthesizer{
		opts:   opts,
		logger: logger,
		app:    app,
		states: make(map[string]*stackState),
	}

	stacks := app.AllStacks()
	for _, stack := range stacks {
		s.states[stack.Path()] = &stackState{
			stack:        stack,
			entries:      make(map[string]template.Entry),
			parameters:   make(map[string]wetwire.Parameter),
			outputs:      make(map[string]wetwire.Output),
			nestedParams: make(map[string]map[string]any),
			nestedRefs:   make(map[string][]string),
		}
	}

	for _, stack := range stacks {
		if err := s.serializeStack(stack); err != nil {
			return nil, fmt.Errorf("synthesizing %s: %w", stack.Path(), err)
		}
	}

	assembly := &Assembly{
		AssetBucket: opts.AssetBucket,
		AssetPrefix: opts.AssetPrefix,
	}
	for _, root := range app.Stacks() {
		if _, err := s.buildStack(root, assembly); err != nil {
			return nil, err
		}
	}
	assembly.sortStacks(stacks)

	logger.Info("synthesized assembly",
		zap.Int("stacks", len(assembly.Stacks)),
		zap.String("assetBucket", opts.AssetBucket))
	return assembly, nil
}

// serializeStack runs pass one for a single stack.
func (s *synthesizer) serializeStack(stack *construct.Stack) error {
	state := s.states[stack.Path()]

	for _, res := range stack.Resources() {
		var refs []string
		ser := &serialize.Serializer{
			Resolve: func(ref wetwire.AttrRef) (any, error) {
				value, local, err := s.resolve(stack, ref)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", res.LogicalID(), err)
				}
				if local != "" {
					refs = append(refs, local)
				}
				return value, nil
			},
		}

		props, err := ser.Resource(res.Value())
		if err != nil {
			return fmt.Errorf("serializing %s: %w", res.LogicalID(), err)
		}

		state.entries[res.LogicalID()] = template.Entry{
			Type:       res.Type(),
			Properties: props,
			DependsOn:  res.DependsOn(),
			References: refs,
		}
	}

	for _, out := range stack.Outputs() {
		var refs []string
		ser := &serialize.Serializer{
			Resolve: func(ref wetwire.AttrRef) (any, error) {
				value, local, err := s.resolve(stack, ref)
				if local != "" {
					refs = append(refs, local)
				}
				return value, err
			},
		}
		value, err := ser.Value(out.Value)
		if err != nil {
			return fmt.Errorf("output %s: %w", out.Name, err)
		}
		state.outputs[out.Name] = wetwire.Output{Description: out.Description, Value: value}
	}

	return nil
}

// resolve rewrites ref as seen from consumer. It returns the value to place
// in the consumer's template and, when the value references a resource of
// the consumer's own template, that resource's logical id.
func (s *synthesizer) resolve(consumer *construct.Stack, ref wetwire.AttrRef) (any, string, error) {
	producerPath := ref.Stack
	if producerPath == "" {
		producerPath = consumer.Path()
	}
	producerState, ok := s.states[producerPath]
	if !ok {
		return nil, "", fmt.Errorf("%s: %w", producerPath, ErrUnknownStack)
	}
	producer := producerState.stack
	if _, ok := producer.Resource(ref.Resource); !ok {
		return nil, "", fmt.Errorf("%s/%s: %w", producerPath, ref.Resource, ErrUnknownResource)
	}

	local := wetwire.AttrRef{Resource: ref.Resource, Attribute: ref.Attribute}
	outputName := construct.SanitizeID(ref.Resource + outputSuffix(ref))

	switch {
	case producer == consumer:
		return local, ref.Resource, nil

	case producer.Parent() != nil && producer.Parent() == consumer.Parent():
		paramName := construct.SanitizeID(producer.ID() + outputName)
		if err := s.addOutput(producerState, outputName, local); err != nil {
			return nil, "", err
		}

		consumerState := s.states[consumer.Path()]
		consumerState.parameters[paramName] = wetwire.Parameter{
			Type:        "String",
			Description: fmt.Sprintf("%s of %s from %s", outputSuffix(ref), ref.Resource, producer.ID()),
		}

		parentState := s.states[consumer.Parent().Path()]
		s.passParameter(parentState, consumer, paramName,
			intrinsics.NestedOutput(producer.NestedStackLogicalID(), outputName),
			producer.NestedStackLogicalID())

		s.logger.Debug("cross-stack reference",
			zap.String("producer", producer.Path()),
			zap.String("consumer", consumer.Path()),
			zap.String("parameter", paramName))
		return intrinsics.Ref{LogicalName: paramName}, "", nil

	case consumer.Parent() == producer:
		paramName := outputName
		consumerState := s.states[consumer.Path()]
		consumerState.parameters[paramName] = wetwire.Parameter{
			Type:        "String",
			Description: fmt.Sprintf("%s of %s from %s", outputSuffix(ref), ref.Resource, producer.ID()),
		}
		s.passParameter(producerState, consumer, paramName, local, ref.Resource)
		return intrinsics.Ref{LogicalName: paramName}, "", nil

	case producer.Parent() == consumer:
		if err := s.addOutput(producerState, outputName, local); err != nil {
			return nil, "", err
		}
		return intrinsics.NestedOutput(producer.NestedStackLogicalID(), outputName), producer.NestedStackLogicalID(), nil

	default:
		return nil, "", fmt.Errorf("%s → %s: %w", producer.Path(), consumer.Path(), ErrUnsupportedReference)
	}
}

// addOutput exposes a resource reference as an output of producer's template.
func (s *synthesizer) addOutput(producer *stackState, name string, ref wetwire.AttrRef) error {
	value, err := (&serialize.Serializer{}).Value(ref)
	if err != nil {
		return err
	}
	producer.outputs[name] = wetwire.Output{Value: value}
	return nil
}

// passParameter records a Parameters entry on child's nested stack resource
// in parent's template.
func (s *synthesizer) passParameter(parent *stackState, child *construct.Stack, name string, value any, reference string) {
	params, ok := parent.nestedParams[child.Path()]
	if !ok {
		params = make(map[string]any)
		parent.nestedParams[child.Path()] = params
	}
	params[name] = value
	parent.nestedRefs[child.Path()] = append(parent.nestedRefs[child.Path()], reference)
}

func outputSuffix(ref wetwire.AttrRef) string {
	if ref.IsRef() {
		return "Ref"
	}
	return ref.Attribute
}

// buildStack runs pass two for stack and its descendants and returns the
// stack's artifact.
func (s *synthesizer) buildStack(stack *construct.Stack, assembly *Assembly) (*StackArtifact, error) {
	state := s.states[stack.Path()]

	builder := template.NewBuilder(stack.Description())
	for name, entry := range state.entries {
		if err := builder.AddResource(name, entry); err != nil {
			return nil, fmt.Errorf("%s: %w", stack.Path(), err)
		}
	}
	for name, param := range state.parameters {
		builder.AddParameter(name, param)
	}
	for name, output := range state.outputs {
		builder.AddOutput(name, output)
	}

	var children []string
	for _, child := range stack.Children() {
		artifact, err := s.buildStack(child, assembly)
		if err != nil {
			return nil, err
		}
		children = append(children, artifact.Path)

		entry, err := s.nestedStackEntry(state, child, artifact)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", child.Path(), err)
		}
		if err := builder.AddResource(child.NestedStackLogicalID(), entry); err != nil {
			return nil, fmt.Errorf("%s: %w", stack.Path(), err)
		}
	}

	tmpl, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", stack.Path(), err)
	}

	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", stack.Path(), err)
	}
	sum := sha256.Sum256(data)

	artifact := &StackArtifact{
		ID:           stack.ID(),
		Path:         stack.Path(),
		TemplateFile: stack.TemplateFile(),
		Hash:         hex.EncodeToString(sum[:]),
		Children:     children,
		Template:     tmpl,
		data:         data,
	}
	if parent := stack.Parent(); parent != nil {
		artifact.Parent = parent.Path()
		artifact.NestedStackLogicalID = stack.NestedStackLogicalID()
		artifact.ObjectKey = s.opts.AssetPrefix + artifact.Hash + ".json"
	}
	for _, dep := range stack.Dependencies() {
		artifact.Dependencies = append(artifact.Dependencies, dep.Path())
	}

	assembly.Stacks = append(assembly.Stacks, artifact)
	s.logger.Debug("built template",
		zap.String("stack", artifact.Path),
		zap.Int("resources", len(tmpl.Resources)),
		zap.String("hash", artifact.Hash))
	return artifact, nil
}

// nestedStackEntry builds the AWS::CloudFormation::Stack resource for child.
func (s *synthesizer) nestedStackEntry(parent *stackState, child *construct.Stack, artifact *StackArtifact) (template.Entry, error) {
	params := make(map[string]any, len(parent.nestedParams[child.Path()]))
	for name, value := range parent.nestedParams[child.Path()] {
		params[name] = value
	}

	nested := cloudformation.Stack{
		TemplateURL: intrinsics.Sub{String: TemplateURL(s.opts.AssetBucket, artifact.ObjectKey)},
		Parameters:  params,
	}
	props, err := serialize.Resource(nested)
	if err != nil {
		return template.Entry{}, err
	}

	var dependsOn []string
	for _, dep := range child.Dependencies() {
		dependsOn = append(dependsOn, dep.NestedStackLogicalID())
	}

	refs := append([]string(nil), parent.nestedRefs[child.Path()]...)
	sort.Strings(refs)

	return template.Entry{
		Type:       nested.ResourceType(),
		Properties: props,
		DependsOn:  dependsOn,
		References: refs,
	}, nil
}

// TemplateURL returns the Fn::Sub string of a nested template's S3 URL.
func TemplateURL(bucket, key string) string {
	return "https://s3.${AWS::Region}.${AWS::URLSuffix}/" + bucket + "/" + key
}
