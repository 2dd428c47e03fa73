// Package graph generates DOT and Mermaid format dependency graphs from a
// synthesized assembly.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	"github.com/lex00/wetwire-atlas-go/internal/synth"
	"github.com/lex00/wetwire-atlas-go/internal/template"
	"github.com/lex00/wetwire-atlas-go/resources/cloudformation"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// EdgeKind tells how one resource depends on another.
type EdgeKind string

const (
	EdgeDependsOn  EdgeKind = "dependsOn"
	EdgeRef        EdgeKind = "ref"
	EdgeGetAtt     EdgeKind = "getAtt"
	EdgeCrossStack EdgeKind = "crossStack"
)

// NodeID identifies a resource or parameter within its stack.
type NodeID struct {
	Stack string
	Name  string
}

func (n NodeID) String() string {
	return n.Stack + "/" + n.Name
}

// Edge points from a dependent resource to the one it depends on.
type Edge struct {
	From NodeID
	To   NodeID
	Kind EdgeKind
}

// Generator creates dependency graphs from synthesized assemblies.
type Generator struct {
	// IncludeParameters draws template parameters and the Refs to them.
	IncludeParameters bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(assembly *synth.Assembly, w io.Writer) error {
	graph := g.buildGraph(assembly)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(assembly *synth.Assembly) (string, error) {
	var sb strings.Builder
	if err := g.Generate(assembly, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildGraph creates the dot.Graph structure, one cluster per stack.
func (g *Generator) buildGraph(assembly *synth.Assembly) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	nodes := make(map[NodeID]dot.Node)
	for _, s := range assembly.Stacks {
		if s.Template == nil {
			continue
		}
		cluster := graph.Subgraph(s.Path, dot.ClusterOption{})
		cluster.Attr("label", s.Path)
		cluster.Attr("style", "rounded")
		if s.Parent == "" {
			cluster.Attr("bgcolor", "lightyellow")
		}

		for _, name := range sortedKeys(s.Template.Resources) {
			id := NodeID{Stack: s.Path, Name: name}
			n := cluster.Node(id.String())
			n.Label(name + "\\n[" + s.Template.Resources[name].Type + "]")
			nodes[id] = n
		}

		if g.IncludeParameters {
			for _, name := range sortedKeys(s.Template.Parameters) {
				id := NodeID{Stack: s.Path, Name: name}
				n := cluster.Node(id.String())
				n.Attr("shape", "ellipse")
				n.Attr("style", "dashed")
				n.Label(name)
				nodes[id] = n
			}
		}
	}

	for _, edge := range Edges(assembly, g.IncludeParameters) {
		from, ok1 := nodes[edge.From]
		to, ok2 := nodes[edge.To]
		if !ok1 || !ok2 {
			continue
		}
		e := graph.Edge(from, to)
		switch edge.Kind {
		case EdgeDependsOn:
			e.Attr("style", "bold")
		case EdgeGetAtt:
			e.Attr("color", "blue")
		case EdgeCrossStack:
			e.Attr("style", "dashed")
			e.Attr("color", "darkgreen")
		}
	}

	return graph
}

// Edges lists the dependencies between resources of the assembly, sorted.
// Values handed between stacks through nested stack parameters and outputs
// become a single cross-stack edge from consumer to producer.
func Edges(assembly *synth.Assembly, includeParameters bool) []Edge {
	seen := make(map[Edge]bool)
	add := func(e Edge) {
		if e.From != e.To {
			seen[e] = true
		}
	}

	for _, s := range assembly.Stacks {
		if s.Template == nil {
			continue
		}
		children := childrenByLogicalID(assembly, s)

		for name, res := range s.Template.Resources {
			from := NodeID{Stack: s.Path, Name: name}
			for _, dep := range res.DependsOn {
				add(Edge{From: from, To: NodeID{Stack: s.Path, Name: dep}, Kind: EdgeDependsOn})
			}

			for _, ref := range template.References(res.Properties) {
				if ref.IsPseudo() {
					continue
				}
				if _, ok := s.Template.Resources[ref.Target]; ok {
					kind := EdgeGetAtt
					if ref.IsRef() {
						kind = EdgeRef
					}
					add(Edge{From: from, To: NodeID{Stack: s.Path, Name: ref.Target}, Kind: kind})

					// child to parent: a parent resource reading a nested output
					if child, ok := children[ref.Target]; ok && res.Type != cloudformation.StackResourceType {
						if to, ok := outputProducer(child, ref); ok {
							add(Edge{From: from, To: to, Kind: EdgeCrossStack})
						}
					}
					continue
				}
				if _, ok := s.Template.Parameters[ref.Target]; ok {
					if includeParameters {
						add(Edge{From: from, To: NodeID{Stack: s.Path, Name: ref.Target}, Kind: EdgeRef})
					}
					if to, ok := parameterProducer(assembly, s, ref.Target); ok {
						add(Edge{From: from, To: to, Kind: EdgeCrossStack})
					}
				}
			}
		}
	}

	edges := make([]Edge, 0, len(seen))
	for e := range seen {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From.String() < b.From.String()
		}
		if a.To != b.To {
			return a.To.String() < b.To.String()
		}
		return a.Kind < b.Kind
	})
	return edges
}

// parameterProducer finds the resource whose value the parent passes to
// the nested stack s as parameter param.
func parameterProducer(assembly *synth.Assembly, s *synth.StackArtifact, param string) (NodeID, bool) {
	parent, ok := assembly.Stack(s.Parent)
	if !ok || parent.Template == nil {
		return NodeID{}, false
	}
	nested, ok := parent.Template.Resources[s.NestedStackLogicalID]
	if !ok {
		return NodeID{}, false
	}
	params, _ := nested.Properties["Parameters"].(map[string]any)
	refs := template.References(params[param])
	if len(refs) != 1 {
		return NodeID{}, false
	}
	ref := refs[0]

	if sibling, ok := childrenByLogicalID(assembly, parent)[ref.Target]; ok {
		return outputProducer(sibling, ref)
	}
	if _, ok := parent.Template.Resources[ref.Target]; ok {
		return NodeID{Stack: parent.Path, Name: ref.Target}, true
	}
	return NodeID{}, false
}

// outputProducer follows a GetAtt of Outputs.<name> on a nested stack
// resource to the resource behind that output.
func outputProducer(child *synth.StackArtifact, ref template.Reference) (NodeID, bool) {
	name, ok := strings.CutPrefix(ref.Attribute, "Outputs.")
	if !ok || child.Template == nil {
		return NodeID{}, false
	}
	output, ok := child.Template.Outputs[name]
	if !ok {
		return NodeID{}, false
	}
	for _, r := range template.References(output.Value) {
		if _, ok := child.Template.Resources[r.Target]; ok {
			return NodeID{Stack: child.Path, Name: r.Target}, true
		}
	}
	return NodeID{}, false
}

func childrenByLogicalID(assembly *synth.Assembly, s *synth.StackArtifact) map[string]*synth.StackArtifact {
	children := make(map[string]*synth.StackArtifact, len(s.Children))
	for _, path := range s.Children {
		if child, ok := assembly.Stack(path); ok {
			children[child.NestedStackLogicalID] = child
		}
	}
	return children
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
