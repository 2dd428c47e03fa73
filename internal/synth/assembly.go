package synth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/construct"
	"github.com/lex00/wetwire-atlas-go/internal/template"
)

// ManifestFile is the name of the manifest written next to the templates.
const ManifestFile = "manifest.json"

// manifestVersion is bumped when the manifest layout changes.
const manifestVersion = "1"

// ErrNoManifest is returned by ReadAssembly when dir holds no manifest.
var ErrNoManifest = errors.New("no assembly manifest found")

// Assembly is the synthesized output: one artifact per stack.
type Assembly struct {
	AssetBucket string           `json:"assetBucket"`
	AssetPrefix string           `json:"assetPrefix,omitempty"`
	Stacks      []*StackArtifact `json:"stacks"`
}

// StackArtifact is the synthesized template of one stack.
type StackArtifact struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Parent       string `json:"parent,omitempty"`
	TemplateFile string `json:"templateFile"`
	Hash         string `json:"hash"`
	// ObjectKey is the asset bucket key of a nested template.
	ObjectKey            string   `json:"objectKey,omitempty"`
	NestedStackLogicalID string   `json:"nestedStackLogicalId,omitempty"`
	Dependencies         []string `json:"dependencies,omitempty"`
	Children             []string `json:"children,omitempty"`

	Template *wetwire.Template `json:"-"`
	data     []byte
}

type manifest struct {
	Version string `json:"version"`
	*Assembly
}

// Stack returns the artifact of the stack at path.
func (a *Assembly) Stack(path string) (*StackArtifact, bool) {
	for _, s := range a.Stacks {
		if s.Path == path {
			return s, true
		}
	}
	return nil, false
}

// Roots returns the artifacts of root stacks.
func (a *Assembly) Roots() []*StackArtifact {
	var roots []*StackArtifact
	for _, s := range a.Stacks {
		if s.Parent == "" {
			roots = append(roots, s)
		}
	}
	return roots
}

// Nested returns the artifacts of nested stacks, the ones to publish.
func (a *Assembly) Nested() []*StackArtifact {
	var nested []*StackArtifact
	for _, s := range a.Stacks {
		if s.Parent != "" {
			nested = append(nested, s)
		}
	}
	return nested
}

// Data returns the encoded template, as written to TemplateFile.
func (s *StackArtifact) Data() ([]byte, error) {
	if s.data != nil {
		return s.data, nil
	}
	if s.Template == nil {
		return nil, fmt.Errorf("%s: template not loaded", s.Path)
	}
	return template.ToJSON(s.Template)
}

// sortStacks orders artifacts like the construct tree, parents first.
func (a *Assembly) sortStacks(order []*construct.Stack) {
	byPath := make(map[string]*StackArtifact, len(a.Stacks))
	for _, s := range a.Stacks {
		byPath[s.Path] = s
	}
	sorted := make([]*StackArtifact, 0, len(a.Stacks))
	for _, stack := range order {
		if artifact, ok := byPath[stack.Path()]; ok {
			sorted = append(sorted, artifact)
		}
	}
	a.Stacks = sorted
}

// Transform returns a new assembly whose templates are fn applied to the
// encoded templates of a. Templates are visited children first; a changed
// nested template gets a new hash and object key, and its parent's
// TemplateURL is rewritten before the parent is visited.
func (a *Assembly) Transform(fn func(s *StackArtifact, data []byte) ([]byte, error)) (*Assembly, error) {
	out := &Assembly{
		AssetBucket: a.AssetBucket,
		AssetPrefix: a.AssetPrefix,
		Stacks:      make([]*StackArtifact, len(a.Stacks)),
	}
	byPath := make(map[string]*StackArtifact, len(a.Stacks))
	original := make(map[string]*StackArtifact, len(a.Stacks))
	for _, s := range a.Stacks {
		original[s.Path] = s
	}

	for i := len(a.Stacks) - 1; i >= 0; i-- {
		s := a.Stacks[i]
		data, err := s.Data()
		if err != nil {
			return nil, err
		}

		for _, childPath := range s.Children {
			before, ok := original[childPath]
			after, done := byPath[childPath]
			if !ok || !done {
				return nil, fmt.Errorf("%s: child %s not transformed", s.Path, childPath)
			}
			if before.ObjectKey != after.ObjectKey {
				data = bytes.ReplaceAll(data, []byte(before.ObjectKey), []byte(after.ObjectKey))
			}
		}

		data, err = fn(s, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}
		tmpl, err := template.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}

		sum := sha256.Sum256(data)
		c := *s
		c.Template = tmpl
		c.data = data
		c.Hash = hex.EncodeToString(sum[:])
		if c.Parent != "" {
			c.ObjectKey = a.AssetPrefix + c.Hash + ".json"
		}

		out.Stacks[i] = &c
		byPath[c.Path] = &c
	}

	return out, nil
}

// Write writes every template and the manifest to dir and returns the
// paths of the written templates.
func (a *Assembly) Write(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	var written []string
	for _, s := range a.Stacks {
		data, err := s.Data()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, s.TemplateFile)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}

	data, err := json.MarshalIndent(manifest{Version: manifestVersion, Assembly: a}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	return written, nil
}

// ReadAssembly loads an assembly previously written to dir.
func ReadAssembly(dir string) (*Assembly, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoManifest)
		}
		return nil, err
	}

	m := manifest{Assembly: &Assembly{}}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %q", m.Version)
	}

	for _, s := range m.Stacks {
		raw, err := os.ReadFile(filepath.Join(dir, s.TemplateFile))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.TemplateFile, err)
		}
		tmpl, err := template.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.TemplateFile, err)
		}
		s.Template = tmpl
		s.data = raw
	}

	return m.Assembly, nil
}
