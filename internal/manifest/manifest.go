// Package manifest loads a YAML pipeline declaration and wires it into a
// core.Pipeline, resolving each declared node's "kind" against a Registry
// of constructors. This is the simplified, reflect-free descendant of the
// teacher's flag-driven PipelineItemRegistry: instead of cobra/pflag
// feature flags selecting leaves at runtime, a manifest file lists the
// nodes a build wants, by kind name, up front.
package manifest

import (
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kjhansen/siteloom/internal/core"
	"github.com/kjhansen/siteloom/internal/resolve"
)

// InputSpec is the YAML shape of a core.Input: exactly one of Glob, List or
// Ref must be set.
type InputSpec struct {
	Glob string      `yaml:"glob,omitempty"`
	List []InputSpec `yaml:"list,omitempty"`
	Ref  *RefSpec    `yaml:"ref,omitempty"`
}

// RefSpec is the YAML shape of a core.NodeOutputRef.
type RefSpec struct {
	Node string `yaml:"node"`
	Key  string `yaml:"key"`
	Glob string `yaml:"glob,omitempty"`
}

// ToInput converts an InputSpec (or a nil pointer, meaning "no items") into
// a core.Input.
func (s *InputSpec) ToInput() core.Input {
	if s == nil {
		return nil
	}
	if s.Ref != nil {
		return core.RefInput{Node: s.Ref.Node, Key: s.Ref.Key, Glob: s.Ref.Glob}
	}
	if len(s.List) > 0 {
		list := make(core.ListInput, len(s.List))
		for i := range s.List {
			list[i] = s.List[i].ToInput()
		}
		return list
	}
	if s.Glob != "" {
		return core.GlobInput(s.Glob)
	}
	return nil
}

// ConfigValueSpec is the YAML shape of one core.Value: exactly one of
// Plain, FileRef or Ref is set; an entry with none of the three is treated
// as a plain nil.
type ConfigValueSpec struct {
	Plain   interface{} `yaml:"value,omitempty"`
	FileRef string      `yaml:"fileRef,omitempty"`
	Ref     *RefSpec    `yaml:"ref,omitempty"`
}

// ToValue converts a ConfigValueSpec into a core.Value.
func (s ConfigValueSpec) ToValue() core.Value {
	if s.FileRef != "" {
		return core.FileRefValue(core.FileRef{Path: s.FileRef})
	}
	if s.Ref != nil {
		return core.NodeOutputRefValue(core.NodeOutputRef{Node: s.Ref.Node, Key: s.Ref.Key, Glob: s.Ref.Glob})
	}
	return core.PlainValue(s.Plain)
}

// NodeSpec is one manifest entry: a node's kind (resolved against a
// Registry), its name, and everything a core.Node needs to be built.
type NodeSpec struct {
	Name      string                     `yaml:"name"`
	Kind      string                     `yaml:"kind"`
	Items     *InputSpec                 `yaml:"items,omitempty"`
	Config    map[string]ConfigValueSpec `yaml:"config,omitempty"`
	Output    map[string]interface{}     `yaml:"output,omitempty"`
	DependsOn []string                   `yaml:"dependsOn,omitempty"`
}

// Manifest is the top-level YAML document: the build directory and the
// ordered list of nodes to construct.
type Manifest struct {
	BuildDir string     `yaml:"buildDir"`
	Nodes    []NodeSpec `yaml:"nodes"`
}

// Load parses a YAML manifest document. It does not build any node; use
// Registry.BuildPipeline to turn a parsed Manifest into a core.Pipeline.
func Load(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "manifest: parse yaml")
	}
	if m.BuildDir == "" {
		return nil, errors.New("manifest: buildDir is required")
	}
	seen := map[string]struct{}{}
	for _, n := range m.Nodes {
		if n.Name == "" {
			return nil, errors.New("manifest: node with empty name")
		}
		if n.Kind == "" {
			return nil, errors.Errorf("manifest: node %q has no kind", n.Name)
		}
		if _, dup := seen[n.Name]; dup {
			return nil, errors.Errorf("manifest: duplicate node name %q", n.Name)
		}
		seen[n.Name] = struct{}{}
	}
	return &m, nil
}

// Constructor builds one concrete core.Node from its manifest declaration.
type Constructor func(spec NodeSpec) (core.Node, error)

// Registry maps a manifest "kind" string to the Constructor that builds it,
// the YAML-manifest analogue of the teacher's PipelineItemRegistry lookup
// by flag name — but a plain map, since siteloom has no runtime plugin
// loading or cobra flag surface to reconcile against.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

// Register associates kind with a Constructor. Registering the same kind
// twice is an error, mirroring the teacher's refusal to register two
// PipelineItems under the same name.
func (r *Registry) Register(kind string, ctor Constructor) error {
	if _, exists := r.constructors[kind]; exists {
		return errors.Errorf("manifest: kind %q already registered", kind)
	}
	r.constructors[kind] = ctor
	return nil
}

// Kinds returns every registered kind name, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.constructors))
	for k := range r.constructors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// BuildPipeline constructs a core.Pipeline from m, resolving every node's
// kind against r, wiring each node's DependsOn into ExplicitDependencies,
// and installing a resolver backed by internal/resolve over fs. It does
// not call Pipeline.Initialize; the caller does that (or lets Pipeline.Run
// do it implicitly).
func (r *Registry) BuildPipeline(m *Manifest, cacheStore core.CacheStore, logger core.Logger, fs billy.Filesystem) (*core.Pipeline, error) {
	p := core.NewPipeline(m.BuildDir, cacheStore, logger, fs)

	for _, spec := range m.Nodes {
		ctor, ok := r.constructors[spec.Kind]
		if !ok {
			return nil, errors.Errorf("manifest: node %q: unknown kind %q (known: %v)", spec.Name, spec.Kind, r.Kinds())
		}
		built, err := ctor(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest: node %q: construct", spec.Name)
		}
		if err := p.AddNode(&node{Node: built, dependsOn: spec.DependsOn}); err != nil {
			return nil, errors.Wrapf(err, "manifest: node %q: add", spec.Name)
		}
	}

	p.SetResolver(func(in core.Input) ([]string, error) {
		return resolve.Resolve(fs, m.BuildDir, in, resolve.NodeOutputs(p.GetNodeOutputs))
	})

	return p, nil
}

// node wraps a constructed core.Node to additionally report the
// DependsOn list from its manifest declaration as ExplicitDependencies,
// without requiring every Constructor to thread that plumbing through
// itself.
type node struct {
	core.Node
	dependsOn []string
}

func (n *node) ExplicitDependencies() []string {
	combined := append([]string(nil), n.Node.ExplicitDependencies()...)
	combined = append(combined, n.dependsOn...)
	return combined
}
