package core

import (
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// Pipeline owns the full set of nodes, builds their dependency graph and
// runs them in topological order. Unlike the teacher's commit-driven
// scheduler, siteloom's graph never changes shape once resolved: a single
// Initialize/Run pass walks every node exactly once per build (spec.md §5).
type Pipeline struct {
	buildDir string
	cache    CacheStore
	logger   Logger
	fs       billy.Filesystem

	byName map[string]Node
	order  []string // insertion order, used for stable iteration in Initialize and cycleError

	// resolver, when set via SetResolver, resolves every Input (GlobInput,
	// ListInput, RefInput) a running node's Context may be asked to expand.
	// It is kept out of NewPipeline's signature so internal/core has no
	// compile-time dependency on internal/resolve.
	resolver func(Input) ([]string, error)

	graph       *depGraph
	execOrder   []string
	outputs     map[string][]NodeOutput
	initialized bool

	// OnNodeStart, if set, is called immediately before each node runs,
	// mirroring the teacher's Pipeline.OnProgress hook so a CLI front-end
	// can drive a progress bar without Run itself depending on one.
	OnNodeStart func(name string, index, total int)
}

// NewPipeline constructs an empty Pipeline rooted at buildDir, persisting
// cache state through cache, logging progress through logger, and reading
// project files through fs.
func NewPipeline(buildDir string, cache CacheStore, logger Logger, fs billy.Filesystem) *Pipeline {
	return &Pipeline{
		buildDir: buildDir,
		cache:    cache,
		logger:   logger,
		fs:       fs,
		byName:   map[string]Node{},
		outputs:  map[string][]NodeOutput{},
	}
}

// SetResolver installs the function used to resolve every Input a running
// node's Context may be asked to expand. The root package wires this to
// internal/resolve.Resolve so that internal/core itself stays free of a
// dependency on the filesystem-facing resolver.
func (p *Pipeline) SetResolver(resolver func(Input) ([]string, error)) {
	p.resolver = resolver
}

// AddNode registers a node under its Name(). If the node also implements
// OnAddedToPipeline, that hook runs immediately, giving composite nodes
// the chance to register their internal sub-nodes (spec.md §4.8).
func (p *Pipeline) AddNode(n Node) error {
	name := n.Name()
	if name == "" {
		return errors.New("node has empty name")
	}
	if _, exists := p.byName[name]; exists {
		return errors.Errorf("duplicate node name: %s", name)
	}
	p.byName[name] = n
	p.order = append(p.order, name)
	p.initialized = false

	if composite, ok := n.(OnAddedToPipeline); ok {
		if err := composite.OnAddedToPipeline(p); err != nil {
			return errors.Wrapf(err, "node %q: OnAddedToPipeline", name)
		}
	}
	return nil
}

// Node returns a previously added node by name.
func (p *Pipeline) Node(name string) (Node, bool) {
	n, ok := p.byName[name]
	return n, ok
}

// Initialize builds the dependency graph from every node's explicit
// dependencies plus the NodeOutputRef edges inferred from its Items() and
// Config(), then computes an execution order. It must be called (directly,
// or implicitly via Run) after every AddNode call and before the pipeline
// runs.
func (p *Pipeline) Initialize() error {
	g := newDepGraph()
	for _, name := range p.order {
		g.addNode(name)
	}

	for _, name := range p.order {
		n := p.byName[name]
		deps := map[string]struct{}{}

		for _, dep := range n.ExplicitDependencies() {
			deps[dep] = struct{}{}
		}
		for _, ref := range collectNodeOutputRefs(n) {
			deps[ref.Node] = struct{}{}
		}

		sorted := make([]string, 0, len(deps))
		for dep := range deps {
			sorted = append(sorted, dep)
		}
		sort.Strings(sorted)

		for _, dep := range sorted {
			if _, ok := p.byName[dep]; !ok {
				return errors.Errorf("node %q depends on unknown node %q", name, dep)
			}
			g.addEdge(dep, name)
		}
	}

	order, ok := g.order()
	if !ok {
		return p.cycleError(g)
	}

	p.graph = g
	p.execOrder = order
	p.initialized = true
	return nil
}

// cycleError finds and formats the first cycle reachable from any node,
// so a malformed graph is reported with the offending chain of names
// rather than a bare "not a DAG".
func (p *Pipeline) cycleError(g *depGraph) error {
	for _, name := range p.order {
		if cycle := g.cycleThrough(name); len(cycle) > 0 {
			return errors.Errorf("dependency cycle detected: %v", cycle)
		}
	}
	return errors.New("dependency cycle detected")
}

// collectNodeOutputRefs scans a node's Items() and Config() for embedded
// NodeOutputRef values, which is how siteloom infers edges without a node
// having to declare them as ExplicitDependencies (spec.md §4.7).
func collectNodeOutputRefs(n Node) []NodeOutputRef {
	var refs []NodeOutputRef
	refs = append(refs, refsFromInput(n.Items())...)
	for _, v := range n.Config() {
		if ref, ok := v.AsNodeOutputRef(); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func refsFromInput(in Input) []NodeOutputRef {
	switch v := in.(type) {
	case nil:
		return nil
	case RefInput:
		return []NodeOutputRef{NodeOutputRef(v)}
	case ListInput:
		var refs []NodeOutputRef
		for _, item := range v {
			refs = append(refs, refsFromInput(item)...)
		}
		return refs
	default:
		return nil
	}
}

// Run executes every node in dependency order, threading a fresh Context
// through each call and recording its reported NodeOutputs for downstream
// consumption via GetNodeOutputs. Run calls Initialize automatically if the
// node set has changed since the last call.
func (p *Pipeline) Run() error {
	if !p.initialized {
		if err := p.Initialize(); err != nil {
			return err
		}
	}

	resolve := p.resolver
	if resolve == nil {
		resolve = func(Input) ([]string, error) {
			return nil, errors.New("pipeline has no resolver configured; call SetResolver first")
		}
	}

	for i, name := range p.execOrder {
		n := p.byName[name]
		ctx := NewContext(p.buildDir, p.cache, p.logger, p.fs, resolve, p.getNodeOutputs)

		if p.OnNodeStart != nil {
			p.OnNodeStart(name, i, len(p.execOrder))
		}
		if p.logger != nil {
			p.logger.Infof("running node %q", name)
		}

		outputs, err := n.Run(ctx)
		if err != nil {
			return errors.Wrapf(err, "node %q", name)
		}
		p.outputs[name] = outputs
	}
	return nil
}

// GetNodeOutputs returns a previously-run node's reported outputs by name.
func (p *Pipeline) GetNodeOutputs(name string) ([]NodeOutput, bool) {
	return p.getNodeOutputs(name)
}

// getNodeOutputs backs Context.GetNodeOutputs: it looks up a node's
// recorded output by name, reporting ok=false until that node has run.
func (p *Pipeline) getNodeOutputs(name string) ([]NodeOutput, bool) {
	outputs, ok := p.outputs[name]
	return outputs, ok
}

// ExecutionOrder returns the resolved node names in the order Run executes
// them. It is used by the CLI's --dag flag and by tests asserting ordering.
func (p *Pipeline) ExecutionOrder() []string {
	return append([]string(nil), p.execOrder...)
}
