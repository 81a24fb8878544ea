package core

// Node is the contract every pipeline unit of work implements. It mirrors
// the teacher's PipelineItem capability-interface shape: a small required
// surface (Name/Items/Config/OutputConfig/ExplicitDependencies/Run) plus
// optional capability interfaces a concrete node may additionally satisfy
// (OnAddedToPipeline).
type Node interface {
	// Name returns the node's unique, printable name.
	Name() string
	// Items returns the variable input the node iterates over, or nil for
	// a "no-source" node driven entirely by its own processing config.
	Items() Input
	// Config returns the processing config: the only part of a node that
	// contributes to its content signature.
	Config() map[string]Value
	// OutputConfig returns presentation-only decisions (output directory,
	// filename mapping, extension, ...) which never affect the content
	// signature.
	OutputConfig() map[string]interface{}
	// ExplicitDependencies returns the names of nodes this node must run
	// after, regardless of any inferred NodeOutputRef edge.
	ExplicitDependencies() []string
	// Run executes the node against the current pipeline context and
	// returns its keyed output sets, typically one per processed item.
	Run(ctx *Context) ([]NodeOutput, error)
}

// OnAddedToPipeline is an optional capability a composite Node implements
// to register its internal sub-nodes with the pipeline at the moment it is
// added, per spec.md §4.8.
type OnAddedToPipeline interface {
	OnAddedToPipeline(p *Pipeline) error
}

// KindTagger is an optional capability a Node implements to name the
// "kind tag" prefix used in its content signature (spec.md §3). Nodes
// which do not implement it are tagged with their Name().
type KindTagger interface {
	KindTag() string
}

// KindTagOf returns n's KindTag() if it implements KindTagger, or its
// Name() otherwise.
func KindTagOf(n Node) string {
	if kt, ok := n.(KindTagger); ok {
		return kt.KindTag()
	}
	return n.Name()
}
