package core

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	name    string
	items   Input
	config  map[string]Value
	deps    []string
	runFunc func(ctx *Context) ([]NodeOutput, error)
}

func (n *fakeNode) Name() string                         { return n.name }
func (n *fakeNode) Items() Input                         { return n.items }
func (n *fakeNode) Config() map[string]Value             { return n.config }
func (n *fakeNode) OutputConfig() map[string]interface{} { return nil }
func (n *fakeNode) ExplicitDependencies() []string       { return n.deps }
func (n *fakeNode) Run(ctx *Context) ([]NodeOutput, error) {
	if n.runFunc != nil {
		return n.runFunc(ctx)
	}
	return []NodeOutput{{"default": {n.name + ".out"}}}, nil
}

type fakeCache struct{}

func (fakeCache) Get(ContentSignature, ItemKey) (*CacheEntry, bool) { return nil, false }
func (fakeCache) Set(ContentSignature, ItemKey, *CacheEntry) error  { return nil }
func (fakeCache) CleanExcept(ContentSignature, []ItemKey) error     { return nil }
func (fakeCache) Clear(ContentSignature) error                      { return nil }
func (fakeCache) ClearAll() error                                   { return nil }
func (fakeCache) CopyToExpectedPath(string, string) error           { return nil }

func newTestPipeline() *Pipeline {
	p := NewPipeline("/build", fakeCache{}, nil, memfs.New())
	p.SetResolver(func(Input) ([]string, error) { return nil, nil })
	return p
}

func TestPipelineRunsInExplicitDependencyOrder(t *testing.T) {
	p := newTestPipeline()
	var order []string

	require.NoError(t, p.AddNode(&fakeNode{name: "b", deps: []string{"a"}, runFunc: func(ctx *Context) ([]NodeOutput, error) {
		order = append(order, "b")
		return nil, nil
	}}))
	require.NoError(t, p.AddNode(&fakeNode{name: "a", runFunc: func(ctx *Context) ([]NodeOutput, error) {
		order = append(order, "a")
		return nil, nil
	}}))

	require.NoError(t, p.Run())
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestPipelineInfersEdgeFromNodeOutputRefItems(t *testing.T) {
	p := newTestPipeline()
	require.NoError(t, p.AddNode(&fakeNode{name: "source"}))
	require.NoError(t, p.AddNode(&fakeNode{
		name:  "consumer",
		items: RefInput{Node: "source", Key: "default"},
	}))

	require.NoError(t, p.Initialize())
	assert.Equal(t, []string{"source", "consumer"}, p.ExecutionOrder())
}

func TestPipelineInfersEdgeFromNodeOutputRefConfig(t *testing.T) {
	p := newTestPipeline()
	require.NoError(t, p.AddNode(&fakeNode{name: "source"}))
	require.NoError(t, p.AddNode(&fakeNode{
		name: "consumer",
		config: map[string]Value{
			"template": NodeOutputRefValue(NodeOutputRef{Node: "source", Key: "default"}),
		},
	}))

	require.NoError(t, p.Initialize())
	assert.Equal(t, []string{"source", "consumer"}, p.ExecutionOrder())
}

func TestPipelineDetectsCycle(t *testing.T) {
	p := newTestPipeline()
	require.NoError(t, p.AddNode(&fakeNode{name: "a", deps: []string{"b"}}))
	require.NoError(t, p.AddNode(&fakeNode{name: "b", deps: []string{"a"}}))

	err := p.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestPipelineRejectsUnknownDependency(t *testing.T) {
	p := newTestPipeline()
	require.NoError(t, p.AddNode(&fakeNode{name: "a", deps: []string{"ghost"}}))

	err := p.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestPipelineRejectsDuplicateNodeName(t *testing.T) {
	p := newTestPipeline()
	require.NoError(t, p.AddNode(&fakeNode{name: "a"}))
	err := p.AddNode(&fakeNode{name: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestPipelineGetNodeOutputsReflectsRunResults(t *testing.T) {
	p := newTestPipeline()
	require.NoError(t, p.AddNode(&fakeNode{name: "a"}))

	_, ok := p.GetNodeOutputs("a")
	assert.False(t, ok)

	require.NoError(t, p.Run())

	outputs, ok := p.GetNodeOutputs("a")
	require.True(t, ok)
	assert.Equal(t, []NodeOutput{{"default": {"a.out"}}}, outputs)
}

func TestPipelineWrapsNodeRunError(t *testing.T) {
	p := newTestPipeline()
	require.NoError(t, p.AddNode(&fakeNode{name: "a", runFunc: func(ctx *Context) ([]NodeOutput, error) {
		return nil, assert.AnError
	}}))

	err := p.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
}

type compositeNode struct {
	fakeNode
	sub *fakeNode
}

func (c *compositeNode) OnAddedToPipeline(p *Pipeline) error {
	return p.AddNode(c.sub)
}

func TestCompositeNodeRegistersSubNodeOnAdd(t *testing.T) {
	p := newTestPipeline()
	composite := &compositeNode{
		fakeNode: fakeNode{name: "composite"},
		sub:      &fakeNode{name: "composite.sub"},
	}

	require.NoError(t, p.AddNode(composite))
	_, ok := p.Node("composite.sub")
	assert.True(t, ok)
}
