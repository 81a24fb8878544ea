package main

// NodeTemplateSource is the source code template of a siteloom node
// implementation, hand-embedded the way the teacher's own embed.go
// generates PluginTemplateSource from plugin.template.
const NodeTemplateSource = `package {{.package}}

import (
	"github.com/kjhansen/siteloom/internal/core"
	"github.com/kjhansen/siteloom/internal/manifest"
	"github.com/kjhansen/siteloom/internal/node"
)

// KindTag is the content-signature prefix for every {{.name}}, sanitised by
// internal/cache into its own cache subdirectory.
const KindTag = "{{.name}}"

// {{.name}} TODO: describe what this node produces.
type {{.name}} struct {
	node.Base

	{{.varname}}Name         string
	{{.varname}}Items        core.Input
	{{.varname}}Config       map[string]core.Value
	{{.varname}}ExplicitDeps []string
}

// New{{.name}} builds a {{.name}} named name, iterating items and tracking
// config for its content signature.
func New{{.name}}(name string, items core.Input, config map[string]core.Value, explicitDeps []string) *{{.name}} {
	return &{{.name}}{
		{{.varname}}Name:         name,
		{{.varname}}Items:        items,
		{{.varname}}Config:       config,
		{{.varname}}ExplicitDeps: explicitDeps,
	}
}

func (n *{{.name}}) Name() string                         { return n.{{.varname}}Name }
func (n *{{.name}}) Items() core.Input                    { return n.{{.varname}}Items }
func (n *{{.name}}) Config() map[string]core.Value        { return n.{{.varname}}Config }
func (n *{{.name}}) OutputConfig() map[string]interface{} { return nil }
func (n *{{.name}}) ExplicitDependencies() []string       { return n.{{.varname}}ExplicitDeps }
func (n *{{.name}}) KindTag() string                      { return KindTag }

// Run resolves the node's items and processes each one, delegating all
// caching decisions to node.Base.WithCache.
func (n *{{.name}}) Run(ctx *core.Context) ([]core.NodeOutput, error) {
	items, err := ctx.ResolveInput(n.{{.varname}}Items)
	if err != nil {
		return nil, err
	}

	cb := node.Callbacks{
		CacheKey:   func(item string) core.ItemKey { panic("TODO: derive a cache key from item") },
		OutputPath: func(item string) string { panic("TODO: compute item's build-relative output path") },
		PerformWork: func(item, outputPath string) (node.WorkResult, error) {
			panic("TODO: produce outputPath from item")
		},
	}

	results, err := n.WithCache(ctx, n, items, cb)
	if err != nil {
		return nil, err
	}

	outputs := make([]core.NodeOutput, 0, len(results))
	for _, r := range results {
		outputs = append(outputs, core.NodeOutput{"default": {r.Output}})
	}
	return outputs, nil
}

// FromSpec builds a {{.name}} from a manifest.NodeSpec. Register it against
// the "kind" string this node should answer to, e.g.
// r.Register("{{.flag}}", {{.package}}.FromSpec).
func FromSpec(spec manifest.NodeSpec) (core.Node, error) {
	config := make(map[string]core.Value, len(spec.Config))
	for k, v := range spec.Config {
		config[k] = v.ToValue()
	}
	return New{{.name}}(spec.Name, spec.Items.ToInput(), config, nil), nil
}
`
