/*
Package siteloom is an incremental build engine for XML/XSLT static-site
pipelines. A build is declared as a set of named nodes wired together by
explicit and inferred dependencies; siteloom resolves them into a single
execution order and runs each node in turn, skipping re-work for any item
whose inputs have not changed since the last run.

A minimal pipeline adds a couple of nodes and runs them in dependency
order:

	logger := siteloom.NewLogger()
	root := osfs.New("/srv/site")
	cache, _ := siteloom.NewFilesystemCache(root, "build/.cache")
	pipeline := siteloom.NewPipeline("build", cache, logger, root)

	_ = pipeline.AddNode(myFileCopyNode)
	_ = pipeline.AddNode(myTransformNode)

	if err := pipeline.Run(); err != nil {
		log.Fatal(err)
	}

Concrete node kinds (XSLT compilation, XSLT transforms, file copies, static
site generator invocation) are not part of this package: a node is any type
implementing Node, constructed by the caller or loaded from a manifest via
internal/manifest. internal/nodes/filecopy ships one worked example.

Nodes never see a raw filesystem path: all file discovery runs through
Context.ResolveInput, and all caching runs through the cache wrapper in
internal/node, so a node's Run method only has to describe what it
produces from its resolved inputs.
*/
package siteloom
