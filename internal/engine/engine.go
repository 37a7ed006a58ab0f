package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/graph"
)

// DefaultBasePath is the store path of the prototype every created node
// derives from.
const DefaultBasePath = "/1"

// Engine exports and reconciles subtrees of a graph store.
//
// An engine holds no state between calls beyond its configuration. All store
// calls are made sequentially from the calling goroutine; an Engine must not
// be used from more than one goroutine at a time.
type Engine struct {
	store    graph.Store
	base     graph.Node
	basePath string
	logger   *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithBasePath sets the store path of the prototype node.
//
// Default: "/1" (DefaultBasePath)
func WithBasePath(path string) EngineOption {
	return func(e *Engine) {
		e.basePath = path
	}
}

// WithBase sets the prototype node directly. It takes precedence over
// WithBasePath.
func WithBase(n graph.Node) EngineOption {
	return func(e *Engine) {
		e.base = n
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over s.
func New(s graph.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    s,
		basePath: DefaultBasePath,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the store the engine operates on.
func (e *Engine) Store() graph.Store {
	return e.store
}

// Base returns the prototype node, loading it on first use.
func (e *Engine) Base(ctx context.Context) (graph.Node, error) {
	if e.base != nil {
		return e.base, nil
	}
	n, err := e.store.LoadByPath(ctx, e.basePath)
	if errors.Is(err, graph.ErrNotFound) {
		return nil, NewReferenceNotFoundError(e.basePath)
	}
	if err != nil {
		return nil, fmt.Errorf("load base node: %w", err)
	}
	e.base = n
	return n, nil
}

// Export serializes the subtree rooted at the node with the given path.
// The empty path is the root.
func (e *Engine) Export(ctx context.Context, path string, shallow bool) (*document.Document, error) {
	n, err := e.Node(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.Serialize(ctx, n, shallow)
}

// Node loads the node with the given store path. The empty path is the root.
func (e *Engine) Node(ctx context.Context, path string) (graph.Node, error) {
	if path == graph.RootPath {
		n, err := e.store.Root(ctx)
		if err != nil {
			return nil, fmt.Errorf("load root: %w", err)
		}
		return n, nil
	}
	return e.ResolveOrFail(ctx, nil, path)
}
