package editor

import (
	"context"
	"io"
)

// UploadFunc uploads a file blob on behalf of the renderer (cover images,
// inline assets) and returns the stored asset's URL.
type UploadFunc func(ctx context.Context, filename string, r io.Reader) (string, error)

// Renderer is the external editable block-tree component. The engine treats
// it as an opaque stateful object with exactly this contract: it notifies on
// every user-driven mutation, exposes the current top-level block sequence,
// and can have its content replaced wholesale.
type Renderer interface {
	// OnContentChange registers fn to run after every content mutation and
	// returns an unsubscribe function.
	OnContentChange(fn func()) (unsubscribe func())
	TopLevelBlocks() []Block
	ReplaceBlocks(old, new []Block)
}

// RendererFactory builds a renderer seeded with an initial block sequence
// and an upload handler.
type RendererFactory func(initial []Block, upload UploadFunc) Renderer
