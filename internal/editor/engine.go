package editor

import "sync"

// engine re-entrancy states. The guard is an explicit state rather than a
// timed flag: it is set before the renderer's content is replaced and
// cleared when ReplaceBlocks returns, so an external apply can never be
// re-detected as a local change.
type engineState int

const (
	stateIdle engineState = iota
	stateApplyingExternal
)

// Engine owns the live block tree and keeps it consistent with the last
// serialized content. It emits exactly one onChange per effective local
// change; no-op edits (serialization unchanged) and echoes of external
// applies are suppressed.
type Engine struct {
	mu          sync.Mutex
	renderer    Renderer
	unsubscribe func()
	onChange    func(serialized string)
	last        string
	state       engineState
}

// NewEngine validates seedContent (substituting the default paragraph on
// empty or invalid input), builds the renderer from it and starts listening
// for local changes. lastSynced starts at the accepted serialization.
func NewEngine(factory RendererFactory, seedContent string, upload UploadFunc, onChange func(string)) *Engine {
	blocks := ParseOrDefault(seedContent)
	serialized, _ := Serialize(blocks)
	e := &Engine{
		onChange: onChange,
		last:     serialized,
	}
	e.renderer = factory(blocks, upload)
	e.unsubscribe = e.renderer.OnContentChange(e.handleLocalChange)
	return e
}

// LastSynced returns the serialization the engine last accepted or emitted.
func (e *Engine) LastSynced() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// handleLocalChange runs on every renderer mutation. It serializes the
// current tree and emits onChange only when the serialization differs from
// the last synced content.
func (e *Engine) handleLocalChange() {
	e.mu.Lock()
	if e.state == stateApplyingExternal {
		e.mu.Unlock()
		return
	}
	blocks := e.renderer.TopLevelBlocks()
	if len(blocks) == 0 {
		// an empty tree is never emitted; the stored content keeps its
		// last-known-good value
		e.mu.Unlock()
		return
	}
	serialized, err := Serialize(blocks)
	if err != nil || serialized == e.last {
		e.mu.Unlock()
		return
	}
	e.last = serialized
	emit := e.onChange
	e.mu.Unlock()
	if emit != nil {
		emit(serialized)
	}
}

// ApplyExternalContent replaces the live tree when the backing document's
// content changed elsewhere (concurrent editor). Content equal to the last
// synced serialization is a no-op; invalid content is discarded silently and
// the last-known-good tree is retained.
func (e *Engine) ApplyExternalContent(content string) {
	e.mu.Lock()
	if content == e.last {
		e.mu.Unlock()
		return
	}
	blocks, err := ParseBlocks(content)
	if err != nil {
		e.mu.Unlock()
		return
	}
	serialized, err := Serialize(blocks)
	if err != nil {
		e.mu.Unlock()
		return
	}
	if serialized == e.last {
		e.mu.Unlock()
		return
	}
	e.state = stateApplyingExternal
	e.last = serialized
	r := e.renderer
	e.mu.Unlock()

	// the guard stays up across the replacement; any change notification the
	// renderer fires while replacing is attributed to the apply, not the user
	r.ReplaceBlocks(r.TopLevelBlocks(), blocks)

	e.mu.Lock()
	e.state = stateIdle
	e.mu.Unlock()
}

// Close detaches the engine from its renderer.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}
