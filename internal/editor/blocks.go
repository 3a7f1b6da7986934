// Package editor is the content synchronization core: it owns the block
// codec, the engine that reconciles a live editable block tree with its
// serialized form, and the debounced save pipeline above it.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyContent   = errors.New("content is empty")
	ErrNotBlockArray  = errors.New("content is not a block array")
	ErrBlockShape     = errors.New("block is not an object with a type tag")
)

// Block is one unit of rich-text content. Only the "type" tag is meaningful
// here; nested content is opaque pass-through preserved across round-trips.
type Block map[string]any

// Type returns the block's type tag, or "" when absent.
func (b Block) Type() string {
	t, _ := b["type"].(string)
	return t
}

// ParseBlocks decodes content into a block sequence. Valid content is a
// non-empty JSON array of objects, each bearing a string "type" field.
func ParseBlocks(content string) ([]Block, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotBlockArray, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyContent
	}
	blocks := make([]Block, 0, len(raw))
	for i, r := range raw {
		var b Block
		if err := json.Unmarshal(r, &b); err != nil {
			return nil, fmt.Errorf("%w (index %d): %v", ErrBlockShape, i, err)
		}
		if b.Type() == "" {
			return nil, fmt.Errorf("%w (index %d)", ErrBlockShape, i)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Serialize encodes blocks into the persisted wire format. Encoding is
// canonical (object keys sorted), so equal trees serialize identically.
func Serialize(blocks []Block) (string, error) {
	b, err := json.Marshal(blocks)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DefaultBlocks is the content of a brand-new document: one empty paragraph.
func DefaultBlocks() []Block {
	return []Block{{"type": "paragraph", "content": []any{}}}
}

// ParseOrDefault decodes content leniently: empty, absent or structurally
// invalid input yields the default single-paragraph sequence.
func ParseOrDefault(content string) []Block {
	blocks, err := ParseBlocks(content)
	if err != nil {
		return DefaultBlocks()
	}
	return blocks
}
