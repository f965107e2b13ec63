//go:build !cgo

package graph

import (
	"context"
	"errors"
)

// ErrNoCgo is returned by the Kuzu store and tree-sitter parser in builds
// without cgo.
var ErrNoCgo = errors.New("graph: built without cgo")

// KuzuStore is unavailable without cgo; see NewKuzuFileStore.
type KuzuStore struct {
	MemStore
}

// NewKuzuStore fails without cgo.
func NewKuzuStore() (*KuzuStore, error) {
	return nil, ErrNoCgo
}

// NewKuzuFileStore fails without cgo.
func NewKuzuFileStore(string) (*KuzuStore, error) {
	return nil, ErrNoCgo
}

// TreeSitterParser fails every Parse without cgo, so the index keeps
// files but records no symbols or imports.
type TreeSitterParser struct{}

// NewTreeSitterParser returns the stub parser.
func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{}
}

// Parse implements Parser.
func (p *TreeSitterParser) Parse(context.Context, string, []byte, Language) (*ParseResult, error) {
	return nil, ErrNoCgo
}

// SupportedLanguages implements Parser.
func (p *TreeSitterParser) SupportedLanguages() []Language {
	return nil
}

// Close implements Parser.
func (p *TreeSitterParser) Close() error {
	return nil
}
