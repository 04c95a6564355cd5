//go:build !cgo

package parser

import (
	"context"

	rpgerr "rpg/internal/errors"
)

// Parser is the tree-sitter backed parser. This stub is used when CGO is not
// available; every parse reports a collaborator failure.
type Parser struct{}

// NewParser creates a new parser stub.
func NewParser() *Parser { return &Parser{} }

// Available reports whether the tree-sitter backend was compiled in.
func Available() bool { return false }

// ParseFile always fails: tree-sitter requires CGO.
func (p *Parser) ParseFile(_ context.Context, file string, _ []byte, _ Language) (*FileResult, error) {
	return nil, rpgerr.Newf(rpgerr.ParseError,
		"tree-sitter backend unavailable (built without cgo), cannot parse %s", file)
}
