package trie

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned for empty patterns, unknown node IDs and
	// out-of-range text offsets.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorrupt is returned by Validate and Restore when the node graph
	// breaks a structural invariant.
	ErrCorrupt = errors.New("trie structure corrupt")
)
