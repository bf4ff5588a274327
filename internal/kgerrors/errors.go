// Package kgerrors defines the closed set of error kinds the store can
// surface to a caller. None of them represent a crash: every mutator and
// read path returns one of these (wrapped with context via fmt.Errorf) or
// nil, never a panic.
package kgerrors

import "errors"

// Sentinel errors forming the closed set described in spec §7 and §4.10.
// Callers should compare with errors.Is, since call sites wrap these with
// additional context.
var (
	// ErrInvalidLevel is returned when a caller names a level other than
	// "user" or "project".
	ErrInvalidLevel = errors.New("kgraph: invalid level")

	// ErrUnknownSession is returned when a session ID was never registered
	// or has expired.
	ErrUnknownSession = errors.New("kgraph: unknown session")

	// ErrNodeNotFound is returned when an operation names a node ID that
	// does not exist in the given level.
	ErrNodeNotFound = errors.New("kgraph: node not found")

	// ErrNotArchived is returned by Recall when the target node exists but
	// is already active.
	ErrNotArchived = errors.New("kgraph: node is not archived")

	// ErrInvalidArgument is returned for malformed input, such as an empty
	// required string or RPC params that fail validation. ID format
	// (kebab-case or otherwise) is not checked.
	ErrInvalidArgument = errors.New("kgraph: invalid argument")

	// ErrStoreLocked is returned when a level is first loaded (the user
	// level at startup, a project level on first reference) and another
	// process already holds the advisory lock on that level's data file.
	ErrStoreLocked = errors.New("kgraph: store data file is locked by another process")
)
