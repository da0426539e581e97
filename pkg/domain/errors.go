package domain

import "errors"

// ErrNotStarted is returned when input is submitted before Start. This
// is a usage error, not a configuration error, so it surfaces instead
// of degrading.
var ErrNotStarted = errors.New("conversation not started")

// ErrSessionNotFound is returned when a session ID cannot be found in a
// store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when creating a session whose ID is
// already persisted.
var ErrSessionExists = errors.New("session already exists")

// ErrUnknownSubflow is returned when a subflow reference points at an
// id absent from the registry.
var ErrUnknownSubflow = errors.New("unknown subflow")

// ErrUnknownBranch is returned when a branch name cannot be resolved in
// the assembled graph.
var ErrUnknownBranch = errors.New("unknown branch")

// ErrUnknownFlow is returned when a flow name cannot be resolved by a
// flow source.
var ErrUnknownFlow = errors.New("unknown flow")
