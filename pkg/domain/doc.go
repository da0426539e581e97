// Package domain contains the core types shared across the Bramble engine
// and its host adapters: flows, branches, emitted events, action tags,
// session state and diagnostics.
//
// The package is dependency-free by design so that adapters (HTTP, CLI,
// stores) and the runtime core can all build on it without cycles.
package domain
