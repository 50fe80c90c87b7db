// Package types defines the shared data model: tabs and their persisted
// snapshots, the six persisted record families, content-surface events,
// and the UI notification set.
//
// These types carry no behavior beyond trivial predicates so that every
// package can depend on them without cycles.
package types
