// Package rate implements the sliding-window login attempt limiter keyed by
// derived client identity.
//
// # Design
//
// The limiter prunes each key's attempt timestamps to the trailing window on
// every read and write, so state for quiet clients decays without a sweeper.
// Storage is pluggable: an in-process mutex-guarded map is the default, and a
// Redis sorted-set store is available when limits must survive restarts or be
// shared across replicas.
//
// # What this package must NOT do
//
//   - Fail open. A store error or a missing client identity counts as
//     blocked/unknown, never as a free pass.
//   - Import authcore or any sibling package.
package rate
