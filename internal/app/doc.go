// Package app provides the application service layer.
//
// Orchestrates use cases: page writes, reordering, rotation updates, viewer
// sync and the expiry sweep. Every mutation persists through the page store
// first and broadcasts only after the write succeeded, so viewers never
// observe state the store does not hold. Depends on domain interfaces, not
// concrete implementations.
package app
