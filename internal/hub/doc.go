// Package hub tracks live viewer connections per channel and fans messages
// out to them.
//
// The Hub is a single goroutine driven by a typed command channel (no
// mutexes). All registry mutation and all connection writes happen on that
// goroutine, so a broadcast sees a consistent snapshot and writes never
// race. A failed write prunes the viewer and the batch continues; delivery
// failures never reach mutation callers.
package hub
