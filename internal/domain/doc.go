// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (page.go, rotation.go, layout.go,
// errors.go, store.go) with shared types and cross-cutting interfaces. The style
// cascade and layout resolution live here because they are pure functions over
// domain types. Prevents circular imports by keeping interfaces on the consumer side.
package domain
