// Package domain defines the core entities for lexgraph.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Work: An abstract regulatory instrument
//   - Expression: One time-bounded version of a Work
//   - Manifestation: A fetched artifact backing an Expression
//   - Article / Paragraph: The addressable structure of an Expression
//   - Reference: A kind-tagged pointer into the graph ("article:X")
//   - TemporalScope: A resolved as-of date or interval
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
