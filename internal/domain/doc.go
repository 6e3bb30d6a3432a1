// Package domain defines the core business entities of the practice engine:
// questions, practice sessions, question attempts, and distractor options,
// together with their validation rules and lifecycle invariants.
//
// Entities in this package are plain data with behavior limited to validation
// and state transitions. Algorithmic concerns (shuffling, scoring, difficulty
// recommendation, distractor vetting) live in the domain subpackages so they
// stay pure and independently testable.
package domain
