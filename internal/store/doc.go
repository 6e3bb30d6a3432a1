// Package store defines the persistence ports of the practice engine: the
// session store (with compare-and-swap update semantics), the question store,
// the append-only attempt store, and the distractor option store, together
// with the transaction helpers and error types shared by their
// implementations.
//
// Implementations live under internal/platform; services depend only on the
// interfaces defined here.
package store
