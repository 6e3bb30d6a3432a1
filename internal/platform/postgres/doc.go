// Package postgres provides PostgreSQL implementations of the store
// interfaces. Each store accepts a store.DBTX so the same implementation
// works against a connection pool or an open transaction, and maps driver
// errors to the store-level error taxonomy via MapError.
package postgres
