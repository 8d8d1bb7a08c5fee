// Package types defines the entities, request values, and standard errors
// shared by the librarian storage layer and its services.
//
// Entities mirror the persisted tables: Book, Category, Client, Loan
// (outstanding quantity per client and book), Transaction, User, and
// HistoryEntry. Services return these values and signal failures with the
// sentinel errors declared in errors.go; callers classify any returned error
// with KindOf.
package types
