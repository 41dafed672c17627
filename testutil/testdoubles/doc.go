// Package testdoubles provides spies and stubs for testing the lending ledger,
// the notification bus and the transaction processor without real backends.
//
// All spies are safe for concurrent use, since several tests drive the
// components from multiple goroutines.
package testdoubles
