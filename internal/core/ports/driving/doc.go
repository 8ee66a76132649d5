// Package driving defines interfaces that external actors (CLI commands,
// the in-process scheduler) use to invoke core services. These are the
// "driving" ports in hexagonal architecture terminology.
//
// Implementations of these interfaces live in internal/core/services.
package driving
