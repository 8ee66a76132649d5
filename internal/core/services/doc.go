// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Every service method is one stateless invocation: state lives in the
// secret store and scheduler store, never in the service between calls.
package services
