// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SecretStore: Credential and token persistence
//   - FleetAPI: Token exchange and device command transport
//   - Notifier: Status message delivery to the notification sink
//
// # Optional Interfaces
//
//   - SchedulerStore: Task state and invocation history. Can be nil;
//     history recording degrades gracefully.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
