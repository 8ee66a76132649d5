// Package domain defines the core business entities for voltaic.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - TokenRecord: The stored access/refresh token pair
//   - CredentialPair: OAuth client credentials for the fleet API
//   - ReserveCommand: One scheduled backup-reserve change
//   - NotificationEvent: One structured status message
//   - Site / SiteInfo / LiveStatus: Remote energy site state
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
