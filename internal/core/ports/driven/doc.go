// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CredentialStore: per-user, per-service credential persistence
//   - TokenRefresher: exchanges a refresh token for a new access token
//   - TokenProviderFactory: hands connectors a token source for one service
//   - Connector: fetches project data from one external service
//   - ModelBackend: streams text from a language model
//   - JobStore: generation job persistence
//   - ConfigStore: application configuration
//   - PromptStore: prompt templates
//
// # Optional Interfaces
//
//   - SchedulerStore: persists background task state. Without it the
//     refresh scheduler keeps state in memory only.
//   - JobObserver: receives job snapshots at progress milestones.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
