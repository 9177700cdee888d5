// Package domain defines the core business entities for casebrief.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ServiceCredential: one user's tokens for one external service
//   - ProjectScope: the keywords, participants and window of a case study
//   - ProjectDataItem: a single record fetched from a connector
//   - GenerationJob: the lifecycle record of one case study generation
//   - StreamingEvent: the incremental output of a generation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
