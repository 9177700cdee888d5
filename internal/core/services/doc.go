// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The selector, section detector and prompt builder are pure functions
// so they can be tested without any adapter.
package services
