// Package memory provides in-memory implementations of the driven store
// ports. They back tests and runs started with --in-memory; nothing
// survives the process.
package memory
