// Package llm holds the wire helpers shared by the streaming model
// backends in its subpackages: a server-sent events reader, a line reader
// for NDJSON streams and HTTP status classification.
package llm
