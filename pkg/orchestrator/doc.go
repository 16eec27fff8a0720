// Package orchestrator wires the loader, schema decoding, editor host and the
// output surfaces (HTML page or terminal session) behind a single entry point.
package orchestrator
