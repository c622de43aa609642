// Package main hosts the replay CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, applies
// flag overrides, and hands the real work to the internal packages: the
// pipeline builds the clean dataset, the store records run history and the
// play catalog, and preflight validates paths before anything is written.
//
// Human-oriented output goes to stdout as tables; --json switches every
// command to machine-readable output. Log lines always go to stderr and the
// log directory so they never mix with command output.
package main
