// Package main hosts the acm CLI entrypoint and command graph.
//
// The Cobra command tree wires the workstation configuration into the
// access controller, the revision store, the checkout server client and the
// SRN allocator. Each invocation is a short-lived process: a read-write
// checkout survives between invocations through the local checkout marker,
// so `acm open`, `acm commit` and `acm discard` may run in separate shells.
//
// Keep this package thin. Protocol behaviour belongs in internal/access and
// internal/srn; commands here parse flags, call those packages and render the
// results.
package main
