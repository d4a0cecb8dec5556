// Package preflight provides readiness checks for the filesystem paths and
// services acmsync depends on.
//
// The CLI "acm doctor" command runs RunAll and prints every result; "acm
// open" runs the free-space check on the mirror directory before unpacking a
// revision. Checks never fail the process themselves -- callers decide what a
// failed Result means.
package preflight
