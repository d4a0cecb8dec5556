// Package server implements acmd, the checkout server.
//
// The server owns two kinds of state: at most one checkout record per ACM
// (the write lease and its opaque key) and per-user SRN device counters. Both
// live in a SQL database (SQLite by default, PostgreSQL optionally) whose
// schema is applied from embedded migrations on open. Service holds the
// protocol rules, the HTTP layer maps checkoutapi requests onto it, and Daemon
// ties the listener to a single-instance lock.
package server
