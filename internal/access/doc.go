// Package access implements the optimistic checkout protocol that guards a
// shared ACM content database.
//
// A Controller is created per ACM. Init inspects the revision store, the
// local checkout marker and the checkout server (without changing anything on
// the server) and settles on an AccessStatus. Open then either unpacks the
// current revision into a throwaway sandbox or takes the server-side write
// lease and unpacks into the working mirror. Commit zips the mirror into the
// next dbN.zip revision and presents the lease key to the server; Discard
// releases the lease without publishing anything.
//
// Only one process per workstation may have an ACM open; the local lock is
// held from Open until Close, Commit or Discard.
package access
