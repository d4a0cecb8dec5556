// Package revision names and stores ACM revisions.
//
// An ACM is kept in a shared store as a series of zip files named db1.zip,
// db2.zip, ... where the highest number is the current revision. The Store
// interface hides whether those files live in a Dropbox-synced directory
// (DirStore) or an S3 bucket (S3Store). Revisions are immutable: Put refuses
// to overwrite an existing name, which keeps two writers from silently
// clobbering each other even if the checkout server were bypassed.
package revision
