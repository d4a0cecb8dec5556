// Package checkoutapi defines the wire format spoken between the acm CLI and
// the acmd checkout server, and the HTTP client the CLI uses.
//
// Every protocol call is a GET of /{action}/{acm} with the caller's identity
// and the protocol version in the query string. The server answers with a
// Response whose Status is ok, denied, nodb or error; denials are normal
// protocol outcomes and are not reported as Go errors by the client.
package checkoutapi
