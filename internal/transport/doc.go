// Package transport implements the HTTP exchanges between the token engine and
// the authority.
//
// Requests carry the acquisition's correlation id in the client-request-id
// header and ask the server to echo it back. Responses are classified into
// three outcomes:
//
//   - success: the JSON body is decoded into the caller's type
//   - *ProtocolError: the identity provider returned an OAuth error body
//   - transport failure: network errors, *StatusError, ErrMalformedResponse
//
// Nothing in this package retries.
package transport
