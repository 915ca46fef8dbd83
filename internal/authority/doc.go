// Package authority resolves an OAuth2 authority URL into its authorize, token
// and user realm endpoints.
//
// Authorities are canonicalized to end with a single slash and classified by
// their first path segment: "adfs" marks a workplace-join authority, anything
// else a directory-federation one. Directory-federation authorities can be
// validated against a list of trusted hosts and, for other hosts, the instance
// discovery endpoint.
//
// A tenant-less authority (tenant "common") can be bound to a concrete tenant
// once one is known with UpdateTenantID; the endpoints are then resolved again
// on the next UpdateFromTemplate.
package authority
