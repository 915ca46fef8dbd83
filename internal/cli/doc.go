// Package cli holds the pieces shared by the azauth commands: common flags,
// building an AuthContext and token cache from configuration, progress
// spinners and the mapping of acquisition errors to exit codes.
//
// # Exit Codes
//
//   - 0: success
//   - 1: general or configuration error
//   - 2: user interaction is required (a silent or prompt=never acquisition failed)
//   - 3: authentication failed (protocol, transport, identity or cache errors)
//   - 4: the sign-in was canceled
package cli
