// Package webui contains the interactive surfaces used to complete an OAuth2
// authorization code sign-in.
//
// The token engine only knows the WebUI interface: it hands over the
// authorization request URL and the redirect URI and gets back the URL the
// browser landed on. Two implementations are provided:
//
//   - Loopback opens the system browser and receives the redirect on a
//     short-lived local HTTP server bound to the redirect URI's port
//   - Prompt prints the URL and reads the redirected URL pasted by the user
//
// Default picks Loopback for http://localhost redirect URIs and Prompt
// otherwise.
package webui
