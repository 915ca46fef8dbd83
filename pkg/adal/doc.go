// Package adal acquires OAuth2 access tokens from Azure AD style authorities.
//
// An AuthContext is bound to one authority. AcquireToken first looks in the
// token cache, then tries to redeem a cached refresh token and finally signs
// the user in through a webui.WebUI and redeems the authorization code:
//
//	cache, _ := tokencache.NewFileCache("")
//	ac, err := adal.NewAuthContext("https://login.microsoftonline.com/common", true,
//	    adal.WithTokenCache(cache))
//	if err != nil { ... }
//	result, err := ac.AcquireToken(ctx, resource, clientID, "http://localhost:8400",
//	    adal.PromptAuto, adal.AnyUser())
//	req.Header.Set("Authorization", result.CreateAuthorizationHeader())
//
// Every acquisition runs as a small state machine
// (INIT, CACHE_LOOKUP, SILENT_REFRESH, TOKEN_REQUEST, VALIDATE, STORE, DONE or
// FAILED) while holding an acquisition lock, so cache reads and writes of
// concurrent acquisitions never interleave. All AuthContexts share one lock
// unless WithAcquireLock is used.
//
// Failures are always *Error values; use KindOf or errors.As to branch on the
// ErrorKind and Recoverable to decide whether prompting the user can help.
package adal
