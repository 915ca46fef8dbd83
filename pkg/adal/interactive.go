package adal

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"

	"github.com/giantswarm/azauth/internal/transport"
	"github.com/giantswarm/azauth/pkg/logging"
	"github.com/giantswarm/azauth/pkg/urlutil"
	"github.com/giantswarm/azauth/pkg/webui"
)

// interactiveRequest signs the user in through a web UI and redeems the code.
type interactiveRequest struct {
	redirectURI string
	prompt      PromptBehavior
	web         webui.WebUI
	codes       *AuthorizationCodeCache
	extraQuery  map[string]string
}

func (r *interactiveRequest) name() string                { return "interactive" }
func (r *interactiveRequest) supportsWorkplaceJoin() bool { return true }
func (r *interactiveRequest) allowsCacheLookup() bool     { return !r.prompt.skipsCache() }
func (r *interactiveRequest) storesResult() bool          { return true }

func (r *interactiveRequest) validate(h *handler, result *AuthenticationResult) error {
	return h.user.verify(result.UserInfo)
}

func (r *interactiveRequest) requestToken(ctx context.Context, h *handler) (*AuthenticationResult, error) {
	key := newCodeCacheKey(h.authenticator.Authority(), h.clientKey.ClientID(), r.redirectURI)
	reuse := r.codes != nil && !h.authenticator.IsTenantless() && !r.prompt.skipsCache()

	if reuse {
		if cached, ok := r.codes.get(key); ok {
			logging.Debug("Handler", "Reusing authorization code issued at %s", cached.IssuedAt.Format("15:04:05"))
			result, err := r.redeem(ctx, h, cached)
			var protoErr *transport.ProtocolError
			if err == nil || !errors.As(err, &protoErr) {
				return result, err
			}
			logging.Info("Handler", "Reused authorization code was rejected with %s, signing in again", protoErr.Code)
			r.codes.remove(key)
		}
	}

	auth, err := r.authorize(ctx, h)
	if err != nil {
		return nil, err
	}
	if reuse {
		r.codes.put(key, auth)
	}
	return r.redeem(ctx, h, auth)
}

// authorize runs the browser part of the flow and returns a successful result.
func (r *interactiveRequest) authorize(ctx context.Context, h *handler) (*AuthorizationResult, error) {
	state := uuid.NewString()
	requestURI := r.requestURI(h, state)

	var (
		redirected string
		err        error
	)
	switch silent, ok := r.web.(webui.SilentWebUI); {
	case r.prompt == PromptNever && ok:
		redirected, err = silent.AuthenticateSilent(ctx, requestURI, r.redirectURI)
	case r.prompt == PromptNever:
		// Without a silent-capable UI there is no session to reuse.
		redirected = r.redirectURI + "?" + urlutil.ToQueryString(map[string]string{
			"error":             CodeLoginRequired,
			"error_description": "user interaction is required but the prompt behavior is never",
			"state":             state,
		})
	default:
		redirected, err = r.web.Authenticate(ctx, requestURI, r.redirectURI)
	}
	if err != nil {
		return nil, err
	}

	auth := parseAuthorizationResult(redirected, h.now())
	if auth.Status != AuthorizationSuccess {
		return nil, protocolError(auth.Error, auth.ErrorDescription)
	}
	if auth.State != state {
		return nil, protocolError(CodeStateMismatch, "the state returned by the authorization server does not match the request")
	}
	return auth, nil
}

// requestURI builds the authorization request URL.
func (r *interactiveRequest) requestURI(h *handler, state string) string {
	params := map[string]string{
		"response_type":                "code",
		"client_id":                    h.clientKey.ClientID(),
		"redirect_uri":                 r.redirectURI,
		"resource":                     h.resource,
		"state":                        state,
		transport.HeaderCorrelationID: h.callState.CorrelationID.String(),
	}
	if id := h.user.displayableID(); id != "" {
		params["login_hint"] = id
	}
	if prompt := r.prompt.queryValue(); prompt != "" {
		params["prompt"] = prompt
	}
	for k, v := range r.extraQuery {
		if _, reserved := params[k]; !reserved {
			params[k] = v
		}
	}
	return h.authenticator.AuthorizeEndpoint() + "?" + urlutil.ToQueryString(params)
}

func (r *interactiveRequest) redeem(ctx context.Context, h *handler, auth *AuthorizationResult) (*AuthenticationResult, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", auth.Code)
	form.Set("redirect_uri", r.redirectURI)
	form.Set("resource", h.resource)
	h.clientKey.addToForm(form)
	return h.sendTokenRequest(ctx, form, "")
}
