package adal

import (
	"context"
	"errors"
	"net/url"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/giantswarm/azauth/internal/authority"
	"github.com/giantswarm/azauth/internal/transport"
	"github.com/giantswarm/azauth/pkg/logging"
	"github.com/giantswarm/azauth/pkg/tokencache"
)

// DefaultExpiryMargin is how long before expiry a cached access token stops being used.
const DefaultExpiryMargin = 5 * time.Minute

// State is a step of a token acquisition.
type State int

const (
	StateInit State = iota
	StateCacheLookup
	StateSilentRefresh
	StateTokenRequest
	StateValidate
	StateStore
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateCacheLookup:
		return "CACHE_LOOKUP"
	case StateSilentRefresh:
		return "SILENT_REFRESH"
	case StateTokenRequest:
		return "TOKEN_REQUEST"
	case StateValidate:
		return "VALIDATE"
	case StateStore:
		return "STORE"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// NewAcquireLock returns a lock that serializes the acquisitions sharing it.
func NewAcquireLock() *semaphore.Weighted {
	return semaphore.NewWeighted(1)
}

// sharedAcquireLock serializes every AuthContext in the process that was not given its own lock.
var sharedAcquireLock = NewAcquireLock()

// request is the part of an acquisition that differs between entry points.
type request interface {
	name() string
	supportsWorkplaceJoin() bool
	allowsCacheLookup() bool
	storesResult() bool
	// requestToken obtains a token once the cache could not serve one.
	requestToken(ctx context.Context, h *handler) (*AuthenticationResult, error)
	// validate checks a freshly issued result before it is stored.
	validate(h *handler, result *AuthenticationResult) error
}

// handler runs one token acquisition through the state machine.
type handler struct {
	authenticator *authority.Authenticator
	cache         *tokencache.Cache
	client        *transport.Client
	lock          *semaphore.Weighted
	now           func() time.Time
	expiryMargin  time.Duration

	resource  string
	clientKey ClientKey
	user      UserIdentifier
	callState transport.CallState
	request   request

	state         State
	transitions   []State
	cacheNotified bool
}

func (h *handler) transition(to State) {
	logging.Debug("Handler", "%s %s -> %s (correlation %s)", h.request.name(), h.state, to, h.callState.CorrelationID)
	h.state = to
	h.transitions = append(h.transitions, to)
}

// run performs the acquisition while holding the acquisition lock.
func (h *handler) run(ctx context.Context) (*AuthenticationResult, error) {
	if err := h.lock.Acquire(ctx, 1); err != nil {
		return nil, classify(err, h.callState)
	}
	defer h.lock.Release(1)

	h.state = StateInit
	h.transitions = []State{StateInit}

	result, err := h.runLocked(ctx)

	if h.cacheNotified {
		if afterErr := h.cache.AfterAccess(ctx); afterErr != nil && err == nil {
			result, err = nil, afterErr
		}
	}

	if err != nil {
		h.transition(StateFailed)
		classified := classify(err, h.callState)
		logging.Debug("Handler", "%s failed: %v", h.request.name(), classified)
		if classified.Kind == KindIdentityMismatch {
			logging.Audit(logging.AuditEvent{
				Action:        "identity_mismatch",
				Outcome:       "failure",
				Authority:     h.authenticator.Authority(),
				Resource:      h.resource,
				User:          h.user.ID(),
				CorrelationID: h.callState.CorrelationID.String(),
				Error:         classified.Description,
			})
		}
		return nil, classified
	}

	h.transition(StateDone)
	logging.Audit(logging.AuditEvent{
		Action:        "token_acquired",
		Outcome:       "success",
		Authority:     h.authenticator.Authority(),
		Resource:      h.resource,
		User:          displayableUser(result),
		CorrelationID: h.callState.CorrelationID.String(),
	})
	return result, nil
}

func (h *handler) runLocked(ctx context.Context) (*AuthenticationResult, error) {
	if err := h.authenticator.UpdateFromTemplate(ctx, h.callState); err != nil {
		return nil, err
	}
	if h.authenticator.Type() == authority.TypeWorkplaceJoin && !h.request.supportsWorkplaceJoin() {
		return nil, configError(CodeUnsupportedAuthorityType,
			"%s is not supported for %s authorities", h.request.name(), authority.TypeWorkplaceJoin)
	}

	if h.cache != nil && h.request.allowsCacheLookup() {
		result, err := h.fromCache(ctx)
		if err != nil || result != nil {
			return result, err
		}
	}

	h.transition(StateTokenRequest)
	result, err := h.request.requestToken(ctx, h)
	if err != nil {
		return nil, err
	}
	return h.finish(ctx, result, true)
}

// fromCache serves the request from the cache, refreshing when needed. It
// returns nil without error when the cache cannot help.
func (h *handler) fromCache(ctx context.Context) (*AuthenticationResult, error) {
	h.transition(StateCacheLookup)
	if err := h.notifyBeforeAccess(ctx); err != nil {
		return nil, err
	}

	match, err := h.cache.Lookup(tokencache.Query{
		Authority:     h.authenticator.Authority(),
		Resource:      h.resource,
		ClientID:      h.clientKey.ClientID(),
		SubjectType:   h.clientKey.subjectType(),
		UniqueID:      h.user.uniqueID(),
		DisplayableID: h.user.displayableID(),
		CrossTenant:   h.authenticator.IsTenantless(),
	})
	if err != nil || match == nil {
		return nil, err
	}

	if !match.MultiResource && match.Item.AccessToken != "" && !match.Item.ExpiresWithin(h.now(), h.expiryMargin) {
		logging.Debug("Handler", "Serving %s from the token cache", h.resource)
		result := resultFromCacheItem(match.Item)
		h.authenticator.UpdateTenantID(result.TenantID)
		return result, nil
	}

	if match.Item.RefreshToken == "" {
		return nil, nil
	}

	h.transition(StateSilentRefresh)
	result, err := h.refresh(ctx, match.Item.RefreshToken)
	if err == nil {
		// Refresh responses may omit the id token.
		cached := resultFromCacheItem(match.Item)
		if result.UserInfo == nil {
			result.UserInfo = cached.UserInfo
			result.IDToken = cached.IDToken
		}
		if result.TenantID == "" {
			result.TenantID = cached.TenantID
		}
		return h.finish(ctx, result, false)
	}

	var protoErr *transport.ProtocolError
	if !errors.As(err, &protoErr) {
		return nil, err
	}
	logging.Info("Handler", "Refreshing the cached token failed with %s, acquiring a new one", protoErr.Code)
	return nil, nil
}

// refresh redeems refreshToken for h.resource.
func (h *handler) refresh(ctx context.Context, refreshToken string) (*AuthenticationResult, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if h.resource != "" {
		form.Set("resource", h.resource)
	}
	h.clientKey.addToForm(form)
	return h.sendTokenRequest(ctx, form, refreshToken)
}

// sendTokenRequest posts form to the token endpoint and parses the response.
func (h *handler) sendTokenRequest(ctx context.Context, form url.Values, requestRefreshToken string) (*AuthenticationResult, error) {
	var resp tokenResponse
	if err := h.client.PostForm(ctx, h.authenticator.TokenEndpoint(), form, h.callState, &resp); err != nil {
		return nil, err
	}
	return resp.toResult(h.now(), requestRefreshToken)
}

// finish validates, rebinds a tenant-less authority and stores the result.
func (h *handler) finish(ctx context.Context, result *AuthenticationResult, validate bool) (*AuthenticationResult, error) {
	h.transition(StateValidate)
	if validate {
		if err := h.request.validate(h, result); err != nil {
			return nil, err
		}
	}

	if h.authenticator.UpdateTenantID(result.TenantID) {
		logging.Debug("Handler", "Authority bound to tenant %s", result.TenantID)
	}

	if h.cache == nil || !h.request.storesResult() || h.resource == "" {
		return result, nil
	}

	h.transition(StateStore)
	if err := h.notifyBeforeAccess(ctx); err != nil {
		return nil, err
	}

	key := tokencache.Key{
		Authority:   h.authenticator.Authority(),
		Resource:    h.resource,
		ClientID:    h.clientKey.ClientID(),
		SubjectType: h.clientKey.subjectType(),
	}
	if result.UserInfo != nil {
		key.UniqueID = result.UserInfo.UniqueID
		key.DisplayableID = result.UserInfo.DisplayableID
	}
	h.cache.Store(key, result.toCacheItem())

	logging.Audit(logging.AuditEvent{
		Action:        "token_stored",
		Outcome:       "success",
		Authority:     key.Authority,
		Resource:      h.resource,
		User:          key.DisplayableID,
		CorrelationID: h.callState.CorrelationID.String(),
	})
	return result, nil
}

func (h *handler) notifyBeforeAccess(ctx context.Context) error {
	if h.cacheNotified {
		return nil
	}
	if err := h.cache.BeforeAccess(ctx); err != nil {
		return err
	}
	h.cacheNotified = true
	return nil
}

func displayableUser(result *AuthenticationResult) string {
	if result == nil || result.UserInfo == nil {
		return ""
	}
	return result.UserInfo.DisplayableID
}
