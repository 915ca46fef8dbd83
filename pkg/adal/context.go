package adal

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"

	"github.com/giantswarm/azauth/internal/authority"
	"github.com/giantswarm/azauth/internal/transport"
	azstrings "github.com/giantswarm/azauth/pkg/strings"
	"github.com/giantswarm/azauth/pkg/tokencache"
	"github.com/giantswarm/azauth/pkg/webui"
)

// AuthContext acquires tokens from one authority.
type AuthContext struct {
	authenticator *authority.Authenticator
	cache         *tokencache.Cache
	webUI         webui.WebUI
	client        *transport.Client
	lock          *semaphore.Weighted
	correlationID uuid.UUID
	codes         *AuthorizationCodeCache
	expiryMargin  time.Duration
	now           func() time.Time
	extraQuery    map[string]string
}

type options struct {
	cache         *tokencache.Cache
	webUI         webui.WebUI
	httpClient    *http.Client
	logger        *slog.Logger
	lock          *semaphore.Weighted
	correlationID uuid.UUID
	codeFreshness time.Duration
	expiryMargin  time.Duration
	discoverer    *authority.Discoverer
	now           func() time.Time
	extraQuery    map[string]string
}

// Option configures an AuthContext.
type Option func(*options)

// WithTokenCache sets the token cache. Without one nothing is cached.
func WithTokenCache(cache *tokencache.Cache) Option {
	return func(o *options) { o.cache = cache }
}

// WithWebUI sets the interactive surface. Without one webui.Default picks
// one per request based on the redirect URI.
func WithWebUI(ui webui.WebUI) Option {
	return func(o *options) { o.webUI = ui }
}

// WithHTTPClient sets the HTTP client for all endpoint calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithLogger sets the logger used for HTTP exchanges.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAcquireLock replaces the process-wide acquisition lock.
func WithAcquireLock(lock *semaphore.Weighted) Option {
	return func(o *options) {
		if lock != nil {
			o.lock = lock
		}
	}
}

// WithCorrelationID uses id for every request instead of a fresh id per acquisition.
func WithCorrelationID(id uuid.UUID) Option {
	return func(o *options) { o.correlationID = id }
}

// WithCodeFreshness sets how long an authorization code is reused. Zero disables reuse.
func WithCodeFreshness(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.codeFreshness = d
		}
	}
}

// WithExpiryMargin sets how long before expiry a cached access token is refreshed.
func WithExpiryMargin(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.expiryMargin = d
		}
	}
}

// WithDiscoverer sets the instance discoverer used for authority validation.
func WithDiscoverer(d *authority.Discoverer) Option {
	return func(o *options) { o.discoverer = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithExtraQueryParameters adds parameters to every authorization request.
func WithExtraQueryParameters(params map[string]string) Option {
	return func(o *options) { o.extraQuery = params }
}

// NewAuthContext creates a context for authority. With validate set, the
// authority host is checked against the trusted hosts or instance discovery on
// first use.
func NewAuthContext(authorityURL string, validate bool, opts ...Option) (*AuthContext, error) {
	o := options{
		lock:          sharedAcquireLock,
		codeFreshness: DefaultCodeFreshness,
		expiryMargin:  DefaultExpiryMargin,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	client := transport.NewClient(transport.WithHTTPClient(o.httpClient), transport.WithLogger(o.logger))
	discoverer := o.discoverer
	if discoverer == nil {
		discoverer = authority.NewDiscoverer(client)
	}

	authenticator, err := authority.New(authorityURL, validate, authority.WithDiscoverer(discoverer))
	if err != nil {
		return nil, classify(err, transport.NewCallState(o.correlationID))
	}

	return &AuthContext{
		authenticator: authenticator,
		cache:         o.cache,
		webUI:         o.webUI,
		client:        client,
		lock:          o.lock,
		correlationID: o.correlationID,
		codes:         NewAuthorizationCodeCache(o.codeFreshness, o.now),
		expiryMargin:  o.expiryMargin,
		now:           o.now,
		extraQuery:    o.extraQuery,
	}, nil
}

// Authority returns the canonical authority, bound to a tenant once one is known.
func (c *AuthContext) Authority() string {
	return c.authenticator.Authority()
}

// AuthorityType returns the authority classification.
func (c *AuthContext) AuthorityType() authority.Type {
	return c.authenticator.Type()
}

// TokenCache returns the configured cache, or nil.
func (c *AuthContext) TokenCache() *tokencache.Cache {
	return c.cache
}

// AcquireToken returns a token for resource, from the cache when possible and
// by signing the user in through the web UI otherwise.
func (c *AuthContext) AcquireToken(ctx context.Context, resource, clientID, redirectURI string, prompt PromptBehavior, user UserIdentifier) (*AuthenticationResult, error) {
	if err := requireResource(resource); err != nil {
		return nil, err
	}
	clientKey, err := NewClientKey(clientID)
	if err != nil {
		return nil, err
	}
	if err := requireRedirectURI(redirectURI); err != nil {
		return nil, err
	}

	ui := c.webUI
	if ui == nil {
		ui = webui.Default(redirectURI)
	}

	return c.newHandler(resource, clientKey, user, &interactiveRequest{
		redirectURI: redirectURI,
		prompt:      prompt,
		web:         ui,
		codes:       c.codes,
		extraQuery:  c.extraQuery,
	}).run(ctx)
}

// AcquireTokenAsync runs AcquireToken in the background.
func (c *AuthContext) AcquireTokenAsync(ctx context.Context, resource, clientID, redirectURI string, prompt PromptBehavior, user UserIdentifier) *Future {
	return newFuture(ctx, func(ctx context.Context) (*AuthenticationResult, error) {
		return c.AcquireToken(ctx, resource, clientID, redirectURI, prompt, user)
	})
}

// AcquireTokenSilent returns a token from the cache, refreshing it if needed,
// and fails with failed_to_acquire_token_silently when that is not possible.
func (c *AuthContext) AcquireTokenSilent(ctx context.Context, resource string, clientKey ClientKey, user UserIdentifier) (*AuthenticationResult, error) {
	if err := requireResource(resource); err != nil {
		return nil, err
	}
	if err := requireClientKey(clientKey); err != nil {
		return nil, err
	}
	return c.newHandler(resource, clientKey, user, silentRequest{}).run(ctx)
}

// AcquireTokenByRefreshToken redeems refreshToken. The resource is optional;
// results without one are not cached.
func (c *AuthContext) AcquireTokenByRefreshToken(ctx context.Context, refreshToken string, clientKey ClientKey, resource string) (*AuthenticationResult, error) {
	if azstrings.IsBlank(refreshToken) {
		return nil, configError(CodeInvalidArgument, "refresh token cannot be empty")
	}
	if err := requireClientKey(clientKey); err != nil {
		return nil, err
	}
	return c.newHandler(resource, clientKey, AnyUser(), &refreshTokenRequest{refreshToken: refreshToken}).run(ctx)
}

// AcquireTokenByAuthorizationCode redeems an authorization code obtained elsewhere.
func (c *AuthContext) AcquireTokenByAuthorizationCode(ctx context.Context, code, redirectURI string, clientKey ClientKey, resource string) (*AuthenticationResult, error) {
	if azstrings.IsBlank(code) {
		return nil, configError(CodeInvalidArgument, "authorization code cannot be empty")
	}
	if err := requireRedirectURI(redirectURI); err != nil {
		return nil, err
	}
	if err := requireClientKey(clientKey); err != nil {
		return nil, err
	}
	return c.newHandler(resource, clientKey, AnyUser(), &authorizationCodeRequest{code: code, redirectURI: redirectURI}).run(ctx)
}

// TokenSource adapts the context for golang.org/x/oauth2 clients. Tokens are
// acquired with PromptAuto and reused until they expire.
func (c *AuthContext) TokenSource(ctx context.Context, resource, clientID, redirectURI string, user UserIdentifier) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{
		ctx:         ctx,
		authContext: c,
		resource:    resource,
		clientID:    clientID,
		redirectURI: redirectURI,
		user:        user,
	})
}

type tokenSource struct {
	ctx         context.Context
	authContext *AuthContext
	resource    string
	clientID    string
	redirectURI string
	user        UserIdentifier
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	result, err := s.authContext.AcquireToken(s.ctx, s.resource, s.clientID, s.redirectURI, PromptAuto, s.user)
	if err != nil {
		return nil, err
	}
	return result.OAuth2Token(), nil
}

func (c *AuthContext) newHandler(resource string, clientKey ClientKey, user UserIdentifier, req request) *handler {
	return &handler{
		authenticator: c.authenticator,
		cache:         c.cache,
		client:        c.client,
		lock:          c.lock,
		now:           c.now,
		expiryMargin:  c.expiryMargin,
		resource:      resource,
		clientKey:     clientKey,
		user:          user,
		callState:     transport.NewCallState(c.correlationID),
		request:       req,
	}
}

func requireResource(resource string) error {
	if azstrings.IsBlank(resource) {
		return configError(CodeInvalidArgument, "resource cannot be empty")
	}
	return nil
}

func requireClientKey(key ClientKey) error {
	if azstrings.IsBlank(key.ClientID()) {
		return configError(CodeInvalidArgument, "client id cannot be empty")
	}
	return nil
}

func requireRedirectURI(redirectURI string) error {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Scheme == "" || azstrings.IsBlank(redirectURI) {
		return configError(CodeInvalidArgument, "redirect URI %q must be an absolute URI", redirectURI)
	}
	if u.Fragment != "" {
		return configError(CodeInvalidArgument, "redirect URI %q must not contain a fragment", redirectURI)
	}
	return nil
}
