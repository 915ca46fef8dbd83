package adal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/giantswarm/azauth/pkg/tokencache"
)

const (
	testClientID    = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"
	testRedirectURI = "urn:ietf:wg:oauth:2.0:oob"
	testResource    = "https://management.core.windows.net/"
	otherResource   = "https://graph.windows.net/"
)

// makeIDToken builds an unsigned id token the way the service issues them.
func makeIDToken(claims map[string]interface{}) string {
	header, _ := json.Marshal(map[string]string{"typ": "JWT", "alg": "none"})
	payload, _ := json.Marshal(claims)
	return base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(payload) + "."
}

var defaultClaims = map[string]interface{}{
	"oid":         "U1",
	"upn":         "user@contoso.com",
	"tid":         "T1",
	"given_name":  "Ada",
	"family_name": "Lovelace",
}

// fakeIdP stands in for the token endpoint of an identity provider.
type fakeIdP struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []url.Values
	issued   int

	// respond overrides the default successful response.
	respond func(form url.Values, n int) (int, interface{})
	// claims are put into id tokens of default responses; nil omits the id token.
	claims map[string]interface{}
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	f := &fakeIdP{t: t, claims: defaultClaims}
	f.server = httptest.NewTLSServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIdP) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "unexpected request", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, r.PostForm)
	f.issued++
	n := f.issued
	respond := f.respond
	claims := f.claims
	f.mu.Unlock()

	status, body := http.StatusOK, interface{}(nil)
	if respond != nil {
		status, body = respond(r.PostForm, n)
	}
	if body == nil {
		body = defaultTokenResponse(r.PostForm, n, claims)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("client-request-id", r.Header.Get("client-request-id"))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func defaultTokenResponse(form url.Values, n int, claims map[string]interface{}) map[string]interface{} {
	resp := map[string]interface{}{
		"token_type":    "Bearer",
		"access_token":  fmt.Sprintf("at-%d", n),
		"refresh_token": fmt.Sprintf("rt-%d", n),
		"expires_in":    "3599",
		"resource":      form.Get("resource"),
	}
	if claims != nil {
		resp["id_token"] = makeIDToken(claims)
	}
	return resp
}

func oauthError(code, description string) map[string]interface{} {
	return map[string]interface{}{
		"error":             code,
		"error_description": description,
		"error_codes":       []int{70000},
	}
}

func (f *fakeIdP) authority(tenant string) string {
	return "https://" + f.server.Listener.Addr().String() + "/" + tenant + "/"
}

func (f *fakeIdP) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeIdP) request(i int) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func (f *fakeIdP) setRespond(fn func(form url.Values, n int) (int, interface{})) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = fn
}

func (f *fakeIdP) setClaims(claims map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = claims
}

// newContext creates an AuthContext against the fake with its own lock.
func (f *fakeIdP) newContext(t *testing.T, tenant string, opts ...Option) *AuthContext {
	t.Helper()
	base := []Option{
		WithHTTPClient(f.server.Client()),
		WithAcquireLock(NewAcquireLock()),
	}
	ac, err := NewAuthContext(f.authority(tenant), false, append(base, opts...)...)
	require.NoError(t, err)
	return ac
}

// fakeWebUI completes every sign-in with a fresh code unless respond says otherwise.
type fakeWebUI struct {
	mu       sync.Mutex
	requests []string
	respond  func(ctx context.Context, requestURI, redirectURI string, n int) (string, error)
}

func (w *fakeWebUI) Authenticate(ctx context.Context, requestURI, redirectURI string) (string, error) {
	w.mu.Lock()
	w.requests = append(w.requests, requestURI)
	n := len(w.requests)
	respond := w.respond
	w.mu.Unlock()

	if respond != nil {
		return respond(ctx, requestURI, redirectURI, n)
	}
	return redirectWithCode(requestURI, redirectURI, fmt.Sprintf("code-%d", n)), nil
}

func (w *fakeWebUI) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.requests)
}

func (w *fakeWebUI) lastRequest(t *testing.T) url.Values {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	require.NotEmpty(t, w.requests)
	u, err := url.Parse(w.requests[len(w.requests)-1])
	require.NoError(t, err)
	return u.Query()
}

// silentWebUI additionally supports prompt=none requests.
type silentWebUI struct {
	fakeWebUI
	silentCalls int
	silent      func(requestURI, redirectURI string) string
}

func (w *silentWebUI) AuthenticateSilent(_ context.Context, requestURI, redirectURI string) (string, error) {
	w.mu.Lock()
	w.silentCalls++
	w.mu.Unlock()
	return w.silent(requestURI, redirectURI), nil
}

// redirectWithCode answers requestURI with code, echoing its state.
func redirectWithCode(requestURI, redirectURI, code string) string {
	u, _ := url.Parse(requestURI)
	return redirectURI + "?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(u.Query().Get("state"))
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func cacheKey(authority, resource, uniqueID, displayableID string) tokencache.Key {
	return tokencache.Key{
		Authority:     authority,
		Resource:      resource,
		ClientID:      testClientID,
		SubjectType:   tokencache.SubjectUser,
		UniqueID:      uniqueID,
		DisplayableID: displayableID,
	}
}
