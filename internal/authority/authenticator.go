package authority

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/giantswarm/azauth/internal/transport"
	azstrings "github.com/giantswarm/azauth/pkg/strings"
)

// Type classifies an authority.
type Type int

const (
	// TypeDirectoryFederation is a cloud directory authority, e.g. https://login.microsoftonline.com/<tenant>/.
	TypeDirectoryFederation Type = iota

	// TypeWorkplaceJoin is an on-premises federation authority whose first path segment is "adfs".
	TypeWorkplaceJoin
)

// String returns the string representation of the authority type.
func (t Type) String() string {
	switch t {
	case TypeDirectoryFederation:
		return "directory_federation"
	case TypeWorkplaceJoin:
		return "workplace_join"
	default:
		return "unknown"
	}
}

const (
	// TenantlessTenant is the tenant segment of authorities not bound to a tenant.
	TenantlessTenant = "common"

	workplaceJoinSegment = "adfs"

	AuthorizeEndpointTemplate = "https://{host}/{tenant}/oauth2/authorize"
	TokenEndpointTemplate     = "https://{host}/{tenant}/oauth2/token"
	UserRealmEndpointTemplate = "https://{host}/common/userrealm/{user}?api-version=1.0"
)

// Authenticator holds an authority and the endpoints resolved from it.
// Endpoints are only valid after UpdateFromTemplate has succeeded.
type Authenticator struct {
	mu sync.Mutex

	authority     string
	authorityType Type
	validate      bool
	host          string
	tenant        string
	tenantless    bool

	authorizeEndpoint string
	tokenEndpoint     string
	userRealmEndpoint string

	updatedFromTemplate bool
	validated           bool
	resolveCount        int

	discoverer *Discoverer
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithDiscoverer sets the discoverer used to validate untrusted hosts.
func WithDiscoverer(d *Discoverer) Option {
	return func(a *Authenticator) {
		if d != nil {
			a.discoverer = d
		}
	}
}

// Canonicalize trims surrounding whitespace and ensures the authority ends with
// exactly one slash added when none is present.
func Canonicalize(authority string) string {
	authority = strings.TrimSpace(authority)
	if !strings.HasSuffix(authority, "/") {
		authority += "/"
	}
	return authority
}

// DetectType classifies authority by its first path segment.
func DetectType(authority string) Type {
	u, err := url.Parse(Canonicalize(authority))
	if err != nil {
		return TypeDirectoryFederation
	}
	if strings.EqualFold(firstSegment(u.Path), workplaceJoinSegment) {
		return TypeWorkplaceJoin
	}
	return TypeDirectoryFederation
}

// New validates and canonicalizes authority. Asking to validate a workplace-join
// authority fails here, before any network access.
func New(authority string, validate bool, opts ...Option) (*Authenticator, error) {
	if azstrings.IsBlank(authority) {
		return nil, newError(CodeInvalidAuthority, "authority cannot be empty", nil)
	}

	canonical := Canonicalize(authority)
	u, err := url.Parse(canonical)
	if err != nil {
		return nil, newError(CodeInvalidAuthority, "authority is not a valid URL", err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return nil, newError(CodeInvalidAuthority, "authority must use https", nil)
	}
	if u.Host == "" {
		return nil, newError(CodeInvalidAuthority, "authority must contain a host", nil)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, newError(CodeInvalidAuthority, "authority must not contain a query or fragment", nil)
	}

	tenant := firstSegment(u.Path)
	if tenant == "" {
		return nil, newError(CodeInvalidAuthority, "authority must contain a tenant segment", nil)
	}

	authorityType := TypeDirectoryFederation
	if strings.EqualFold(tenant, workplaceJoinSegment) {
		authorityType = TypeWorkplaceJoin
	}

	if validate && authorityType == TypeWorkplaceJoin {
		return nil, newError(CodeValidationNotSupported,
			fmt.Sprintf("authority validation is not supported for %s authorities", authorityType), nil)
	}

	a := &Authenticator{
		authority:     canonical,
		authorityType: authorityType,
		validate:      validate,
		host:          strings.ToLower(u.Host),
		tenant:        tenant,
		tenantless:    strings.EqualFold(tenant, TenantlessTenant),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.discoverer == nil {
		a.discoverer = NewDiscoverer(transport.NewClient())
	}

	return a, nil
}

// UpdateFromTemplate validates the authority (once, when requested) and resolves
// the endpoints from the templates. It does nothing when the endpoints are already
// resolved for the current tenant.
func (a *Authenticator) UpdateFromTemplate(ctx context.Context, callState transport.CallState) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.updatedFromTemplate {
		return nil
	}

	authorize := expand(AuthorizeEndpointTemplate, a.host, a.tenant)

	if a.validate && !a.validated && a.authorityType == TypeDirectoryFederation {
		if err := a.discoverer.Validate(ctx, a.host, authorize, callState); err != nil {
			return err
		}
		a.validated = true
	}

	a.authorizeEndpoint = authorize
	a.tokenEndpoint = expand(TokenEndpointTemplate, a.host, a.tenant)
	a.userRealmEndpoint = expand(UserRealmEndpointTemplate, a.host, a.tenant)
	a.updatedFromTemplate = true
	a.resolveCount++

	return nil
}

// UpdateTenantID binds a tenant-less authority to tenantID. The endpoints are
// resolved again on the next UpdateFromTemplate. It reports whether the
// authority changed.
func (a *Authenticator) UpdateTenantID(tenantID string) bool {
	if azstrings.IsBlank(tenantID) {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.tenantless {
		return false
	}

	a.tenant = tenantID
	a.authority = "https://" + a.host + "/" + tenantID + "/"
	a.tenantless = false
	a.updatedFromTemplate = false
	return true
}

// Authority returns the canonical authority URL.
func (a *Authenticator) Authority() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authority
}

// Type returns the authority type.
func (a *Authenticator) Type() Type {
	return a.authorityType
}

// IsTenantless reports whether the authority is not bound to a tenant.
func (a *Authenticator) IsTenantless() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tenantless
}

// ValidateAuthority reports whether the authority is validated before use.
func (a *Authenticator) ValidateAuthority() bool {
	return a.validate
}

// Host returns the lower-cased authority host (including any port).
func (a *Authenticator) Host() string {
	return a.host
}

// Tenant returns the tenant path segment.
func (a *Authenticator) Tenant() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tenant
}

// AuthorizeEndpoint returns the resolved authorization endpoint.
func (a *Authenticator) AuthorizeEndpoint() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authorizeEndpoint
}

// TokenEndpoint returns the resolved token endpoint.
func (a *Authenticator) TokenEndpoint() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenEndpoint
}

// UserRealmEndpoint returns the user realm discovery URL for user.
func (a *Authenticator) UserRealmEndpoint(user string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Replace(a.userRealmEndpoint, "{user}", url.PathEscape(user), 1)
}

func expand(template, host, tenant string) string {
	return strings.NewReplacer("{host}", host, "{tenant}", tenant).Replace(template)
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	segment, _, _ := strings.Cut(path, "/")
	return segment
}
