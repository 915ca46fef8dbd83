package authority

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/azauth/internal/transport"
)

// DefaultInstanceDiscoveryEndpoint is queried to validate hosts that are not trusted.
const DefaultInstanceDiscoveryEndpoint = "https://login.windows.net/common/discovery/instance"

const instanceDiscoveryAPIVersion = "1.0"

// TrustedHosts are accepted without instance discovery.
var TrustedHosts = []string{
	"login.windows.net",
	"login.microsoftonline.com",
	"login.chinacloudapi.cn",
	"login-us.microsoftonline.com",
	"login.microsoftonline.de",
	"login.microsoftonline.us",
}

// Discoverer validates authority hosts against the trusted list and, for other
// hosts, against the instance discovery endpoint. Successful validations are
// remembered per host for the lifetime of the Discoverer.
type Discoverer struct {
	client       *transport.Client
	endpoint     string
	trustedHosts map[string]struct{}

	mu         sync.RWMutex
	validHosts map[string]struct{}
	group      singleflight.Group
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithInstanceDiscoveryEndpoint overrides the instance discovery endpoint.
func WithInstanceDiscoveryEndpoint(endpoint string) DiscovererOption {
	return func(d *Discoverer) {
		if endpoint != "" {
			d.endpoint = endpoint
		}
	}
}

// WithTrustedHosts replaces the trusted host list.
func WithTrustedHosts(hosts ...string) DiscovererOption {
	return func(d *Discoverer) {
		d.trustedHosts = make(map[string]struct{}, len(hosts))
		for _, h := range hosts {
			d.trustedHosts[strings.ToLower(h)] = struct{}{}
		}
	}
}

// NewDiscoverer creates a Discoverer that uses client for instance discovery.
func NewDiscoverer(client *transport.Client, opts ...DiscovererOption) *Discoverer {
	if client == nil {
		client = transport.NewClient()
	}
	d := &Discoverer{
		client:     client,
		endpoint:   DefaultInstanceDiscoveryEndpoint,
		validHosts: make(map[string]struct{}),
	}
	WithTrustedHosts(TrustedHosts...)(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsTrustedHost reports whether host is on the trusted list.
func (d *Discoverer) IsTrustedHost(host string) bool {
	_, ok := d.trustedHosts[strings.ToLower(host)]
	return ok
}

// Validate checks that host is a known authority host. Trusted hosts never
// touch the network. Concurrent validations of the same host share one request.
func (d *Discoverer) Validate(ctx context.Context, host, authorizeEndpoint string, callState transport.CallState) error {
	host = strings.ToLower(host)
	if d.IsTrustedHost(host) {
		return nil
	}

	if d.isValidated(host) {
		return nil
	}

	_, err, _ := d.group.Do(host, func() (interface{}, error) {
		if d.isValidated(host) {
			return nil, nil
		}
		return nil, d.discover(ctx, host, authorizeEndpoint, callState)
	})
	return err
}

func (d *Discoverer) isValidated(host string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.validHosts[host]
	return ok
}

func (d *Discoverer) discover(ctx context.Context, host, authorizeEndpoint string, callState transport.CallState) error {
	query := url.Values{}
	query.Set("api-version", instanceDiscoveryAPIVersion)
	query.Set("authorization_endpoint", authorizeEndpoint)

	body, err := d.client.GetJSON(ctx, d.endpoint+"?"+query.Encode(), callState)
	if err != nil {
		var protoErr *transport.ProtocolError
		if errors.As(err, &protoErr) {
			return newError(CodeAuthorityNotInValidList,
				fmt.Sprintf("instance discovery rejected host %s", host), err)
		}
		return fmt.Errorf("instance discovery for %s failed: %w", host, err)
	}

	if tde := gjson.GetBytes(body, "tenant_discovery_endpoint"); tde.String() == "" {
		return newError(CodeAuthorityNotInValidList,
			fmt.Sprintf("instance discovery returned no tenant_discovery_endpoint for host %s", host), nil)
	}

	d.mu.Lock()
	d.validHosts[host] = struct{}{}
	d.mu.Unlock()
	return nil
}
