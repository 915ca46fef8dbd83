package adal

import (
	"net/url"

	"github.com/giantswarm/azauth/pkg/tokencache"
	azstrings "github.com/giantswarm/azauth/pkg/strings"
)

// ClientKey identifies the application requesting tokens.
type ClientKey struct {
	clientID     string
	clientSecret string
}

// NewClientKey creates a key for a public client.
func NewClientKey(clientID string) (ClientKey, error) {
	if azstrings.IsBlank(clientID) {
		return ClientKey{}, configError(CodeInvalidArgument, "client id cannot be empty")
	}
	return ClientKey{clientID: clientID}, nil
}

// NewConfidentialClientKey creates a key for a client authenticating with a secret.
func NewConfidentialClientKey(clientID, clientSecret string) (ClientKey, error) {
	key, err := NewClientKey(clientID)
	if err != nil {
		return ClientKey{}, err
	}
	if azstrings.IsBlank(clientSecret) {
		return ClientKey{}, configError(CodeInvalidArgument, "client secret cannot be empty")
	}
	key.clientSecret = clientSecret
	return key, nil
}

// ClientID returns the client identifier.
func (k ClientKey) ClientID() string { return k.clientID }

// HasCredential reports whether the client authenticates itself.
func (k ClientKey) HasCredential() bool { return k.clientSecret != "" }

func (k ClientKey) addToForm(form url.Values) {
	form.Set("client_id", k.clientID)
	if k.clientSecret != "" {
		form.Set("client_secret", k.clientSecret)
	}
}

func (k ClientKey) subjectType() tokencache.SubjectType {
	if k.HasCredential() {
		return tokencache.SubjectUserPlusClient
	}
	return tokencache.SubjectUser
}
