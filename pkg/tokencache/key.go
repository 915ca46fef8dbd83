package tokencache

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
)

// SubjectType describes who a cached token was issued to.
type SubjectType int

const (
	// SubjectUser is a token issued to a user through a public client.
	SubjectUser SubjectType = iota
	// SubjectClient is a token issued to a confidential client acting as itself.
	SubjectClient
	// SubjectUserPlusClient is a user token redeemed by a confidential client.
	SubjectUserPlusClient
)

var subjectTypeNames = map[SubjectType]string{
	SubjectUser:           "user",
	SubjectClient:         "client",
	SubjectUserPlusClient: "user_plus_client",
}

func (s SubjectType) String() string {
	if name, ok := subjectTypeNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s SubjectType) MarshalText() ([]byte, error) {
	name, ok := subjectTypeNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown subject type %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SubjectType) UnmarshalText(text []byte) error {
	for k, v := range subjectTypeNames {
		if strings.EqualFold(v, string(text)) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown subject type %q", string(text))
}

// Key identifies one logical cache entry. All fields compare case-insensitively.
type Key struct {
	Authority     string      `json:"authority"`
	Resource      string      `json:"resource"`
	ClientID      string      `json:"client_id"`
	SubjectType   SubjectType `json:"subject_type"`
	UniqueID      string      `json:"unique_id,omitempty"`
	DisplayableID string      `json:"displayable_id,omitempty"`
}

// Normalize returns k with every string field trimmed and lower-cased.
func (k Key) Normalize() Key {
	return Key{
		Authority:     normalize(k.Authority),
		Resource:      normalize(k.Resource),
		ClientID:      normalize(k.ClientID),
		SubjectType:   k.SubjectType,
		UniqueID:      normalize(k.UniqueID),
		DisplayableID: normalize(k.DisplayableID),
	}
}

// Equal compares the normalized fields of k and other one by one.
func (k Key) Equal(other Key) bool {
	a, b := k.Normalize(), other.Normalize()
	return a.Authority == b.Authority &&
		a.Resource == b.Resource &&
		a.ClientID == b.ClientID &&
		a.SubjectType == b.SubjectType &&
		a.UniqueID == b.UniqueID &&
		a.DisplayableID == b.DisplayableID
}

// Hash buckets keys; equal keys hash equally but a matching hash does not imply equality.
func (k Key) Hash() uint64 {
	n := k.Normalize()
	h := fnv.New64a()
	for _, s := range []string{n.Authority, n.Resource, n.ClientID, n.SubjectType.String(), n.UniqueID, n.DisplayableID} {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// sameUserAndClient reports whether k and other differ at most in resource.
func (k Key) sameUserAndClient(other Key) bool {
	a, b := k.Normalize(), other.Normalize()
	return a.Authority == b.Authority &&
		a.ClientID == b.ClientID &&
		a.SubjectType == b.SubjectType &&
		a.UniqueID == b.UniqueID &&
		a.DisplayableID == b.DisplayableID
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func authorityHost(authority string) string {
	u, err := url.Parse(authority)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
