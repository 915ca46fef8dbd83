package adal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/azauth/pkg/tokencache"
)

func TestUserIdentifier(t *testing.T) {
	anyUser := AnyUser()
	assert.True(t, anyUser.IsAnyUser())
	assert.Empty(t, anyUser.uniqueID())
	assert.Empty(t, anyUser.displayableID())
	assert.Equal(t, "any user", anyUser.String())

	_, err := NewUserIdentifier("  ", UniqueID)
	assert.Equal(t, KindConfiguration, KindOf(err))

	_, err = NewUserIdentifier("U1", UserIdentifierType(9))
	assert.Equal(t, KindConfiguration, KindOf(err))

	unique, err := NewUserIdentifier(" U1 ", UniqueID)
	require.NoError(t, err)
	assert.Equal(t, "U1", unique.ID())
	assert.Equal(t, "U1", unique.uniqueID())
	assert.Empty(t, unique.displayableID())
	assert.Equal(t, "unique:U1", unique.String())

	hint, err := NewUserIdentifier("user@contoso.com", OptionalDisplayableID)
	require.NoError(t, err)
	assert.Empty(t, hint.uniqueID())
	assert.Equal(t, "user@contoso.com", hint.displayableID())
}

func TestUserIdentifierVerify(t *testing.T) {
	info := &UserInfo{UniqueID: "U1", DisplayableID: "user@contoso.com"}

	tests := []struct {
		name    string
		id      string
		typ     UserIdentifierType
		info    *UserInfo
		matches bool
	}{
		{"unique id", "U1", UniqueID, info, true},
		{"unique id is case sensitive", "u1", UniqueID, info, false},
		{"required displayable id ignores case", "USER@contoso.com", RequiredDisplayableID, info, true},
		{"required displayable id differs", "other@contoso.com", RequiredDisplayableID, info, false},
		{"optional displayable id accepts anyone", "other@contoso.com", OptionalDisplayableID, info, true},
		{"no user returned", "U1", UniqueID, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := NewUserIdentifier(tt.id, tt.typ)
			require.NoError(t, err)

			err = user.verify(tt.info)
			if tt.matches {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, KindIdentityMismatch, KindOf(err))
		})
	}

	assert.NoError(t, AnyUser().verify(nil))
}

func TestParseUserIdentifierType(t *testing.T) {
	for in, want := range map[string]UserIdentifierType{
		"unique":   UniqueID,
		"Optional": OptionalDisplayableID,
		"":         OptionalDisplayableID,
		"required": RequiredDisplayableID,
	} {
		got, err := ParseUserIdentifierType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseUserIdentifierType("someone")
	assert.Error(t, err)
}

func TestPromptBehavior(t *testing.T) {
	tests := []struct {
		in         string
		want       PromptBehavior
		query      string
		skipsCache bool
	}{
		{"auto", PromptAuto, "", false},
		{"Always", PromptAlways, "login", true},
		{"never", PromptNever, "none", false},
		{"refresh_session", PromptRefreshSession, "refresh_session", true},
	}

	for _, tt := range tests {
		got, err := ParsePromptBehavior(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.query, got.queryValue())
		assert.Equal(t, tt.skipsCache, got.skipsCache())
		assert.Equal(t, tt.want, mustParsePrompt(t, got.String()))
	}

	_, err := ParsePromptBehavior("sometimes")
	assert.Error(t, err)
}

func mustParsePrompt(t *testing.T, s string) PromptBehavior {
	t.Helper()
	p, err := ParsePromptBehavior(s)
	require.NoError(t, err)
	return p
}

func TestClientKey(t *testing.T) {
	_, err := NewClientKey("")
	assert.Equal(t, KindConfiguration, KindOf(err))

	_, err = NewConfidentialClientKey(testClientID, " ")
	assert.Equal(t, KindConfiguration, KindOf(err))

	public, err := NewClientKey(testClientID)
	require.NoError(t, err)
	assert.False(t, public.HasCredential())
	assert.Equal(t, tokencache.SubjectUser, public.subjectType())

	confidential, err := NewConfidentialClientKey(testClientID, "secret")
	require.NoError(t, err)
	assert.True(t, confidential.HasCredential())
	assert.Equal(t, tokencache.SubjectUserPlusClient, confidential.subjectType())
}
