package adal

import (
	"fmt"
	"strings"

	azstrings "github.com/giantswarm/azauth/pkg/strings"
)

// UserIdentifierType says how a UserIdentifier's id is matched.
type UserIdentifierType int

const (
	// UniqueID matches the immutable object id of the user exactly.
	UniqueID UserIdentifierType = iota
	// OptionalDisplayableID is a hint (login_hint); any returned user is accepted.
	OptionalDisplayableID
	// RequiredDisplayableID must equal the returned displayable id, ignoring case.
	RequiredDisplayableID
)

func (t UserIdentifierType) String() string {
	switch t {
	case UniqueID:
		return "unique"
	case OptionalDisplayableID:
		return "optional"
	case RequiredDisplayableID:
		return "required"
	default:
		return "unknown"
	}
}

// ParseUserIdentifierType parses "unique", "optional" or "required".
func ParseUserIdentifierType(s string) (UserIdentifierType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unique", "unique_id", "uniqueid":
		return UniqueID, nil
	case "optional", "optional_displayable_id", "", "optionaldisplayableid":
		return OptionalDisplayableID, nil
	case "required", "required_displayable_id", "requireddisplayableid":
		return RequiredDisplayableID, nil
	default:
		return 0, fmt.Errorf("unknown user identifier type %q", s)
	}
}

// UserIdentifier selects the user a token is for. The zero value is AnyUser.
type UserIdentifier struct {
	id  string
	typ UserIdentifierType
}

// AnyUser matches whichever user is cached or signs in.
func AnyUser() UserIdentifier {
	return UserIdentifier{}
}

// NewUserIdentifier creates an identifier for id. A blank id is a configuration error.
func NewUserIdentifier(id string, typ UserIdentifierType) (UserIdentifier, error) {
	if azstrings.IsBlank(id) {
		return UserIdentifier{}, configError(CodeInvalidArgument, "user identifier cannot be empty")
	}
	if typ < UniqueID || typ > RequiredDisplayableID {
		return UserIdentifier{}, configError(CodeInvalidArgument, "unknown user identifier type %d", typ)
	}
	return UserIdentifier{id: strings.TrimSpace(id), typ: typ}, nil
}

// ID returns the identifier, empty for AnyUser.
func (u UserIdentifier) ID() string { return u.id }

// Type returns the identifier type. It is meaningless for AnyUser.
func (u UserIdentifier) Type() UserIdentifierType { return u.typ }

// IsAnyUser reports whether u is AnyUser.
func (u UserIdentifier) IsAnyUser() bool { return u.id == "" }

func (u UserIdentifier) String() string {
	if u.IsAnyUser() {
		return "any user"
	}
	return u.typ.String() + ":" + u.id
}

// uniqueID is the cache lookup value for the unique id field.
func (u UserIdentifier) uniqueID() string {
	if !u.IsAnyUser() && u.typ == UniqueID {
		return u.id
	}
	return ""
}

// displayableID is the cache lookup value for the displayable id field.
func (u UserIdentifier) displayableID() string {
	if !u.IsAnyUser() && u.typ != UniqueID {
		return u.id
	}
	return ""
}

// verify checks that the returned user is the one u asks for.
func (u UserIdentifier) verify(info *UserInfo) error {
	if u.IsAnyUser() || u.typ == OptionalDisplayableID {
		return nil
	}

	var returned string
	if info != nil {
		if u.typ == UniqueID {
			returned = info.UniqueID
		} else {
			returned = info.DisplayableID
		}
	}

	matched := returned == u.id
	if u.typ == RequiredDisplayableID {
		matched = strings.EqualFold(returned, u.id)
	}
	if matched {
		return nil
	}

	return &Error{
		Kind: KindIdentityMismatch,
		Code: CodeUserMismatch,
		Description: fmt.Sprintf("user %q returned by the service does not match the requested %s user %q",
			returned, u.typ, u.id),
	}
}
