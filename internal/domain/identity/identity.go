// internal/domain/identity/identity.go
package identity

import "strconv"

// Kind distinguishes guest sessions from signed-in users
type Kind int

const (
	KindNone Kind = iota
	KindAnonymous
	KindRegistered
)

func (k Kind) String() string {
	switch k {
	case KindAnonymous:
		return "guest"
	case KindRegistered:
		return "user"
	default:
		return "none"
	}
}

// Identity owns a cart: either an anonymous session token or a user id,
// never both. The zero value is not a valid identity.
type Identity struct {
	kind   Kind
	token  string
	userID uint
}

// Anonymous returns the identity of a guest session
func Anonymous(token string) Identity {
	return Identity{kind: KindAnonymous, token: token}
}

// Registered returns the identity of a signed-in user
func Registered(userID uint) Identity {
	return Identity{kind: KindRegistered, userID: userID}
}

func (i Identity) Kind() Kind { return i.kind }

func (i Identity) IsRegistered() bool { return i.kind == KindRegistered }

// UserID returns the user id for registered identities
func (i Identity) UserID() (uint, bool) {
	if i.kind != KindRegistered {
		return 0, false
	}
	return i.userID, true
}

// Token returns the session token for anonymous identities
func (i Identity) Token() (string, bool) {
	if i.kind != KindAnonymous {
		return "", false
	}
	return i.token, true
}

// Valid reports whether the identity names a usable owner
func (i Identity) Valid() bool {
	switch i.kind {
	case KindAnonymous:
		return i.token != ""
	case KindRegistered:
		return i.userID != 0
	default:
		return false
	}
}

func (i Identity) String() string {
	switch i.kind {
	case KindAnonymous:
		return "guest:" + i.token
	case KindRegistered:
		return "user:" + strconv.FormatUint(uint64(i.userID), 10)
	default:
		return "none"
	}
}
