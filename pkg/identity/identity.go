package identity

import (
	"regexp"
	"strings"
)

// Kind distinguishes authenticated users from anonymous guests.
type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// GuestSentinel is the metadata value marking an anonymous checkout. It is not
// a valid guest session id.
const GuestSentinel = "guest"

const maxIDLength = 128

var guestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Identity is the partition key for usage and plan records.
type Identity struct {
	Kind Kind
	ID   string
}

// User returns an authenticated user identity.
func User(id string) Identity { return Identity{Kind: KindUser, ID: id} }

// Guest returns a guest session identity.
func Guest(id string) Identity { return Identity{Kind: KindGuest, ID: id} }

func (i Identity) IsZero() bool  { return i.ID == "" }
func (i Identity) IsUser() bool  { return i.Kind == KindUser && i.ID != "" }
func (i Identity) IsGuest() bool { return i.Kind == KindGuest && i.ID != "" }

// Equal reports whether both identities name the same principal.
func (i Identity) Equal(o Identity) bool {
	return !i.IsZero() && i.Kind == o.Kind && i.ID == o.ID
}

// Key returns the storage key, "user:<id>" or "guest:<id>".
// The zero Identity has an empty key.
func (i Identity) Key() string {
	if i.IsZero() {
		return ""
	}
	return string(i.Kind) + ":" + i.ID
}

func (i Identity) String() string { return i.Key() }

// MetadataValue is what checkout sessions carry in their "identity" metadata.
// The zero Identity is encoded as GuestSentinel.
func (i Identity) MetadataValue() string {
	if i.IsZero() {
		return GuestSentinel
	}
	return i.Key()
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Identity, error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok || id == "" || len(id) > maxIDLength {
		return Identity{}, ErrInvalidIdentityKey
	}
	switch Kind(kind) {
	case KindUser, KindGuest:
		return Identity{Kind: Kind(kind), ID: id}, nil
	default:
		return Identity{}, ErrInvalidIdentityKey
	}
}

// FromMetadata decodes an identity echoed back in checkout metadata. It
// returns false for GuestSentinel, an empty value or anything unparseable, in
// which case the purchase is anonymous.
func FromMetadata(v string) (Identity, bool) {
	if v == "" || v == GuestSentinel {
		return Identity{}, false
	}
	id, err := ParseKey(v)
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

// ValidGuestID reports whether id is acceptable as a guest session id.
func ValidGuestID(id string) bool {
	return id != "" && id != GuestSentinel && len(id) <= maxIDLength && guestIDPattern.MatchString(id)
}
