package models

import (
	"encoding/json"
	"strings"
	"time"
)

type User struct {
	Id           string
	Email        string
	PasswordHash string
	Provider     string
	ProviderId   string
	Created      int64
}

type Canvas struct {
	Id      string
	Name    string
	OwnerId string
	Content json.RawMessage
	Created int64
	Updated int64
}

type Invitation struct {
	Id           string
	CanvasId     string
	InviteeEmail string
	Token        string
	ExpiresAt    int64
	Disabled     bool
	JoinCount    int
	Created      int64
}

// Valid reports whether the invitation currently grants access. Expiry is
// evaluated against the given instant at call time; expired rows are inert
// data, there is no background sweep.
func (inv Invitation) Valid(now time.Time) bool {
	if inv.Disabled {
		return false
	}
	return inv.ExpiresAt == 0 || now.Unix() < inv.ExpiresAt
}

// Bound reports whether the invitation has been claimed by the given email.
// Comparison is case-insensitive, storage keeps the original casing.
func (inv Invitation) Bound(email string) bool {
	return inv.InviteeEmail != "" && strings.EqualFold(inv.InviteeEmail, email)
}

type InvitationStatus string

const (
	InvitationActive   InvitationStatus = "active"
	InvitationExpired  InvitationStatus = "expired"
	InvitationDisabled InvitationStatus = "disabled"
)

func (inv Invitation) Status(now time.Time) InvitationStatus {
	if inv.Disabled {
		return InvitationDisabled
	}
	if inv.ExpiresAt != 0 && now.Unix() >= inv.ExpiresAt {
		return InvitationExpired
	}
	return InvitationActive
}

type Role int

const (
	RoleNone Role = iota
	RoleEditor
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleEditor:
		return "editor"
	default:
		return "none"
	}
}

// EmptyContent is the content of a freshly created canvas.
var EmptyContent = json.RawMessage(`{}`)
