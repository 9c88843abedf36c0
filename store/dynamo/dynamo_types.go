package dynamo

import (
	"strings"

	"github.com/avolkv/canvora/models"
)

type dynamoUser struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Id           string `dynamodbav:"Id"`
	Email        string `dynamodbav:"Email"`
	PasswordHash string `dynamodbav:"PasswordHash"`
	Provider     string `dynamodbav:"Provider"`
	ProviderId   string `dynamodbav:"ProviderId"`
	Created      int64  `dynamodbav:"Created"`
}

// Pointer item keyed by lowercased email. Gives us email uniqueness through
// a conditional put and email -> user lookup, while the user record keeps
// the email's original casing.
type dynamoEmailPointer struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	UserId string `dynamodbav:"UserId"`
}

func emailPK(email string) string {
	return "EMAIL#" + strings.ToLower(email)
}

func userToDynamo(u models.User) dynamoUser {
	return dynamoUser{
		PK:           "USER#" + u.Id,
		SK:           "PROFILE",
		Id:           u.Id,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Provider:     u.Provider,
		ProviderId:   u.ProviderId,
		Created:      u.Created,
	}
}

func userFromDynamo(du dynamoUser) models.User {
	return models.User{
		Id:           du.Id,
		Email:        du.Email,
		PasswordHash: du.PasswordHash,
		Provider:     du.Provider,
		ProviderId:   du.ProviderId,
		Created:      du.Created,
	}
}

type dynamoCanvas struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	Id      string `dynamodbav:"Id"`
	Name    string `dynamodbav:"Name"`
	OwnerId string `dynamodbav:"OwnerId"` // GSI_Owner partition key
	Content []byte `dynamodbav:"Content"`
	Created int64  `dynamodbav:"Created"`
	Updated int64  `dynamodbav:"Updated"`
}

func canvasToDynamo(c models.Canvas) dynamoCanvas {
	return dynamoCanvas{
		PK:      "CANVAS#" + c.Id,
		SK:      "META",
		Id:      c.Id,
		Name:    c.Name,
		OwnerId: c.OwnerId,
		Content: c.Content,
		Created: c.Created,
		Updated: c.Updated,
	}
}

func canvasFromDynamo(dc dynamoCanvas) models.Canvas {
	return models.Canvas{
		Id:      dc.Id,
		Name:    dc.Name,
		OwnerId: dc.OwnerId,
		Content: dc.Content,
		Created: dc.Created,
		Updated: dc.Updated,
	}
}

// Invitations are keyed by token so the conditional put on PK doubles as the
// global token uniqueness constraint.
type dynamoInvitation struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Id           string `dynamodbav:"Id"`
	CanvasId     string `dynamodbav:"CanvasId"` // GSI_CanvasInvites partition key
	InviteeEmail string `dynamodbav:"InviteeEmail"`
	Token        string `dynamodbav:"Token"`
	ExpiresAt    int64  `dynamodbav:"ExpiresAt"`
	Disabled     bool   `dynamodbav:"Disabled"`
	JoinCount    int    `dynamodbav:"JoinCount"`
	Created      int64  `dynamodbav:"Created"`
}

func invitationToDynamo(inv models.Invitation) dynamoInvitation {
	return dynamoInvitation{
		PK:           "INVITE#" + inv.Token,
		SK:           "META",
		Id:           inv.Id,
		CanvasId:     inv.CanvasId,
		InviteeEmail: inv.InviteeEmail,
		Token:        inv.Token,
		ExpiresAt:    inv.ExpiresAt,
		Disabled:     inv.Disabled,
		JoinCount:    inv.JoinCount,
		Created:      inv.Created,
	}
}

func invitationFromDynamo(di dynamoInvitation) models.Invitation {
	return models.Invitation{
		Id:           di.Id,
		CanvasId:     di.CanvasId,
		InviteeEmail: di.InviteeEmail,
		Token:        di.Token,
		ExpiresAt:    di.ExpiresAt,
		Disabled:     di.Disabled,
		JoinCount:    di.JoinCount,
		Created:      di.Created,
	}
}
