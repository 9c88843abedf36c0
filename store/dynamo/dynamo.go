package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gofrs/uuid/v5"
	"golang.org/x/time/rate"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/store"
)

const (
	gsiOwner         = "GSI_Owner"
	gsiCanvasInvites = "GSI_CanvasInvites"
)

type DynamoCanvoraStore struct {
	client        *dynamodb.Client
	tableName     string
	deleteLimiter *rate.Limiter
}

func NewDynamoCanvoraStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoCanvoraStore, error) {
	client, err := newDynamoDBClient(context.Background(), devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoCanvoraStore{
		client:    client,
		tableName: tableName,
		// Cascade deletes run at 20 batches/sec so they never starve
		// interactive writes
		deleteLimiter: rate.NewLimiter(rate.Limit(20), 1),
	}, nil
}

func (dynamoStore *DynamoCanvoraStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	userId, err := uuid.NewV4()
	if err != nil {
		return models.User{}, err
	}
	user.Id = userId.String()
	user.Created = time.Now().Unix()

	// Claim the email pointer first; a duplicate here means the address is
	// already registered
	pointer := dynamoEmailPointer{PK: emailPK(user.Email), SK: "USER", UserId: user.Id}
	if err := createItem(dynamoStore, ctx, pointer); err != nil {
		return models.User{}, err
	}

	if err := createItem(dynamoStore, ctx, userToDynamo(user)); err != nil {
		// Roll back the pointer so the email is not burned
		_ = deleteItem(dynamoStore, ctx, pointer.PK, pointer.SK)
		return models.User{}, err
	}

	return user, nil
}

func (dynamoStore *DynamoCanvoraStore) GetUserById(ctx context.Context, id string) (models.User, error) {
	du, err := getItem[dynamoUser](dynamoStore, ctx, "USER#"+id, "PROFILE", false)
	if err != nil {
		return models.User{}, err
	}

	return userFromDynamo(du), nil
}

func (dynamoStore *DynamoCanvoraStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	pointer, err := getItem[dynamoEmailPointer](dynamoStore, ctx, emailPK(email), "USER", false)
	if err != nil {
		return models.User{}, err
	}

	return dynamoStore.GetUserById(ctx, pointer.UserId)
}

func (dynamoStore *DynamoCanvoraStore) UpdateUserEmail(ctx context.Context, user models.User, newEmail string) (models.User, error) {
	pointer := dynamoEmailPointer{PK: emailPK(newEmail), SK: "USER", UserId: user.Id}
	if err := createItem(dynamoStore, ctx, pointer); err != nil {
		return models.User{}, err
	}

	oldEmail := user.Email
	user.Email = newEmail
	updated, err := updateItem(dynamoStore, ctx, userToDynamo(user), []string{"Email"})
	if err != nil {
		_ = deleteItem(dynamoStore, ctx, pointer.PK, pointer.SK)
		return models.User{}, err
	}

	if emailPK(oldEmail) != emailPK(newEmail) {
		_ = deleteItem(dynamoStore, ctx, emailPK(oldEmail), "USER")
	}

	return userFromDynamo(updated), nil
}

func (dynamoStore *DynamoCanvoraStore) UpdateUserPassword(ctx context.Context, user models.User, passwordHash string) error {
	user.PasswordHash = passwordHash
	_, err := updateItem(dynamoStore, ctx, userToDynamo(user), []string{"PasswordHash"})
	return err
}

func (dynamoStore *DynamoCanvoraStore) DeleteUser(ctx context.Context, user models.User) error {
	if err := deleteItem(dynamoStore, ctx, "USER#"+user.Id, "PROFILE"); err != nil {
		return err
	}
	return deleteItem(dynamoStore, ctx, emailPK(user.Email), "USER")
}

func (dynamoStore *DynamoCanvoraStore) CreateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error) {
	canvasId, err := uuid.NewV4()
	if err != nil {
		return models.Canvas{}, err
	}
	canvas.Id = canvasId.String()
	now := time.Now().Unix()
	canvas.Created = now
	canvas.Updated = now

	if err := createItem(dynamoStore, ctx, canvasToDynamo(canvas)); err != nil {
		return models.Canvas{}, err
	}

	return canvas, nil
}

func (dynamoStore *DynamoCanvoraStore) GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	dc, err := getItem[dynamoCanvas](dynamoStore, ctx, "CANVAS#"+canvasId, "META", false)
	if err != nil {
		return models.Canvas{}, err
	}

	return canvasFromDynamo(dc), nil
}

func (dynamoStore *DynamoCanvoraStore) ListOwnerCanvases(ctx context.Context, ownerId string) ([]models.Canvas, error) {
	dynamoCanvases, err := queryItemsByGSI[dynamoCanvas](dynamoStore, ctx, gsiOwner, "OwnerId", ownerId)
	if err != nil {
		return nil, err
	}

	canvases := make([]models.Canvas, 0, len(dynamoCanvases))
	for _, dc := range dynamoCanvases {
		canvases = append(canvases, canvasFromDynamo(dc))
	}

	return canvases, nil
}

func (dynamoStore *DynamoCanvoraStore) RenameCanvas(ctx context.Context, canvasId string, name string) (models.Canvas, error) {
	dc := dynamoCanvas{
		PK:      "CANVAS#" + canvasId,
		SK:      "META",
		Name:    name,
		Updated: time.Now().Unix(),
	}
	updated, err := updateItem(dynamoStore, ctx, dc, []string{"Name", "Updated"})
	if err != nil {
		return models.Canvas{}, err
	}

	return canvasFromDynamo(updated), nil
}

func (dynamoStore *DynamoCanvoraStore) WriteCanvasContent(ctx context.Context, canvasId string, content []byte) (models.Canvas, error) {
	dc := dynamoCanvas{
		PK:      "CANVAS#" + canvasId,
		SK:      "META",
		Content: content,
		Updated: time.Now().Unix(),
	}
	// Single UpdateItem: the overwrite is atomic, readers never observe a
	// torn document. There is no version check, concurrent writers race and
	// the last one wins.
	updated, err := updateItem(dynamoStore, ctx, dc, []string{"Content", "Updated"})
	if err != nil {
		return models.Canvas{}, err
	}

	return canvasFromDynamo(updated), nil
}

func (dynamoStore *DynamoCanvoraStore) DeleteCanvas(ctx context.Context, canvasId string) error {
	return deleteItem(dynamoStore, ctx, "CANVAS#"+canvasId, "META")
}

func (dynamoStore *DynamoCanvoraStore) DeleteOwnerCanvases(ctx context.Context, ownerId string) error {
	return batchDeleteByGSIPaced(dynamoStore, ctx, gsiOwner, "OwnerId", ownerId, dynamoStore.deleteLimiter)
}

func (dynamoStore *DynamoCanvoraStore) CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	invId, err := uuid.NewV4()
	if err != nil {
		return models.Invitation{}, err
	}
	inv.Id = invId.String()
	inv.Created = time.Now().Unix()

	if err := createItem(dynamoStore, ctx, invitationToDynamo(inv)); err != nil {
		return models.Invitation{}, err
	}

	return inv, nil
}

func (dynamoStore *DynamoCanvoraStore) GetInvitationByToken(ctx context.Context, token string) (models.Invitation, error) {
	di, err := getItem[dynamoInvitation](dynamoStore, ctx, "INVITE#"+token, "META", false)
	if err != nil {
		return models.Invitation{}, err
	}

	return invitationFromDynamo(di), nil
}

func (dynamoStore *DynamoCanvoraStore) ListCanvasInvitations(ctx context.Context, canvasId string) ([]models.Invitation, error) {
	dynamoInvitations, err := queryItemsByGSI[dynamoInvitation](dynamoStore, ctx, gsiCanvasInvites, "CanvasId", canvasId)
	if err != nil {
		return nil, err
	}

	invitations := make([]models.Invitation, 0, len(dynamoInvitations))
	for _, di := range dynamoInvitations {
		invitations = append(invitations, invitationFromDynamo(di))
	}

	return invitations, nil
}

// BindInvitee claims an open invitation for the given email. The conditional
// update only succeeds while InviteeEmail is still empty, so the first
// claimant wins and the binding is immutable afterwards.
func (dynamoStore *DynamoCanvoraStore) BindInvitee(ctx context.Context, token string, email string) (models.Invitation, error) {
	out, err := dynamoStore.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(dynamoStore.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "INVITE#" + token},
			"SK": &types.AttributeValueMemberS{Value: "META"},
		},
		UpdateExpression: aws.String("SET InviteeEmail = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
			":empty": &types.AttributeValueMemberS{Value: ""},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND InviteeEmail = :empty"),
		ReturnValues:        types.ReturnValueAllNew,
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return models.Invitation{}, store.ErrConditionFailed
		}
		return models.Invitation{}, fmt.Errorf("bind invitee failed: %w", err)
	}

	var di dynamoInvitation
	if err := attributevalue.UnmarshalMap(out.Attributes, &di); err != nil {
		return models.Invitation{}, fmt.Errorf("failed to unmarshal bound invitation: %w", err)
	}

	return invitationFromDynamo(di), nil
}

func (dynamoStore *DynamoCanvoraStore) IncrementJoinCount(ctx context.Context, token string) error {
	return incrementCounter(dynamoStore, ctx, "INVITE#"+token, "META", "JoinCount", 1)
}

func (dynamoStore *DynamoCanvoraStore) DisableInvitation(ctx context.Context, token string) error {
	di := dynamoInvitation{
		PK:       "INVITE#" + token,
		SK:       "META",
		Disabled: true,
	}
	_, err := updateItem(dynamoStore, ctx, di, []string{"Disabled"})
	return err
}

func (dynamoStore *DynamoCanvoraStore) DeleteInvitation(ctx context.Context, token string) error {
	return deleteItem(dynamoStore, ctx, "INVITE#"+token, "META")
}

func (dynamoStore *DynamoCanvoraStore) DeleteCanvasInvitations(ctx context.Context, canvasId string) error {
	return batchDeleteByGSIPaced(dynamoStore, ctx, gsiCanvasInvites, "CanvasId", canvasId, dynamoStore.deleteLimiter)
}
