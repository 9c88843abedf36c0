package mocks

import (
	"context"

	"github.com/avolkv/canvora/models"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) GetUserById(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) UpdateUserEmail(ctx context.Context, user models.User, newEmail string) (models.User, error) {
	args := m.Called(ctx, user, newEmail)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) UpdateUserPassword(ctx context.Context, user models.User, passwordHash string) error {
	args := m.Called(ctx, user, passwordHash)
	return args.Error(0)
}

func (m *MockStore) DeleteUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStore) CreateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error) {
	args := m.Called(ctx, canvas)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockStore) GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockStore) ListOwnerCanvases(ctx context.Context, ownerId string) ([]models.Canvas, error) {
	args := m.Called(ctx, ownerId)
	return args.Get(0).([]models.Canvas), args.Error(1)
}

func (m *MockStore) RenameCanvas(ctx context.Context, canvasId string, name string) (models.Canvas, error) {
	args := m.Called(ctx, canvasId, name)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockStore) WriteCanvasContent(ctx context.Context, canvasId string, content []byte) (models.Canvas, error) {
	args := m.Called(ctx, canvasId, content)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockStore) DeleteCanvas(ctx context.Context, canvasId string) error {
	args := m.Called(ctx, canvasId)
	return args.Error(0)
}

func (m *MockStore) DeleteOwnerCanvases(ctx context.Context, ownerId string) error {
	args := m.Called(ctx, ownerId)
	return args.Error(0)
}

func (m *MockStore) CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	args := m.Called(ctx, inv)
	return args.Get(0).(models.Invitation), args.Error(1)
}

func (m *MockStore) GetInvitationByToken(ctx context.Context, token string) (models.Invitation, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.Invitation), args.Error(1)
}

func (m *MockStore) ListCanvasInvitations(ctx context.Context, canvasId string) ([]models.Invitation, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).([]models.Invitation), args.Error(1)
}

func (m *MockStore) BindInvitee(ctx context.Context, token string, email string) (models.Invitation, error) {
	args := m.Called(ctx, token, email)
	return args.Get(0).(models.Invitation), args.Error(1)
}

func (m *MockStore) IncrementJoinCount(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockStore) DisableInvitation(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockStore) DeleteInvitation(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockStore) DeleteCanvasInvitations(ctx context.Context, canvasId string) error {
	args := m.Called(ctx, canvasId)
	return args.Error(0)
}
