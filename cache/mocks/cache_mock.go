package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) GetCanvasContent(ctx context.Context, canvasId string) ([]byte, error) {
	args := m.Called(ctx, canvasId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) SetCanvasContent(ctx context.Context, canvasId string, content []byte) error {
	args := m.Called(ctx, canvasId, content)
	return args.Error(0)
}

func (m *MockCache) InvalidateCanvases(ctx context.Context, canvasIds []string) error {
	args := m.Called(ctx, canvasIds)
	return args.Error(0)
}
