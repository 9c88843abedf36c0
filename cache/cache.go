package cache

import "context"

// CanvoraCache fronts canvas snapshot reads and carries the pub/sub fabric
// used to tear down live sessions across instances. Access decisions are
// never cached here, only document content.
type CanvoraCache interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	// GetCanvasContent returns nil with no error on a cache miss.
	GetCanvasContent(ctx context.Context, canvasId string) ([]byte, error)
	SetCanvasContent(ctx context.Context, canvasId string, content []byte) error
	InvalidateCanvases(ctx context.Context, canvasIds []string) error
}
