package mq

import "context"

// MessageQueue is the at-least-once delivery channel for account cleanup
// jobs. Receive returns (nil, nil) on an empty poll; a received message
// stays on the queue until Delete acknowledges it.
type MessageQueue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, visibilityTimeout int32) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
}

// Message pairs the queue payload with the receipt handle Delete needs.
type Message struct {
	Id   string
	Body string
}
