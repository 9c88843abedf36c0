package sqsmq

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/avolkv/canvora/mq"
)

// Cleanup work is slow (throttled cascade deletes), so polls wait the SQS
// maximum before coming back empty.
const longPollSeconds = 20

// SQSMessageQueue carries account cleanup jobs between the API nodes and the
// cleanup consumer.
type SQSMessageQueue struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSMessageQueue resolves queueName to its URL among the queues the
// client can list. The queue must already exist, this never creates one.
func NewSQSMessageQueue(ctx context.Context, devMode bool, sqsEndpoint string, queueName string) (*SQSMessageQueue, error) {
	client, err := newSQSClient(context.Background(), devMode, sqsEndpoint)
	if err != nil {
		return nil, err
	}

	queueURL, err := resolveQueueURL(ctx, client, queueName)
	if err != nil {
		return nil, err
	}

	return &SQSMessageQueue{client, queueURL}, nil
}

func resolveQueueURL(ctx context.Context, client *sqs.Client, queueName string) (string, error) {
	output, err := client.ListQueues(ctx, &sqs.ListQueuesInput{})
	if err != nil {
		return "", err
	}

	// QueueUrls is nil when the account has no queues at all
	for _, url := range output.QueueUrls {
		if strings.HasSuffix(url, "/"+queueName) {
			return url, nil
		}
	}

	return "", fmt.Errorf("given queue name '%s' not found in SQS", queueName)
}

func (q *SQSMessageQueue) Send(ctx context.Context, body string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	return err
}

// Receive long-polls for a single message. A nil message with a nil error
// means the poll came back empty.
func (q *SQSMessageQueue) Receive(ctx context.Context, visibilityTimeout int32) (*mq.Message, error) {
	resp, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     longPollSeconds,
		VisibilityTimeout:   visibilityTimeout,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Messages) == 0 {
		return nil, nil
	}

	msg := resp.Messages[0]
	return &mq.Message{
		Id:   aws.ToString(msg.ReceiptHandle),
		Body: aws.ToString(msg.Body),
	}, nil
}

// Delete acknowledges a processed message. Skipping the delete leaves the
// message to reappear once its visibility timeout lapses.
func (q *SQSMessageQueue) Delete(ctx context.Context, msg *mq.Message) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.Id),
	})
	return err
}
