// Package sqsbus publishes events to an Amazon SQS queue as JSON.
package sqsbus

import (
	"context"

	"github.com/Abraxas-365/rxintake/eventx"
	"github.com/Abraxas-365/rxintake/logx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SendMessageAPI is the slice of *sqs.Client the bus needs
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Options configures the SQS client
type Options struct {
	QueueURL string
	Region   string
	Endpoint string
}

// Bus implements eventx.Bus
type Bus struct {
	client   SendMessageAPI
	queueURL string
}

var _ eventx.Bus = (*Bus)(nil)

// New loads the default AWS configuration chain and builds the client
func New(ctx context.Context, opts Options) (*Bus, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, eventx.ErrorRegistry.New(eventx.ErrPublishFailed).
			WithCause(err).
			WithDetail("stage", "aws_config")
	}

	sqsOpts := sqs.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
	}
	if opts.Region != "" {
		sqsOpts.Region = opts.Region
	}
	if opts.Endpoint != "" {
		sqsOpts.BaseEndpoint = aws.String(opts.Endpoint)
	}

	logx.Info("sqs event bus ready: queue=%s", opts.QueueURL)
	return NewWithClient(sqs.New(sqsOpts), opts.QueueURL), nil
}

func NewWithClient(client SendMessageAPI, queueURL string) *Bus {
	return &Bus{client: client, queueURL: queueURL}
}

// Publish sends the sealed envelope. Type and subject are repeated as message
// attributes so subscriptions can filter without decoding the body.
func (b *Bus) Publish(ctx context.Context, event eventx.Event) error {
	body, err := eventx.Seal(event)
	if err != nil {
		return err
	}

	attrs := map[string]types.MessageAttributeValue{
		"event_type": {DataType: aws.String("String"), StringValue: aws.String(event.Type())},
	}
	if event.Subject() != "" {
		attrs["subject"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(event.Subject())}
	}

	out, err := b.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(b.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return eventx.ErrorRegistry.New(eventx.ErrPublishFailed).
			WithCause(err).
			WithDetail("event_id", event.ID()).
			WithDetail("queue_url", b.queueURL)
	}

	logx.Debug("sent event %s (%s) as sqs message %s", event.ID(), event.Type(), aws.ToString(out.MessageId))
	return nil
}

func (b *Bus) Close(context.Context) error { return nil }
