// Package queue publishes quota events to SQS for downstream consumers
// (billing upsell mail, dashboards).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"commercekit/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation. *sqs.Client satisfies it.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QuotaEventPublisher sends types.QuotaEvent messages to a single queue.
type QuotaEventPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewQuotaEventPublisher creates a publisher for queueURL.
func NewQuotaEventPublisher(client SQSSender, queueURL string, logger *slog.Logger) *QuotaEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuotaEventPublisher{client: client, queueURL: queueURL, logger: logger}
}

// PublishQuotaEvent serializes event as JSON and sends it. The event type,
// tier and user ID are also set as message attributes for filtering.
func (p *QuotaEventPublisher) PublishQuotaEvent(ctx context.Context, event types.QuotaEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal QuotaEvent: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"event_type": stringAttr(string(event.Type)),
			"tier":       stringAttr(string(event.Tier)),
			"user_id": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatInt(event.UserID, 10)),
			},
		},
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue, "failed to publish quota event", err)
	}

	p.logger.InfoContext(ctx, "quota event published",
		"event_id", event.ID,
		"type", event.Type,
		"user_id", event.UserID,
		"message_id", aws.ToString(out.MessageId),
	)
	return nil
}

func stringAttr(v string) sqsTypes.MessageAttributeValue {
	return sqsTypes.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}
