package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/aws"
	"github.com/imrishuroy/campus-orderflow/internal/logging"
)

// Publisher sends events to the orders queue. Failures are logged, never
// returned: the order write they describe is already committed.
type Publisher struct {
	queue  *aws.Publisher
	logger *zap.Logger
}

// NewPublisher returns a Publisher. A nil queue disables publishing.
func NewPublisher(queue *aws.Publisher, logger *zap.Logger) *Publisher {
	return &Publisher{queue: queue, logger: logging.OrNop(logger)}
}

// Publish sends e to the queue. Errors are logged.
func (p *Publisher) Publish(ctx context.Context, e Event) {
	if p == nil || p.queue == nil || p.queue.QueueURL == "" {
		return
	}
	err := p.queue.PublishJSON(ctx, e, map[string]string{
		"event_type": e.Type,
		"order_id":   e.OrderID,
	})
	if err != nil {
		p.logger.Error("publish order event",
			zap.String("type", e.Type),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}
