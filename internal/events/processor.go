package events

import (
	"context"
	"encoding/json"
	"fmt"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/logging"
)

// Counter records metric values.
type Counter interface {
	Count(ctx context.Context, name string, value float64, dimensions map[string]string) error
}

// Processor consumes order events from SQS and counts them.
type Processor struct {
	metrics Counter
	logger  *zap.Logger
}

func NewProcessor(metrics Counter, logger *zap.Logger) *Processor {
	return &Processor{metrics: metrics, logger: logging.OrNop(logger)}
}

// Handle processes one SQS batch. Malformed messages are logged and dropped;
// a metrics failure fails the batch so SQS redelivers it.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) error {
	p.logger.Debug("received SQS batch", zap.Int("records", len(ev.Records)))
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Error("worker error", zap.String("message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec lambdaevents.SQSMessage) error {
	var e Event
	if err := json.Unmarshal([]byte(rec.Body), &e); err != nil {
		p.logger.Warn("dropping malformed message", zap.String("message_id", rec.MessageId), zap.Error(err))
		return nil
	}
	if e.OrderID == "" || e.To == "" {
		p.logger.Warn("dropping incomplete event", zap.String("message_id", rec.MessageId), zap.String("type", e.Type))
		return nil
	}

	err := p.metrics.Count(ctx, MetricOrderTransitions, 1, map[string]string{
		"Action": e.actionLabel(),
		"Status": string(e.To),
	})
	if err != nil {
		return fmt.Errorf("count event for order %s: %w", e.OrderID, err)
	}

	p.logger.Info("order event recorded",
		zap.String("type", e.Type),
		zap.String("order_id", e.OrderID),
		zap.String("order_code", e.OrderCode),
		zap.String("to", string(e.To)),
	)
	return nil
}
