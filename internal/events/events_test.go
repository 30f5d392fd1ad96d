package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/campus-orderflow/internal/aws"
	"github.com/imrishuroy/campus-orderflow/internal/aws/awsmock"
	"github.com/imrishuroy/campus-orderflow/internal/events"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

func sample() orders.Order {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return orders.Order{
		ID:        "o-1",
		OrderCode: "ORD-260301-K3F9QZ",
		Status:    orders.StatusPending,
		Buyer:     orders.Party{ID: "b"},
		Seller:    orders.Party{ID: "s"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPublisher_SendsEvent(t *testing.T) {
	q := &awsmock.SQS{}
	p := events.NewPublisher(aws.NewPublisher(q, "https://sqs.local/orders"), nil)

	p.Publish(context.Background(), events.Created(sample()))

	sent := q.Sent()
	require.Len(t, sent, 1)
	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(sdkaws.ToString(sent[0].MessageBody)), &got))
	assert.Equal(t, events.TypeOrderCreated, got.Type)
	assert.Equal(t, "o-1", got.OrderID)
	assert.Equal(t, orders.StatusPending, got.To)
	assert.Equal(t, "order.created", sdkaws.ToString(sent[0].MessageAttributes["event_type"].StringValue))
}

func TestPublisher_FailureIsSwallowed(t *testing.T) {
	q := &awsmock.SQS{Err: errors.New("queue down")}
	p := events.NewPublisher(aws.NewPublisher(q, "q"), nil)
	assert.NotPanics(t, func() { p.Publish(context.Background(), events.Created(sample())) })

	var disabled *events.Publisher
	assert.NotPanics(t, func() { disabled.Publish(context.Background(), events.Created(sample())) })
}

func message(t *testing.T, e events.Event) lambdaevents.SQSMessage {
	t.Helper()
	body, err := json.Marshal(e)
	require.NoError(t, err)
	return lambdaevents.SQSMessage{MessageId: e.OrderID, Body: string(body)}
}

func TestProcessor_CountsTransitions(t *testing.T) {
	cw := &awsmock.CloudWatch{}
	p := events.NewProcessor(aws.NewMetrics(cw, "CampusMarket/Orders"), nil)

	confirmed := sample()
	confirmed.Status = orders.StatusConfirmed

	err := p.Handle(context.Background(), lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{
		message(t, events.Created(sample())),
		{MessageId: "bad", Body: "{not json"},
		message(t, events.Transitioned(orders.StatusPending, confirmed, orders.ActionConfirm, orders.RoleSeller)),
	}})
	require.NoError(t, err)

	calls := cw.Recorded()
	require.Len(t, calls, 2)

	dims := func(i int) map[string]string {
		out := map[string]string{}
		for _, d := range calls[i].MetricData[0].Dimensions {
			out[sdkaws.ToString(d.Name)] = sdkaws.ToString(d.Value)
		}
		return out
	}
	assert.Equal(t, events.MetricOrderTransitions, sdkaws.ToString(calls[0].MetricData[0].MetricName))
	assert.Equal(t, map[string]string{"Action": "create", "Status": "PENDING"}, dims(0))
	assert.Equal(t, map[string]string{"Action": "confirm", "Status": "CONFIRMED"}, dims(1))
}

func TestProcessor_MetricsFailureFailsBatch(t *testing.T) {
	cw := &awsmock.CloudWatch{Err: errors.New("throttled")}
	p := events.NewProcessor(aws.NewMetrics(cw, "ns"), nil)

	err := p.Handle(context.Background(), lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{
		message(t, events.Created(sample())),
	}})
	assert.ErrorContains(t, err, "o-1")
}
