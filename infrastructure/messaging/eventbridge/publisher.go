package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/domain/events"
)

// eventSource identifies this service on the shared event bus.
const eventSource = "micropaymentcrawler.workspace"

// Publisher mirrors workspace notifications onto AWS EventBridge so external
// consumers (billing, analytics) can react to curation activity. Forwarding
// is fire-and-forget: a delivery failure never disturbs the local session.
type Publisher struct {
	client       *eventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewPublisher creates an EventBridge publisher.
func NewPublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// Attach subscribes the publisher to every event kind on the local bus and
// returns a function that detaches it again.
func (p *Publisher) Attach(bus ports.EventBus) func() {
	kinds := []events.Kind{
		events.KindProjectSwitched,
		events.KindSourcesChanged,
		events.KindOutlineChanged,
		events.KindSaveFailed,
	}

	unsubscribes := make([]func(), 0, len(kinds))
	for _, kind := range kinds {
		unsubscribes = append(unsubscribes, bus.Subscribe(kind, func(event events.Event) {
			if err := p.Forward(context.Background(), event); err != nil {
				p.logger.Warn("eventbridge forward failed",
					zap.String("kind", string(event.EventKind())),
					zap.Error(err),
				)
			}
		}))
	}

	return func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}
}

// Forward publishes one event to EventBridge.
func (p *Publisher) Forward(ctx context.Context, event events.Event) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	input := &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.eventBusName),
				Source:       aws.String(eventSource),
				DetailType:   aws.String(string(event.EventKind())),
				Detail:       aws.String(string(detail)),
				Time:         aws.Time(event.OccurredAt()),
				Resources: []string{
					fmt.Sprintf("arn:aws:micropaymentcrawler::%s", event.ProjectID()),
				},
			},
		},
	}

	result, err := p.client.PutEvents(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish event to EventBridge: %w", err)
	}
	if result.FailedEntryCount > 0 {
		for _, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("eventbridge rejected entry",
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	return nil
}
