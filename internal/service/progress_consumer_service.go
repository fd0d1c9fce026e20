package service

import (
	"context"
	"encoding/json"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/pkg/logger"
	"sentinel-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// StatusCache mirrors run status for other instances.
type StatusCache interface {
	Save(ctx context.Context, status entity.RunStatus) error
}

// EventStream forwards events outside the process.
type EventStream interface {
	Publish(ctx context.Context, event events.Event) error
}

// ProgressDelivery pushes an encoded event to live watchers of a run.
type ProgressDelivery interface {
	SendRun(runId string, data []byte)
}

type IProgressConsumer interface {
	Consume(ctx context.Context) error
}

// ProgressSinks are the optional destinations of run events; nil ones are skipped.
type ProgressSinks struct {
	Cache    StatusCache
	Stream   EventStream
	Delivery ProgressDelivery
}

type progressConsumer struct {
	subscriber message.Subscriber
	topicName  string
	sinks      ProgressSinks
	logger     logger.ILogger
}

func NewProgressConsumer(subscriber message.Subscriber, topicName string, sinks ProgressSinks, log logger.ILogger) IProgressConsumer {
	return &progressConsumer{
		subscriber: subscriber,
		topicName:  topicName,
		sinks:      sinks,
		logger:     log,
	}
}

func (c *progressConsumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: a sink that is down must not stall the run
// that produced the event.
func (c *progressConsumer) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := events.DecodeRunProgress(msg.Payload)
	if err != nil {
		c.logger.Warn("PROGRESS", "Dropping undecodable run event", map[string]interface{}{"error": err.Error()})
		return
	}
	details := map[string]interface{}{"run_id": event.RunId, "type": event.Type}

	if c.sinks.Cache != nil {
		if err := c.sinks.Cache.Save(ctx, statusFromEvent(event)); err != nil {
			c.logger.Warn("PROGRESS", "Status cache update failed", withError(details, err))
		}
	}
	if c.sinks.Stream != nil {
		if err := c.sinks.Stream.Publish(ctx, event); err != nil {
			c.logger.Warn("PROGRESS", "Event stream publish failed", withError(details, err))
		}
	}
	if c.sinks.Delivery != nil {
		c.sinks.Delivery.SendRun(event.RunId, EncodeRunEvent(event))
	}
	c.logger.Debug("PROGRESS", "Run event fanned out", details)
}

// EncodeRunEvent is the websocket frame for one run event.
func EncodeRunEvent(event events.RunProgressEvent) []byte {
	data, _ := json.Marshal(map[string]interface{}{"type": "run_event", "data": event})
	return data
}

func withError(details map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

func statusFromEvent(e events.RunProgressEvent) entity.RunStatus {
	s := entity.RunStatus{
		RunId:     e.RunId,
		Status:    entity.RunState(e.Status),
		Processed: e.Processed,
		Total:     e.Total,
		StartedAt: e.StartedAt,
		EndedAt:   e.EndedAt,
	}
	if e.Error != "" {
		msg := e.Error
		s.Error = &msg
	}
	return s
}
