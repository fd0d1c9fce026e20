package service

import (
	"context"
	"encoding/json"
	"fmt"

	"sentinel-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// RunProgressTopic is the in-process topic every run event goes through.
const RunProgressTopic = "RUN_PROGRESS"

type IProgressPublisher interface {
	Publish(ctx context.Context, event events.RunProgressEvent) error
}

type progressPublisher struct {
	topicName string
	pubSub    message.Publisher
}

func NewProgressPublisher(topicName string, pubSub message.Publisher) IProgressPublisher {
	return &progressPublisher{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (p *progressPublisher) Publish(ctx context.Context, event events.RunProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("run_id", event.RunId)

	return p.pubSub.Publish(p.topicName, msg)
}
