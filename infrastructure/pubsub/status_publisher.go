package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"newsroom/domain/model"
	"newsroom/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

const publishTimeout = 5 * time.Second

type IStatusPublisher interface {
	Publish(ctx context.Context, evt model.StatusEvent) (string, error)
	Forward(evt model.StatusEvent)
}

// StatusPublisher mirrors status events to a Pub/Sub topic for downstream consumers.
type StatusPublisher struct {
	client    *pubsub.Client
	topicName string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

func NewStatusPublisher(client *pubsub.Client, topicName string) *StatusPublisher {
	return &StatusPublisher{client: client, topicName: topicName}
}

func (p *StatusPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.client.Topic(p.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}

func (p *StatusPublisher) Publish(ctx context.Context, evt model.StatusEvent) (string, error) {
	if p == nil || p.client == nil {
		return "", nil
	}
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":     evt.Type,
			"owner_id": evt.OwnerID,
			"platform": evt.Platform,
		},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", err
	}
	logger.GetLogger().WithField("server ID", serverID).Debug("Status event published")
	return serverID, nil
}

// Forward publishes in the background so status fan-out never waits on the broker.
func (p *StatusPublisher) Forward(evt model.StatusEvent) {
	if p == nil || p.client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if _, err := p.Publish(ctx, evt); err != nil {
			logger.GetLogger().WithField("error", err).WithField("type", evt.Type).Warn("Failed to publish status event")
		}
	}()
}
