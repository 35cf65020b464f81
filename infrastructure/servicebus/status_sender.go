package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"newsroom/domain/model"
	"newsroom/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

const sendTimeout = 5 * time.Second

type IStatusSender interface {
	SendMessage(ctx context.Context, evt model.StatusEvent) error
	Forward(evt model.StatusEvent)
}

// StatusSender queues status events on a Service Bus queue.
type StatusSender struct {
	client *azservicebus.Client
	queue  string
}

func NewStatusSender(client *azservicebus.Client, queue string) *StatusSender {
	return &StatusSender{client: client, queue: queue}
}

func (s *StatusSender) SendMessage(ctx context.Context, evt model.StatusEvent) error {
	if s == nil || s.client == nil {
		return nil
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	sender, err := s.client.NewSender(s.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender) {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}(sender)

	contentType := "application/json"
	subject := evt.Type
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]interface{}{
			"owner_id": evt.OwnerID,
			"platform": evt.Platform,
		},
	}
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

func (s *StatusSender) Forward(evt model.StatusEvent) {
	if s == nil || s.client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		_ = s.SendMessage(ctx, evt)
	}()
}
