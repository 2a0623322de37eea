package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"

	"rideshare/internal/events"
	"rideshare/internal/types"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Push delivers ride events to participants' devices through FCM. Each user's
// devices subscribe to the topic TopicPrefix+userID.
type Push struct {
	sender      messageSender
	topicPrefix string
	log         *slog.Logger
}

func NewPush(sender messageSender, topicPrefix string, log *slog.Logger) *Push {
	if log == nil {
		log = slog.Default()
	}
	return &Push{sender: sender, topicPrefix: topicPrefix, log: log}
}

func (p *Push) Topic(userID types.ID) string {
	return p.topicPrefix + string(userID)
}

func (p *Push) Publish(ctx context.Context, m events.Message) error {
	var errs []error
	for _, id := range m.Participants {
		msg := &messaging.Message{
			Topic: p.Topic(id),
			Data: map[string]string{
				"type":    m.Type,
				"ride_id": string(m.RideID),
				"from":    m.From,
				"to":      m.To,
			},
			Android: &messaging.AndroidConfig{Priority: "high"},
		}
		messageID, err := p.sender.Send(ctx, msg)
		if err != nil {
			errs = append(errs, fmt.Errorf("fcm send to %s: %w", id, err))
			continue
		}
		p.log.Debug("fcm sent", "ride_id", string(m.RideID), "user_id", string(id), "message_id", messageID)
	}
	return errors.Join(errs...)
}

var _ events.Publisher = (*Push)(nil)
