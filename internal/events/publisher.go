// README: Ride lifecycle events and the publishers that fan them out.
package events

import (
	"context"
	"errors"
	"time"

	"rideshare/internal/types"
)

type Message struct {
	Type         string     `json:"type"`
	RideID       types.ID   `json:"ride_id"`
	From         string     `json:"from"`
	To           string     `json:"to"`
	ActorID      types.ID   `json:"actor_id,omitempty"`
	Participants []types.ID `json:"participants"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, m Message) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Message) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
