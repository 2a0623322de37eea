package payment

import (
	"context"
	"fmt"
	"log/slog"

	"rideshare/internal/modules/ride"
	"rideshare/internal/modules/user"
	"rideshare/internal/types"
)

type Charger interface {
	Charge(ctx context.Context, amount types.Money, customerID, idempotencyKey string) (string, error)
}

type UserLookup interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
}

// CancellationFee charges the ride's passenger a flat fee when an in-progress
// ride is cancelled. The ride id is the idempotency key, so a retried
// cancellation never charges twice.
type CancellationFee struct {
	charger Charger
	users   UserLookup
	fee     types.Money
	log     *slog.Logger
}

func NewCancellationFee(charger Charger, users UserLookup, fee types.Money, log *slog.Logger) *CancellationFee {
	if log == nil {
		log = slog.Default()
	}
	return &CancellationFee{charger: charger, users: users, fee: fee, log: log}
}

func (c *CancellationFee) ChargeCancellationFee(ctx context.Context, r *ride.Ride) error {
	if c.fee.Amount <= 0 {
		return nil
	}
	u, err := c.users.Get(ctx, r.PassengerID)
	if err != nil {
		return fmt.Errorf("cancellation fee passenger %s: %w", r.PassengerID, err)
	}
	ref, err := c.charger.Charge(ctx, c.fee, u.PaymentCustomerID, "ride-cancel-fee:"+string(r.ID))
	if err != nil {
		return err
	}
	c.log.Info("cancellation fee charged", "ride_id", string(r.ID), "user_id", string(r.PassengerID), "intent", ref, "amount", c.fee.String())
	return nil
}
