package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier gates what a user sees in rendered notifications.
type Tier string

const (
	TierDemo Tier = "DEMO"
	TierPro  Tier = "PRO"
)

// User is the engine's read-only view of an active subscriber. Account
// management, payment status and delivery addressing live elsewhere.
type User struct {
	ID      string
	Capital decimal.Decimal
	Tier    Tier
}

// Validate rejects users the fan-out cannot render for.
func (u User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user has empty id")
	}
	if u.Capital.IsNegative() {
		return fmt.Errorf("capital %s is negative", u.Capital)
	}
	switch u.Tier {
	case TierDemo, TierPro:
		return nil
	default:
		return fmt.Errorf("unknown tier %q", u.Tier)
	}
}
