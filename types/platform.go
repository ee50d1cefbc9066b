package types

import (
	"context"

	"github.com/shopspring/decimal"
)

// BetOrder is one submission to the platform: UnitCount bets of UnitAmount
type BetOrder struct {
	Game       GameKind
	RoundID    string
	Side       Side
	UnitAmount decimal.Decimal
	UnitCount  int64
}

// Total is UnitAmount × UnitCount
func (o BetOrder) Total() decimal.Decimal {
	return o.UnitAmount.Mul(decimal.NewFromInt(o.UnitCount))
}

// Platform is the game backend one user session talks to. Every call is
// safe to retry.
type Platform interface {
	// OpenRound returns the round id currently accepting bets
	OpenRound(ctx context.Context, game GameKind) (string, error)

	// RecentSettlements returns settled rounds, most recent first
	RecentSettlements(ctx context.Context, game GameKind) ([]Settlement, error)

	// PlaceBet submits an order for the open round
	PlaceBet(ctx context.Context, order BetOrder) error

	// Balance returns the account's spendable balance
	Balance(ctx context.Context) (decimal.Decimal, error)
}
