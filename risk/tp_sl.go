package risk

import (
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TP/SL - Session profit target and stop loss
// ═══════════════════════════════════════════════════════════════════════════════

// StopReason names the threshold that ended a session
type StopReason string

const (
	NoStop          StopReason = ""
	TargetReached   StopReason = "TARGET_PROFIT"
	StopLossReached StopReason = "STOP_LOSS"
)

// PayoutRate is what a winning stake returns as profit
var PayoutRate = decimal.RequireFromString("0.96")

// Thresholds are optional magnitudes; zero disables either side
type Thresholds struct {
	Target   decimal.Decimal
	StopLoss decimal.Decimal
}

// Evaluate returns which threshold cumulative profit has crossed.
// includeTarget false skips the profit target entirely.
func (t Thresholds) Evaluate(profit decimal.Decimal, includeTarget bool) StopReason {
	if includeTarget && t.Target.IsPositive() && profit.GreaterThanOrEqual(t.Target) {
		return TargetReached
	}
	if t.StopLoss.IsPositive() && profit.LessThanOrEqual(t.StopLoss.Neg()) {
		return StopLossReached
	}
	return NoStop
}

// Ledger tracks session profit. Real sessions keep a running profit; virtual
// sessions move a simulated balance and report profit against the start.
type Ledger struct {
	virtual bool
	initial decimal.Decimal
	balance decimal.Decimal
	profit  decimal.Decimal
}

func NewLedger(virtual bool, startBalance decimal.Decimal) *Ledger {
	return &Ledger{virtual: virtual, initial: startBalance, balance: startBalance}
}

func (l *Ledger) Virtual() bool { return l.virtual }

// Record applies one settled bet and returns the signed change
func (l *Ledger) Record(win bool, amount decimal.Decimal) decimal.Decimal {
	delta := amount.Neg()
	if win {
		delta = amount.Mul(PayoutRate)
	}
	if l.virtual {
		l.balance = l.balance.Add(delta)
	} else {
		l.profit = l.profit.Add(delta)
	}
	return delta
}

// Profit is cumulative since the session started
func (l *Ledger) Profit() decimal.Decimal {
	if l.virtual {
		return l.balance.Sub(l.initial)
	}
	return l.profit
}

// Balance is the simulated balance (virtual sessions only)
func (l *Ledger) Balance() decimal.Decimal {
	return l.balance
}

// Reset zeroes profit around a new starting balance
func (l *Ledger) Reset(startBalance decimal.Decimal) {
	l.initial = startBalance
	l.balance = startBalance
	l.profit = decimal.Zero
}
