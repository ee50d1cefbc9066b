package bot

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/web3guy0/bsbot/core"
	"github.com/web3guy0/bsbot/types"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   types.Event
		want []string
	}{
		{
			name: "bet placed",
			ev:   types.Event{Kind: types.EventBetPlaced, Game: types.TRX, RoundID: "20260301001", Side: types.Small, Amount: decimal.NewFromInt(200), Balance: decimal.NewFromInt(800)},
			want: []string{"BET PLACED", "TRX Hash 1 Min", "SMALL", "200.00 Ks", "800.00 Ks"},
		},
		{
			name: "skip recorded",
			ev:   types.Event{Kind: types.EventSkipRecorded, RoundID: "r2", Side: types.Big, Reason: "entry layer waiting"},
			want: []string{"SKIP", "BIG", "entry layer waiting"},
		},
		{
			name: "win",
			ev:   types.Event{Kind: types.EventRoundWon, RoundID: "r3", Side: types.Big, Digit: 7, Result: types.Big, Win: true, Amount: decimal.NewFromInt(100), Profit: decimal.NewFromInt(96)},
			want: []string{"WIN", "7 BIG", "+96.00"},
		},
		{
			name: "loss",
			ev:   types.Event{Kind: types.EventRoundLost, RoundID: "r4", Side: types.Big, Digit: 2, Result: types.Small, Profit: decimal.NewFromInt(-100)},
			want: []string{"LOSS", "2 SMALL", "-100.00"},
		},
		{
			name: "skipped settlement",
			ev:   types.Event{Kind: types.EventRoundWon, RoundID: "r5", Side: types.Small, Digit: 1, Result: types.Small, Win: true, Skipped: true, Reason: "stop-loss layer released"},
			want: []string{"would have won", "stop-loss layer released"},
		},
		{
			name: "target",
			ev:   types.Event{Kind: types.EventThresholdReached, Threshold: "TARGET_PROFIT", Profit: decimal.NewFromInt(500)},
			want: []string{"PROFIT TARGET REACHED", "+500.00"},
		},
		{
			name: "stop loss",
			ev:   types.Event{Kind: types.EventThresholdReached, Threshold: "STOP_LOSS", Profit: decimal.NewFromInt(-300)},
			want: []string{"STOP LOSS REACHED", "-300.00"},
		},
		{
			name: "halted",
			ev: types.Event{Kind: types.EventSessionHalted, Reason: "insufficient balance", Summary: &types.SessionSummary{
				Strategy: "AI_FREQUENCY", Progression: "MARTINGALE", ProgressionIndex: 1,
				Wins: 3, Losses: 2, Skips: 1, Balance: decimal.NewFromInt(50),
				StartedAt: time.Unix(0, 0), StoppedAt: time.Unix(90, 0),
			}},
			want: []string{"SESSION STOPPED", "insufficient balance", `AI\_FREQUENCY`, "step 2", "Wins: *3*", "50.00 Ks", "1m30s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatEvent(tt.ev)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestFormatSettings(t *testing.T) {
	s := core.DefaultSettings()
	got := FormatSettings("", s)
	assert.Contains(t, got, "not logged in")
	assert.Contains(t, got, "TRX Hash 1 Min")
	assert.Contains(t, got, "Bet SL layer: *off*")
	assert.NotContains(t, got, "Order")

	s.Strategy = "BS_ORDER"
	s.Virtual = true
	s.VirtualBalance = decimal.NewFromInt(5000)
	got = FormatSettings("95912", s)
	assert.Contains(t, got, "Order: *BSBBSBSSSB*")
	assert.Contains(t, got, "Virtual 5000.00 Ks")
}
