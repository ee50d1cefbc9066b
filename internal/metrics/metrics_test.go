package metrics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/bsbot/core"
	"github.com/web3guy0/bsbot/types"
)

type fakeSessions []core.Status

func (f fakeSessions) Sessions() []core.Status { return f }

func TestNotifyCountsEvents(t *testing.T) {
	m := New()

	m.Notify(types.Event{Kind: types.EventBetPlaced, UserID: 1, Game: types.TRX, Side: types.Big, Amount: decimal.NewFromInt(100)})
	m.Notify(types.Event{Kind: types.EventBetPlaced, UserID: 1, Game: types.TRX, Side: types.Big, Amount: decimal.NewFromInt(200)})
	m.Notify(types.Event{Kind: types.EventSkipRecorded, UserID: 1, Game: types.TRX, Side: types.Small})
	m.Notify(types.Event{Kind: types.EventRoundWon, UserID: 1, Game: types.TRX, Win: true, Profit: decimal.NewFromInt(96)})
	m.Notify(types.Event{Kind: types.EventRoundLost, UserID: 1, Game: types.TRX, Skipped: true})
	m.Notify(types.Event{Kind: types.EventThresholdReached, UserID: 1, Threshold: "TARGET_PROFIT"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bets.WithLabelValues("TRX", "B", "real")))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.staked.WithLabelValues("TRX", "real")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skips.WithLabelValues("TRX")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("TRX", "win")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("TRX", "skip_loss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.thresholds.WithLabelValues("TARGET_PROFIT")))
}

func TestHaltLabelIsBounded(t *testing.T) {
	assert.Equal(t, "bet_placement_failed", haltLabel(types.Event{Reason: "bet placement failed: connection reset"}))
	assert.Equal(t, "STOP_LOSS", haltLabel(types.Event{Reason: "STOP_LOSS", Threshold: "STOP_LOSS"}))
	assert.Equal(t, "stopped_by_user", haltLabel(types.Event{Reason: "stopped by user"}))
}

func TestRouter(t *testing.T) {
	m := New()
	live := fakeSessions{{
		SessionID: "abc",
		UserID:    9,
		Game:      types.Wingo,
		Running:   true,
		LastRound: "20260301001",
		Summary: types.SessionSummary{
			Strategy: "BEATRIX",
			Wins:     2,
			Profit:   decimal.NewFromInt(192),
		},
	}}
	m.TrackSessions(func() int { return len(live) })
	srv := httptest.NewServer(NewRouter(m, live))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0]["session_id"])
	assert.Equal(t, "BEATRIX", got[0]["strategy"])
	assert.Equal(t, "192", got[0]["profit"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "bsbot_sessions_running 1")
}
