package exec

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/bsbot/types"
)

type fakeAPI struct {
	t *testing.T

	mu       sync.Mutex
	bodies   map[string]map[string]any
	auth     map[string]string
	fail5xx  int
	handlers map[string]func(body map[string]any) any
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{
		t:        t,
		bodies:   map[string]map[string]any{},
		auth:     map[string]string{},
		handlers: map[string]func(map[string]any) any{},
	}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fail5xx > 0 {
		a.fail5xx--
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	endpoint := strings.TrimPrefix(r.URL.Path, "/")
	var body map[string]any
	require.NoError(a.t, json.NewDecoder(r.Body).Decode(&body))
	a.bodies[endpoint] = body
	a.auth[endpoint] = r.Header.Get("Authorization")

	sig, err := Sign(body)
	require.NoError(a.t, err)
	if sig != body["signature"] {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 5, "msg": "bad signature"})
		return
	}

	h, ok := a.handlers[endpoint]
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 404, "msg": "no such endpoint"})
		return
	}
	_ = json.NewEncoder(w).Encode(h(body))
}

func (a *fakeAPI) on(endpoint string, h func(body map[string]any) any) {
	a.mu.Lock()
	a.handlers[endpoint] = h
	a.mu.Unlock()
}

func ok(data any) any {
	return map[string]any{"code": 0, "msg": "Succeed", "data": data}
}

func loggedIn(t *testing.T, api *fakeAPI, srv *httptest.Server) *Client {
	api.on("Login", func(map[string]any) any {
		return ok(map[string]any{"tokenHeader": "Bearer ", "token": "tok-123"})
	})
	c := NewClient(ClientConfig{BaseURL: srv.URL, PhonePrefix: "95", RetryWait: 10 * time.Millisecond})
	require.NoError(t, c.Login(context.Background(), "9123456", "secret"))
	return c
}

func TestSignIgnoresSignatureAndTimestamp(t *testing.T) {
	a, err := Sign(map[string]any{"b": 1, "a": "x"})
	require.NoError(t, err)
	b, err := Sign(map[string]any{"a": "x", "b": 1, "signature": "old", "timestamp": 99})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.Equal(t, strings.ToUpper(a), a)
}

func TestLoginSendsSignedBodyAndKeepsToken(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := loggedIn(t, api, srv)

	body := api.bodies["Login"]
	assert.Equal(t, "959123456", body["username"])
	assert.Equal(t, "secret", body["pwd"])
	assert.Equal(t, "mobile", body["logintype"])
	assert.EqualValues(t, 7, body["language"])
	assert.NotEmpty(t, body["random"])
	assert.NotZero(t, body["timestamp"])
	assert.Equal(t, "959123456", c.Account())

	api.on("GetBalance", func(map[string]any) any { return ok(map[string]any{"amount": "1234.5"}) })
	bal, err := c.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1234.5", bal.String())
	assert.Equal(t, "Bearer tok-123", api.auth["GetBalance"])
}

func TestCallsBeforeLoginFail(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Balance(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.OpenRound(context.Background(), types.Wingo)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.ErrorIs(t, c.PlaceBet(context.Background(), types.BetOrder{}), ErrNotLoggedIn)
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.on("Login", func(map[string]any) any { return map[string]any{"code": 1, "msg": "wrong password"} })
	c := NewClient(ClientConfig{BaseURL: srv.URL})

	err := c.Login(context.Background(), "1", "2")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, apiErr.Code)
	assert.Equal(t, "wrong password", apiErr.Msg)
}

func TestWingoRoundsAndSettlements(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := loggedIn(t, api, srv)

	api.on("GetGameIssue", func(map[string]any) any {
		return ok(map[string]any{"issueNumber": "20261014100010123"})
	})
	api.on("GetNoaverageEmerdList", func(map[string]any) any {
		return ok(map[string]any{"list": []map[string]any{
			{"issueNumber": "20261014100010122", "number": "7"},
			{"issueNumber": "20261014100010121", "number": 3},
			{"issueNumber": "", "number": 1},
		}})
	})

	round, err := c.OpenRound(context.Background(), types.Wingo30s)
	require.NoError(t, err)
	assert.Equal(t, "20261014100010123", round)
	assert.EqualValues(t, 30, api.bodies["GetGameIssue"]["typeId"])

	list, err := c.RecentSettlements(context.Background(), types.Wingo30s)
	require.NoError(t, err)
	require.Len(t, list, 2, "rows without an issue number are dropped")
	assert.Equal(t, types.Settlement{RoundID: "20261014100010122", Digit: 7}, list[0])
	assert.Equal(t, types.Small, list[1].Side())
	assert.EqualValues(t, 10, api.bodies["GetNoaverageEmerdList"]["pageSize"])
}

func TestTRXUsesIssueEndpointForSettlement(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := loggedIn(t, api, srv)

	api.on("GetTrxGameIssue", func(map[string]any) any {
		return ok(map[string]any{
			"predraw": map[string]any{"issueNumber": "T2"},
			"settled": map[string]any{"issueNumber": "T1", "number": "15"},
		})
	})

	round, err := c.OpenRound(context.Background(), types.TRX)
	require.NoError(t, err)
	assert.Equal(t, "T2", round)

	list, err := c.RecentSettlements(context.Background(), types.TRX)
	require.NoError(t, err)
	assert.Equal(t, []types.Settlement{{RoundID: "T1", Digit: 5}}, list)

	api.on("GameTrxBetting", func(map[string]any) any { return ok(nil) })
	err = c.PlaceBet(context.Background(), types.BetOrder{
		Game: types.TRX, RoundID: "T2", Side: types.Small,
		UnitAmount: decimal.NewFromInt(10), UnitCount: 3,
	})
	require.NoError(t, err)
	body := api.bodies["GameTrxBetting"]
	assert.EqualValues(t, 14, body["selectType"])
	assert.EqualValues(t, 13, body["typeId"])
}

func TestPlaceBetBody(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := loggedIn(t, api, srv)
	api.on("GameBetting", func(map[string]any) any { return ok(nil) })

	err := c.PlaceBet(context.Background(), types.BetOrder{
		Game: types.Wingo, RoundID: "R9", Side: types.Big,
		UnitAmount: decimal.NewFromInt(100), UnitCount: 2,
	})
	require.NoError(t, err)

	body := api.bodies["GameBetting"]
	assert.Equal(t, "R9", body["issuenumber"])
	assert.EqualValues(t, 13, body["selectType"])
	assert.EqualValues(t, 100, body["amount"])
	assert.EqualValues(t, 2, body["betCount"])
	assert.EqualValues(t, 2, body["gameType"])

	err = c.PlaceBet(context.Background(), types.BetOrder{Game: types.Wingo, RoundID: "R9", Side: types.Big})
	assert.Error(t, err, "zero stake rejected locally")
}

func TestTransportRetriesServerErrors(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.on("Login", func(map[string]any) any {
		return ok(map[string]any{"token": "t"})
	})
	api.fail5xx = 2

	c := NewClient(ClientConfig{BaseURL: srv.URL, Retries: 3, RetryWait: 5 * time.Millisecond})
	require.NoError(t, c.Login(context.Background(), "1", "2"))
	assert.Equal(t, "Bearer ", c.tokenHeader, "default header")

	api.fail5xx = 5
	c = NewClient(ClientConfig{BaseURL: srv.URL, Retries: 1, RetryWait: 5 * time.Millisecond})
	assert.Error(t, c.Login(context.Background(), "1", "2"))
}

func TestPaperSettlesAndPays(t *testing.T) {
	digits := []int{7, 2}
	p := NewPaper(decimal.NewFromInt(1000), func(n int64) int { return digits[(n-1)%2] })
	ctx := context.Background()

	round, err := p.OpenRound(ctx, types.Wingo)
	require.NoError(t, err)
	require.NoError(t, p.PlaceBet(ctx, types.BetOrder{
		Game: types.Wingo, RoundID: round, Side: types.Big,
		UnitAmount: decimal.NewFromInt(100), UnitCount: 1,
	}))

	s := p.Settle()
	assert.Equal(t, round, s.RoundID)
	assert.Equal(t, 7, s.Digit)

	bal, err := p.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1096", bal.String())

	err = p.PlaceBet(ctx, types.BetOrder{Game: types.Wingo, RoundID: round, Side: types.Big, UnitAmount: decimal.NewFromInt(1), UnitCount: 1})
	assert.ErrorIs(t, err, ErrRoundClosed)

	next, _ := p.OpenRound(ctx, types.Wingo)
	err = p.PlaceBet(ctx, types.BetOrder{Game: types.Wingo, RoundID: next, Side: types.Big, UnitAmount: decimal.NewFromInt(5000), UnitCount: 1})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	p.FailNext(1)
	_, err = p.RecentSettlements(ctx, types.Wingo)
	assert.Error(t, err)
	list, err := p.RecentSettlements(ctx, types.Wingo)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, p.Placed(), 1)
}
