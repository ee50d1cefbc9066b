package bot

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/bsbot/core"
	"github.com/web3guy0/bsbot/exec"
	"github.com/web3guy0/bsbot/storage"
	"github.com/web3guy0/bsbot/types"
)

const (
	admin  int64 = 1
	player int64 = 55
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	deleted  []int
	failNext int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return tgbotapi.Message{}, errors.New("Too Many Requests")
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
		f.deleted = append(f.deleted, d.MessageID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

type fixture struct {
	bot    *TelegramBot
	api    *fakeAPI
	engine *core.Engine
	store  *storage.Database
	paper  *exec.Paper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := core.DefaultConfig()
	cfg.Session.PollInterval = time.Hour
	cfg.BalanceAttempts = 1
	engine := core.NewEngine(cfg, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		engine.Shutdown(ctx)
	})

	paper := exec.NewPaper(decimal.NewFromInt(1000), nil)
	connect := func(_ context.Context, _ int64, phone, password string) (types.Platform, string, error) {
		if password != "secret" {
			return nil, "", errors.New("wrong password")
		}
		return paper, "95" + phone, nil
	}

	api := &fakeAPI{}
	b := New(api, Config{AdminID: admin, SendRetries: 3, SendRetryWait: 0}, engine, store, connect)
	return &fixture{bot: b, api: api, engine: engine, store: store, paper: paper}
}

func (f *fixture) do(userID int64, cmd, args string) string {
	return f.bot.handle(context.Background(), userID, cmd, args)
}

func TestUnauthorizedUntilAllowed(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.do(player, "settings", ""), "Not authorized")
	assert.Contains(t, f.do(player, "help", ""), "/login")
	assert.Contains(t, f.do(player, "id", ""), "55")

	assert.Equal(t, "🚫 Admin only", f.do(player, "allow", "55"))
	assert.Contains(t, f.do(admin, "allow", "55"), "allowed")
	assert.Contains(t, f.do(player, "settings", ""), "SETTINGS")
	assert.Contains(t, f.do(admin, "users", ""), "`55`")

	assert.Contains(t, f.do(admin, "revoke", "55"), "revoked")
	assert.Contains(t, f.do(admin, "revoke", "55"), "not on the list")
	assert.Contains(t, f.do(player, "status", ""), "Not authorized")
}

func TestConfigurationCommands(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.do(admin, "game", "wingo"), "WinGo 1 Min")
	assert.Contains(t, f.do(admin, "game", "poker"), "unknown game")
	assert.Contains(t, f.do(admin, "strategy", "lyzo"), "LYZO")
	assert.Contains(t, f.do(admin, "sizes", "100, 200, 500"), "100,200,500")
	assert.Contains(t, f.do(admin, "entry", "4"), "Usage")
	assert.Contains(t, f.do(admin, "entry", "2"), "*2*")
	assert.Contains(t, f.do(admin, "sllayer", "3"), "*3*")
	assert.Contains(t, f.do(admin, "target", "500"), "500.00")
	assert.Contains(t, f.do(admin, "stoploss", "off"), "off")
	assert.Contains(t, f.do(admin, "wait", "-1"), "Usage")
	assert.Contains(t, f.do(admin, "order", "BSXB"), "Usage")
	assert.Contains(t, f.do(admin, "order", "bssb"), "BSSB")

	s := f.engine.Settings(admin)
	assert.Equal(t, types.Wingo, s.Game)
	assert.Len(t, s.Ladder, 3)
	assert.EqualValues(t, 2, s.EntryMode)
	assert.Equal(t, 3, s.StopLossLayer)
	assert.Equal(t, "500", s.Target.String())
	assert.True(t, s.StopLoss.IsZero())
	assert.Equal(t, []types.Side{types.Big, types.Small, types.Small, types.Big}, s.Order)
}

func TestLadderRulesAtConfigureTime(t *testing.T) {
	f := newFixture(t)

	f.do(admin, "sizes", "100,200")
	assert.Contains(t, f.do(admin, "progression", "dalembert"), "update /sizes")
	assert.Contains(t, f.do(admin, "sizes", "100,200"), "exactly one")
	assert.Contains(t, f.do(admin, "sizes", "50"), "50")

	f.do(admin, "progression", "martingale")
	assert.Contains(t, f.do(admin, "strategy", "SNIPER"), "exactly 4")
	assert.Contains(t, f.do(admin, "sizes", "10,20"), "4 bet sizes")
	assert.Contains(t, f.do(admin, "sizes", "10,20,40,80"), "10,20,40,80")
}

func TestLoginAndRun(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.do(admin, "run", ""), "Log in first")
	assert.Contains(t, f.do(admin, "login", "0912"), "Usage")
	assert.Contains(t, f.do(admin, "login", "0912 nope"), "wrong password")

	reply := f.do(admin, "login", "0912 secret")
	assert.Contains(t, reply, "Logged in")
	assert.Contains(t, reply, "1000.00")
	assert.Equal(t, "950912", f.engine.Account(admin))

	f.do(admin, "virtual", "500")
	assert.Contains(t, f.do(admin, "run", ""), "STARTED")
	assert.Contains(t, f.do(admin, "run", ""), "Already running")
	assert.Contains(t, f.do(admin, "sizes", "10"), "/stop it")
	assert.Contains(t, f.do(admin, "status", ""), "RUNNING")

	assert.Equal(t, "", f.do(admin, "stop", ""))
	assert.Contains(t, f.do(admin, "stop", ""), "No running session")
	assert.Contains(t, f.do(admin, "status", ""), "STOPPED")
}

func TestLoginMessageIsDeleted(t *testing.T) {
	f := newFixture(t)
	msg := &tgbotapi.Message{
		MessageID: 9,
		Text:      "/login 0912 secret",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
		Chat:      &tgbotapi.Chat{ID: admin},
		From:      &tgbotapi.User{ID: admin},
	}

	f.bot.handleCommand(context.Background(), msg)

	assert.Equal(t, []int{9}, f.api.deleted)
	sent := f.api.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, admin, sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, sent[0].ParseMode)
	assert.Contains(t, sent[0].Text, "Logged in")
}

func TestNotifyRetriesSend(t *testing.T) {
	f := newFixture(t)
	f.api.failNext = 2

	f.bot.Notify(types.Event{
		Kind:    types.EventBetPlaced,
		UserID:  player,
		Game:    types.TRX,
		RoundID: "20260301001",
		Side:    types.Big,
		Amount:  decimal.NewFromInt(100),
		Balance: decimal.NewFromInt(900),
	})

	sent := f.api.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, player, sent[0].ChatID)
	assert.Contains(t, sent[0].Text, "BET PLACED")
}

func TestNotifyGivesUpAfterRetries(t *testing.T) {
	f := newFixture(t)
	f.api.failNext = 3

	f.bot.Notify(types.Event{Kind: types.EventRoundWon, UserID: player, Win: true})
	assert.Empty(t, f.api.messages())

	f.bot.Notify(types.Event{Kind: "UNKNOWN", UserID: player})
	assert.Empty(t, f.api.messages())
}

func TestHistoryCommand(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.do(admin, "history", ""), "No bet history")

	at := time.Now().UTC()
	f.store.Notify(types.Event{Kind: types.EventBetPlaced, UserID: admin, SessionID: "s", RoundID: "r1", Side: types.Small, Amount: decimal.NewFromInt(100), At: at})
	f.store.Notify(types.Event{Kind: types.EventRoundLost, UserID: admin, SessionID: "s", RoundID: "r1", Digit: 8, Result: types.Big, Profit: decimal.NewFromInt(-100), At: at.Add(time.Second)})

	reply := f.do(admin, "history", "")
	assert.Contains(t, reply, "LAST 1 ENTRIES")
	assert.Contains(t, reply, "❌ r1")
	assert.Contains(t, reply, "-100.00")
}
