package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/core"
	"github.com/web3guy0/bsbot/risk"
	"github.com/web3guy0/bsbot/storage"
	"github.com/web3guy0/bsbot/strategy"
	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - Session control & result notifications
// ═══════════════════════════════════════════════════════════════════════════════
//
// Features:
//   🔐 /login binds a platform account to the Telegram user
//   ⚙️ Configuration commands, refused while a session runs
//   👾 /run and 🚧 /stop
//   🎯 Bet, result, threshold and halt notifications
//   👮 Admin-managed allow-list
//
// ═══════════════════════════════════════════════════════════════════════════════

// Engine is the session control surface the bot drives
type Engine interface {
	Login(userID int64, platform types.Platform, account string) error
	Account(userID int64) string
	Settings(userID int64) core.Settings
	Configure(userID int64, fn func(*core.Settings) error) (core.Settings, error)
	Start(ctx context.Context, userID int64) (core.Status, error)
	Stop(userID int64) (core.Status, error)
	Status(userID int64) (core.Status, bool)
}

// Store holds the allow-list and bet history
type Store interface {
	IsAllowed(userID int64) (bool, error)
	Allow(userID, by int64) error
	Revoke(userID int64) (bool, error)
	ListAllowed() ([]int64, error)
	RecentBets(userID int64, limit int) ([]storage.BetRecord, error)
	Summary(userID int64) (storage.Summary, error)
}

// Connector logs a user into the game platform
type Connector func(ctx context.Context, userID int64, phone, password string) (types.Platform, string, error)

// API is the subset of tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Config holds bot settings
type Config struct {
	AdminID       int64
	SendRetries   int           // default: 3
	SendRetryWait time.Duration // default: 2s
}

// TelegramBot manages the Telegram interface
type TelegramBot struct {
	mu      sync.RWMutex
	api     API
	cfg     Config
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	engine  Engine
	store   Store
	connect Connector
}

// NewTelegramBot connects to Telegram with the bot token
func NewTelegramBot(token string, cfg Config, engine Engine, store Store, connect Connector) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")
	return New(api, cfg, engine, store, connect), nil
}

// New wires a bot around an existing API client
func New(api API, cfg Config, engine Engine, store Store, connect Connector) *TelegramBot {
	if cfg.SendRetries <= 0 {
		cfg.SendRetries = 3
	}
	if cfg.SendRetryWait < 0 {
		cfg.SendRetryWait = 2 * time.Second
	}
	return &TelegramBot{
		api:     api,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
		engine:  engine,
		store:   store,
		connect: connect,
	}
}

// Start begins listening for commands
func (b *TelegramBot) Start(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.commandLoop(ctx)
	log.Info().Msg("📱 Telegram bot started")
}

// Stop stops the bot and waits for in-flight commands
func (b *TelegramBot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stopCh)
	b.mu.Unlock()

	b.api.StopReceivingUpdates()
	b.wg.Wait()
	log.Info().Msg("Telegram bot stopped")
}

// ═══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// Notify implements types.Notifier; the user's private chat id is their user id
func (b *TelegramBot) Notify(ev types.Event) {
	text := FormatEvent(ev)
	if text == "" {
		return
	}
	b.sendMarkdown(ev.UserID, text)
}

// ═══════════════════════════════════════════════════════════════════════════════
// COMMAND HANDLING
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) commandLoop(ctx context.Context) {
	defer b.wg.Done()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() || update.Message.From == nil {
				continue
			}
			msg := update.Message
			cmd := strings.ToLower(msg.Command())

			// Login and run block on the platform; keep the loop responsive
			if cmd == "login" || cmd == "run" {
				b.wg.Add(1)
				go func() {
					defer b.wg.Done()
					b.handleCommand(ctx, msg)
				}()
				continue
			}
			b.handleCommand(ctx, msg)
		}
	}
}

func (b *TelegramBot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := strings.ToLower(msg.Command())
	if cmd == "login" {
		// the message carries a password
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
			log.Debug().Err(err).Msg("Could not delete login message")
		}
	}

	reply := b.handle(ctx, msg.From.ID, cmd, msg.CommandArguments())
	if reply != "" {
		b.sendMarkdown(msg.Chat.ID, reply)
	}
}

// handle runs one command and returns the Markdown reply ("" for none)
func (b *TelegramBot) handle(ctx context.Context, userID int64, cmd, args string) string {
	args = strings.TrimSpace(args)

	switch cmd {
	case "start", "help":
		return helpText
	case "id":
		return fmt.Sprintf("🆔 Your Telegram ID: `%d`", userID)
	}

	if !b.authorized(userID) {
		log.Warn().Int64("user", userID).Str("cmd", cmd).Msg("🚫 Unauthorized command")
		return fmt.Sprintf("🚫 Not authorized. Ask the admin to /allow `%d`", userID)
	}

	switch cmd {
	case "login":
		return b.cmdLogin(ctx, userID, args)
	case "settings":
		return FormatSettings(b.engine.Account(userID), b.engine.Settings(userID))
	case "game":
		return b.cmdGame(userID, args)
	case "strategy":
		return b.cmdStrategy(userID, args)
	case "sizes":
		return b.cmdSizes(userID, args)
	case "progression":
		return b.cmdProgression(userID, args)
	case "entry":
		return b.cmdEntry(userID, args)
	case "sllayer":
		return b.cmdStopLossLayer(userID, args)
	case "target":
		return b.cmdThreshold(userID, args, true)
	case "stoploss":
		return b.cmdThreshold(userID, args, false)
	case "virtual":
		return b.cmdVirtual(userID, args)
	case "real":
		return b.configure(userID, func(s *core.Settings) error {
			s.Virtual = false
			return nil
		}, func(core.Settings) string { return "💵 Switched to Real Mode" })
	case "wait":
		return b.cmdWait(userID, args)
	case "order":
		return b.cmdOrder(userID, args)
	case "run":
		return b.cmdRun(ctx, userID)
	case "stop":
		return b.cmdStop(userID)
	case "status":
		return b.cmdStatus(userID)
	case "history":
		return b.cmdHistory(userID)
	case "allow", "revoke", "users":
		return b.cmdAdmin(userID, cmd, args)
	}
	return "❓ Unknown command. Use /help"
}

const helpText = `🤖 *BIG/SMALL BOT COMMANDS*
━━━━━━━━━━━━━━━━━━━━

🔐 /login phone password
⚙️ /settings — current configuration
🎮 /game WINGO | WINGO\_30S | TRX
📚 /strategy name
💎 /sizes 100,200,500
🕹 /progression MARTINGALE | ANTI\_MARTINGALE | DALEMBERT | CUSTOM
⛳ /entry 1 | 2 | 3
💥 /sllayer n (0 = off)
🏹 /target amount | off
🔻 /stoploss amount | off
🖥️ /virtual balance — 💵 /real
⏳ /wait n — 🔁 /order BSBB

👾 /run — 🚧 /stop
📊 /status — 📜 /history
🆔 /id`

func (b *TelegramBot) authorized(userID int64) bool {
	if userID == b.cfg.AdminID {
		return true
	}
	if b.store == nil {
		return false
	}
	ok, err := b.store.IsAllowed(userID)
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("Allow-list lookup failed")
		return false
	}
	return ok
}

func (b *TelegramBot) configure(userID int64, fn func(*core.Settings) error, ok func(core.Settings) string) string {
	s, err := b.engine.Configure(userID, fn)
	if errors.Is(err, core.ErrAlreadyRunning) {
		return "⚠️ A session is running. /stop it before changing settings"
	}
	if err != nil {
		return "❌ " + esc(err.Error())
	}
	return ok(s)
}

func (b *TelegramBot) cmdLogin(ctx context.Context, userID int64, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "🔐 Usage: /login phone password"
	}
	if b.connect == nil {
		return "❌ Login is not available"
	}

	platform, account, err := b.connect(ctx, userID, fields[0], fields[1])
	if err != nil {
		log.Warn().Err(err).Int64("user", userID).Msg("⚠️ Platform login failed")
		return "❌ Login error: " + esc(err.Error())
	}
	if err := b.engine.Login(userID, platform, account); err != nil {
		if errors.Is(err, core.ErrAlreadyRunning) {
			return "⚠️ A session is running. /stop it before logging in again"
		}
		return "❌ " + esc(err.Error())
	}

	balance := "N/A"
	if bal, err := platform.Balance(ctx); err == nil {
		balance = money(bal)
	}
	return fmt.Sprintf("✅ Logged in\n👤 %s\n💰 Balance: *%s*", esc(account), balance)
}

func (b *TelegramBot) cmdGame(userID int64, args string) string {
	if args == "" {
		var sb strings.Builder
		sb.WriteString("🎮 *GAMES*\n")
		for _, g := range core.Games() {
			fmt.Fprintf(&sb, "• `%s` — %s\n", g.Kind, esc(g.Name))
		}
		return sb.String()
	}
	kind, err := types.ParseGameKind(args)
	if err != nil {
		return "❌ " + esc(err.Error())
	}
	return b.configure(userID, func(s *core.Settings) error {
		s.Game = kind
		return nil
	}, func(s core.Settings) string { return "🎮 Game set: *" + esc(gameName(s.Game)) + "*" })
}

func (b *TelegramBot) cmdStrategy(userID int64, args string) string {
	if args == "" {
		var sb strings.Builder
		sb.WriteString("📚 *STRATEGIES*\n")
		for _, k := range strategy.Kinds {
			fmt.Fprintf(&sb, "• `%s`\n", k)
		}
		return sb.String()
	}
	kind, err := strategy.ParseKind(args)
	if err != nil {
		return "❌ " + esc(err.Error())
	}
	return b.configure(userID, func(s *core.Settings) error {
		s.Strategy = kind
		return nil
	}, func(s core.Settings) string {
		msg := "📚 Strategy set: *" + esc(string(s.Strategy)) + "*"
		if s.Strategy == strategy.Sniper && len(s.Ladder) != 4 {
			msg += "\n💎 SNIPER needs exactly 4 bet sizes: /sizes 10,20,40,80"
		}
		return msg
	})
}

func (b *TelegramBot) cmdSizes(userID int64, args string) string {
	ladder, err := risk.ParseLadder(args)
	if err != nil {
		return "💎 Usage: /sizes 100,200,500\n❌ " + esc(err.Error())
	}
	return b.configure(userID, func(s *core.Settings) error {
		if err := risk.ValidateLadder(s.Progression, ladder); err != nil {
			return err
		}
		if s.Strategy == strategy.Sniper && len(ladder) != 4 {
			return strategy.ErrSniperLadder
		}
		s.Ladder = ladder
		return nil
	}, func(s core.Settings) string {
		return "💎 Bet sizes set: *" + esc(risk.LadderString(s.Ladder)) + "* " + currency
	})
}

func (b *TelegramBot) cmdProgression(userID int64, args string) string {
	kind, err := risk.ParseKind(args)
	if err != nil {
		return "🕹 Usage: /progression MARTINGALE | ANTI\\_MARTINGALE | DALEMBERT | CUSTOM"
	}
	return b.configure(userID, func(s *core.Settings) error {
		s.Progression = kind
		return nil
	}, func(s core.Settings) string {
		msg := "🕹 Progression set: *" + esc(string(s.Progression)) + "*"
		if err := risk.ValidateLadder(s.Progression, s.Ladder); err != nil {
			msg += "\n⚠️ " + esc(err.Error()) + ": update /sizes"
		}
		return msg
	})
}

func (b *TelegramBot) cmdEntry(userID int64, args string) string {
	mode, err := risk.ParseEntryMode(args)
	if err != nil {
		return "⛳ Usage: /entry 1 | 2 | 3\n❌ " + esc(err.Error())
	}
	return b.configure(userID, func(s *core.Settings) error {
		s.EntryMode = mode
		return nil
	}, func(s core.Settings) string { return fmt.Sprintf("⛳ Entry layer set: *%d*", s.EntryMode) })
}

func (b *TelegramBot) cmdStopLossLayer(userID int64, args string) string {
	n, err := strconv.Atoi(args)
	if err != nil || n < 0 {
		return "💥 Usage: /sllayer n (0 = off)"
	}
	return b.configure(userID, func(s *core.Settings) error {
		s.StopLossLayer = n
		return nil
	}, func(s core.Settings) string {
		if s.StopLossLayer == 0 {
			return "💥 Bet SL layer: *off*"
		}
		return fmt.Sprintf("💥 Bet SL layer set: skip after *%d* consecutive losses", s.StopLossLayer)
	})
}

func (b *TelegramBot) cmdThreshold(userID int64, args string, target bool) string {
	name, emoji, cmd := "Stop loss", "🔻", "stoploss"
	if target {
		name, emoji, cmd = "Profit target", "🏹", "target"
	}
	if args == "" {
		return fmt.Sprintf("%s Usage: /%s amount | off", emoji, cmd)
	}
	amt, err := risk.ParseAmount(args)
	if err != nil {
		return "❌ " + esc(err.Error())
	}
	return b.configure(userID, func(s *core.Settings) error {
		if target {
			s.Target = amt
		} else {
			s.StopLoss = amt
		}
		return nil
	}, func(core.Settings) string {
		if amt.IsZero() {
			return fmt.Sprintf("%s %s: *off*", emoji, name)
		}
		return fmt.Sprintf("%s %s set: *%s*\n(the session stops automatically)", emoji, name, money(amt))
	})
}

func (b *TelegramBot) cmdVirtual(userID int64, args string) string {
	bal, err := decimal.NewFromString(args)
	if err != nil || !bal.IsPositive() {
		return "🖥️ Usage: /virtual balance"
	}
	return b.configure(userID, func(s *core.Settings) error {
		s.Virtual = true
		s.VirtualBalance = bal
		return nil
	}, func(s core.Settings) string {
		return "🖥️ Switched to Virtual Mode with *" + money(s.VirtualBalance) + "*"
	})
}

func (b *TelegramBot) cmdWait(userID int64, args string) string {
	n, err := strconv.Atoi(args)
	if err != nil || n < 0 {
		return "⏳ Usage: /wait n"
	}
	return b.configure(userID, func(s *core.Settings) error {
		s.WaitCount = n
		return nil
	}, func(s core.Settings) string { return fmt.Sprintf("⏳ Wait count set: *%d*", s.WaitCount) })
}

func (b *TelegramBot) cmdOrder(userID int64, args string) string {
	order, err := types.ParseSequence(args)
	if err != nil {
		return "🔁 Usage: /order BSBBSS\n❌ " + esc(err.Error())
	}
	return b.configure(userID, func(s *core.Settings) error {
		s.Order = order
		return nil
	}, func(s core.Settings) string { return "🔁 Order set: *" + types.SequenceString(s.Order) + "*" })
}

func (b *TelegramBot) cmdRun(ctx context.Context, userID int64) string {
	st, err := b.engine.Start(ctx, userID)
	switch {
	case errors.Is(err, core.ErrNotLoggedIn):
		return "🔐 Log in first: /login phone password"
	case errors.Is(err, core.ErrAlreadyRunning):
		return "⚠️ Already running. /status to check it"
	case err != nil:
		return "❌ Cannot start: " + esc(err.Error())
	}
	settings := b.engine.Settings(userID)
	return fmt.Sprintf("👾 *STARTED*\n🎮 %s — 📚 %s\n💰 Balance: *%s* (%s)",
		esc(gameName(st.Game)), esc(string(settings.Strategy)),
		money(st.Summary.Balance), modeLabel(settings.Virtual))
}

func (b *TelegramBot) cmdStop(userID int64) string {
	if _, err := b.engine.Stop(userID); err != nil {
		return "📭 No running session"
	}
	// the halt summary arrives as a SESSION_HALTED notification
	return ""
}

func (b *TelegramBot) cmdStatus(userID int64) string {
	st, ok := b.engine.Status(userID)
	if !ok {
		return "📭 No session yet. /run to start\n\n" + FormatSettings(b.engine.Account(userID), b.engine.Settings(userID))
	}
	return FormatStatus(st)
}

func (b *TelegramBot) cmdHistory(userID int64) string {
	if b.store == nil {
		return "❌ History not available"
	}
	bets, err := b.store.RecentBets(userID, 10)
	if err != nil {
		return "❌ Failed to fetch history"
	}
	sum, err := b.store.Summary(userID)
	if err != nil {
		return "❌ Failed to fetch history"
	}
	return FormatHistory(bets, sum)
}

func (b *TelegramBot) cmdAdmin(userID int64, cmd, args string) string {
	if userID != b.cfg.AdminID {
		return "🚫 Admin only"
	}
	if b.store == nil {
		return "❌ Allow-list not available"
	}

	if cmd == "users" {
		ids, err := b.store.ListAllowed()
		if err != nil {
			return "❌ " + esc(err.Error())
		}
		if len(ids) == 0 {
			return "📭 Allow-list is empty"
		}
		var sb strings.Builder
		sb.WriteString("👥 *ALLOWED USERS*\n")
		for _, id := range ids {
			fmt.Fprintf(&sb, "• `%d`\n", id)
		}
		return sb.String()
	}

	target, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return fmt.Sprintf("Usage: /%s telegram\\_id", cmd)
	}
	if cmd == "allow" {
		if err := b.store.Allow(target, userID); err != nil {
			return "❌ " + esc(err.Error())
		}
		log.Info().Int64("user", target).Msg("👮 User allowed")
		return fmt.Sprintf("✅ `%d` allowed", target)
	}
	removed, err := b.store.Revoke(target)
	if err != nil {
		return "❌ " + esc(err.Error())
	}
	if !removed {
		return fmt.Sprintf("📭 `%d` was not on the list", target)
	}
	log.Info().Int64("user", target).Msg("👮 User revoked")
	return fmt.Sprintf("🗑️ `%d` revoked", target)
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	var err error
	for attempt := 1; attempt <= b.cfg.SendRetries; attempt++ {
		if _, err = b.api.Send(msg); err == nil {
			return
		}
		log.Warn().Err(err).Int64("chat", chatID).Int("attempt", attempt).Msg("⚠️ Telegram send failed")
		if attempt < b.cfg.SendRetries {
			time.Sleep(b.cfg.SendRetryWait)
		}
	}
	log.Error().Err(err).Int64("chat", chatID).Msg("❌ Failed to send Telegram message")
}
