package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/core"
	"github.com/web3guy0/bsbot/risk"
	"github.com/web3guy0/bsbot/storage"
	"github.com/web3guy0/bsbot/strategy"
	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FORMATTING - Markdown renderings of events, settings and status
// ═══════════════════════════════════════════════════════════════════════════════

const currency = "Ks"

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + currency
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

func sideEmoji(s types.Side) string {
	if s == types.Big {
		return "🟢"
	}
	return "🔴"
}

func gameName(kind types.GameKind) string {
	if g, ok := core.LookupGame(kind); ok {
		return g.Name
	}
	return string(kind)
}

func modeLabel(virtual bool) string {
	if virtual {
		return "🖥️ Virtual"
	}
	return "💵 Real"
}

// FormatEvent renders an engine event, or "" for kinds the chat never sees
func FormatEvent(ev types.Event) string {
	switch ev.Kind {
	case types.EventBetPlaced:
		return fmt.Sprintf(`🎯 *BET PLACED*

🎮 %s — %s
%s *%s* × *%s*
💰 Balance: *%s*`,
			esc(gameName(ev.Game)), esc(ev.RoundID),
			sideEmoji(ev.Side), ev.Side.Label(), money(ev.Amount),
			money(ev.Balance),
		)

	case types.EventSkipRecorded:
		msg := fmt.Sprintf("⏭️ *SKIP* %s — %s %s", esc(ev.RoundID), sideEmoji(ev.Side), ev.Side.Label())
		if ev.Reason != "" {
			msg += "\n_" + esc(ev.Reason) + "_"
		}
		return msg

	case types.EventRoundWon, types.EventRoundLost:
		if ev.Skipped {
			verdict := "would have lost"
			if ev.Win {
				verdict = "would have won"
			}
			msg := fmt.Sprintf("👁️ %s: %d %s — %s %s",
				esc(ev.RoundID), ev.Digit, ev.Result.Label(), ev.Side.Label(), verdict)
			if ev.Reason != "" {
				msg += "\n🔓 " + esc(ev.Reason)
			}
			return msg
		}
		head := "✅ *WIN*"
		if !ev.Win {
			head = "❌ *LOSS*"
		}
		return fmt.Sprintf(`%s %s

🎲 Result: *%d %s* (bet %s %s)
💵 Profit: *%s*
💰 Balance: *%s*`,
			head, esc(ev.RoundID),
			ev.Digit, ev.Result.Label(), ev.Side.Label(), money(ev.Amount),
			signed(ev.Profit),
			money(ev.Balance),
		)

	case types.EventThresholdReached:
		switch risk.StopReason(ev.Threshold) {
		case risk.TargetReached:
			return fmt.Sprintf("🏹 *PROFIT TARGET REACHED*\n💵 Profit: *%s*", signed(ev.Profit))
		case risk.StopLossReached:
			return fmt.Sprintf("🔻 *STOP LOSS REACHED*\n💵 Profit: *%s*", signed(ev.Profit))
		}
		return "⚠️ Threshold reached: " + esc(ev.Threshold)

	case types.EventSessionHalted:
		msg := "🚧 *SESSION STOPPED*\n_" + esc(ev.Reason) + "_"
		if ev.Summary != nil {
			msg += "\n━━━━━━━━━━━━━━━━━━━━\n" + formatSummary(*ev.Summary)
		}
		return msg
	}
	return ""
}

func formatSummary(s types.SessionSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 Strategy: *%s*\n", esc(s.Strategy))
	fmt.Fprintf(&sb, "🕹 Progression: *%s* (step %d", esc(s.Progression), s.ProgressionIndex+1)
	if s.ProgressionUnits > 1 {
		fmt.Fprintf(&sb, ", %d units", s.ProgressionUnits)
	}
	sb.WriteString(")\n")
	fmt.Fprintf(&sb, "✅ Wins: *%d*  ❌ Losses: *%d*  ⏭️ Skips: *%d*\n", s.Wins, s.Losses, s.Skips)
	if s.ConsecutiveLosses > 0 {
		fmt.Fprintf(&sb, "📉 Losing streak: *%d*\n", s.ConsecutiveLosses)
	}
	fmt.Fprintf(&sb, "💵 Profit: *%s*\n", signed(s.Profit))
	fmt.Fprintf(&sb, "💰 Balance: *%s* (%s)", money(s.Balance), modeLabel(s.Virtual))
	if !s.StartedAt.IsZero() {
		end := s.StoppedAt
		if end.IsZero() {
			end = time.Now()
		}
		fmt.Fprintf(&sb, "\n⏱️ Duration: %s", end.Sub(s.StartedAt).Round(time.Second))
	}
	return sb.String()
}

// FormatSettings renders a user's configuration
func FormatSettings(account string, s core.Settings) string {
	if account == "" {
		account = "not logged in"
	}
	sl := "off"
	if s.StopLossLayer > 0 {
		sl = fmt.Sprintf("%d", s.StopLossLayer)
	}
	target, stop := "off", "off"
	if s.Target.IsPositive() {
		target = money(s.Target)
	}
	if s.StopLoss.IsPositive() {
		stop = money(s.StopLoss)
	}
	mode := modeLabel(s.Virtual)
	if s.Virtual {
		mode += " " + money(s.VirtualBalance)
	}

	msg := fmt.Sprintf(`⚙️ *SETTINGS*
━━━━━━━━━━━━━━━━━━━━

👤 Account: *%s*
🎮 Game: *%s*
📚 Strategy: *%s*
🕹 Progression: *%s*
💎 Bet sizes: *%s*
⛳ Entry layer: *%d*
💥 Bet SL layer: *%s*
🏹 Target: *%s*
🔻 Stop loss: *%s*
🎮 Mode: *%s*`,
		esc(account), esc(gameName(s.Game)), esc(string(s.Strategy)),
		esc(string(s.Progression)), esc(risk.LadderString(s.Ladder)),
		s.EntryMode, sl, target, stop, mode,
	)
	switch s.Strategy {
	case strategy.TrendFollow, strategy.Alternate:
		msg += fmt.Sprintf("\n⏳ Wait count: *%d*", s.WaitCount)
	case strategy.BSOrder:
		order := types.SequenceString(s.Order)
		if order == "" {
			order = types.SequenceString(strategy.DefaultOrder)
		}
		msg += "\n🔁 Order: *" + order + "*"
	}
	return msg
}

// FormatStatus renders a session snapshot
func FormatStatus(st core.Status) string {
	state := "🔴 STOPPED"
	if st.Running {
		state = "🟢 RUNNING"
		if st.Waiting {
			state += " (waiting for result)"
		}
	}
	msg := fmt.Sprintf(`📊 *STATUS*
━━━━━━━━━━━━━━━━━━━━

%s
🎮 %s — last round %s
⏳ Pending: *%d*  👁️ Watching: *%d*`,
		state, esc(gameName(st.Game)), esc(orDash(st.LastRound)), st.Pending, st.Skipped)
	if st.Gate != "" {
		msg += "\n🚦 Gate: _" + esc(st.Gate) + "_"
	}
	if !st.Running && st.HaltReason != "" {
		msg += "\n🛑 " + esc(st.HaltReason)
	}
	return msg + "\n━━━━━━━━━━━━━━━━━━━━\n" + formatSummary(st.Summary)
}

// FormatHistory renders stored entries, newest first
func FormatHistory(bets []storage.BetRecord, sum storage.Summary) string {
	if len(bets) == 0 {
		return "📭 No bet history yet"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 *LAST %d ENTRIES*\n━━━━━━━━━━━━━━━━━━━━\n\n", len(bets))
	for _, b := range bets {
		side := types.Side(b.Side)
		status := "⏳"
		switch {
		case !b.Settled:
		case b.Win:
			status = "✅"
		default:
			status = "❌"
		}
		stake := money(b.Amount)
		if b.Skipped {
			stake = "skip"
		}
		line := fmt.Sprintf("%s %s %s %s %s", status, esc(b.RoundID), sideEmoji(side), side.Label(), stake)
		if b.Settled {
			line += fmt.Sprintf(" → %d", b.Digit)
		}
		sb.WriteString(line + "\n")
	}

	winRate := 0.0
	if settled := sum.Wins + sum.Losses; settled > 0 {
		winRate = float64(sum.Wins) / float64(settled) * 100
	}
	fmt.Fprintf(&sb, "\n━━━━━━━━━━━━━━━━━━━━\n✅ %d  ❌ %d  ⏭️ %d  📈 %.1f%%\n💵 Profit: *%s*",
		sum.Wins, sum.Losses, sum.Skips, winRate, signed(sum.Profit))
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
