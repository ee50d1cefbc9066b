package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATABASE - Bet ledger, session history, allow-list
// ═══════════════════════════════════════════════════════════════════════════════

type Database struct {
	db *gorm.DB
}

// BetRecord is one decision: a placed bet or a recorded skip
type BetRecord struct {
	ID        string `gorm:"primaryKey"` // ULID, sorts by placement time
	SessionID string `gorm:"index"`
	UserID    int64  `gorm:"index"`
	Game      string
	Strategy  string
	RoundID   string `gorm:"index"`
	Side      string
	Amount    decimal.Decimal `gorm:"type:decimal(20,6)"`
	Skipped   bool
	Virtual   bool
	Reason    string

	Settled   bool `gorm:"index"`
	Digit     int
	Result    string
	Win       bool
	Balance   decimal.Decimal `gorm:"type:decimal(20,6)"`
	Profit    decimal.Decimal `gorm:"type:decimal(20,6)"`
	PlacedAt  time.Time
	SettledAt *time.Time
}

// SessionRecord tracks one run from first decision to halt
type SessionRecord struct {
	ID          string `gorm:"primaryKey"` // session UUID
	UserID      int64  `gorm:"index"`
	Game        string
	Strategy    string
	Progression string
	Virtual     bool
	Wins        int
	Losses      int
	Skips       int
	Profit      decimal.Decimal `gorm:"type:decimal(20,6)"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,6)"`
	HaltReason  string
	Threshold   string
	StartedAt   time.Time
	StoppedAt   *time.Time
}

// AllowedUser may operate the bot
type AllowedUser struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	AddedBy   int64
	CreatedAt time.Time
}

// Summary aggregates a user's settled bets
type Summary struct {
	Bets    int64
	Wins    int64
	Losses  int64
	Skips   int64
	Staked  decimal.Decimal
	Profit  decimal.Decimal // summed over sessions
	Balance decimal.Decimal // latest known balance
}

// New opens the database. postgres:// DSNs use PostgreSQL, anything else is
// a SQLite file path.
func New(dsn string) (*Database, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("💾 Database connected (PostgreSQL)")
	} else {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dsn).Msg("💾 Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&BetRecord{}, &SessionRecord{}, &AllowedUser{}); err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close releases the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ═══════════════════════════════════════════════════════════════════════════════
// EVENT SINK
// ═══════════════════════════════════════════════════════════════════════════════

// Notify persists an engine event. Failures are logged; the engine never
// waits on storage.
func (d *Database) Notify(ev types.Event) {
	var err error
	switch ev.Kind {
	case types.EventBetPlaced, types.EventSkipRecorded:
		err = d.recordEntry(ev)
	case types.EventRoundWon, types.EventRoundLost:
		err = d.settleEntry(ev)
	case types.EventSessionHalted:
		err = d.closeSession(ev)
	default:
		return
	}
	if err != nil {
		log.Error().Err(err).Str("kind", string(ev.Kind)).Str("session", ev.SessionID).Msg("❌ Failed to persist event")
	}
}

func (d *Database) recordEntry(ev types.Event) error {
	at := eventTime(ev)
	return d.db.Transaction(func(tx *gorm.DB) error {
		session := SessionRecord{
			ID:        ev.SessionID,
			UserID:    ev.UserID,
			Game:      string(ev.Game),
			Strategy:  ev.Strategy,
			Virtual:   ev.Virtual,
			StartedAt: at,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&session).Error; err != nil {
			return err
		}

		rec := BetRecord{
			ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
			SessionID: ev.SessionID,
			UserID:    ev.UserID,
			Game:      string(ev.Game),
			Strategy:  ev.Strategy,
			RoundID:   ev.RoundID,
			Side:      string(ev.Side),
			Amount:    ev.Amount,
			Skipped:   ev.Kind == types.EventSkipRecorded,
			Virtual:   ev.Virtual,
			Reason:    ev.Reason,
			Balance:   ev.Balance,
			PlacedAt:  at,
		}
		if rec.Skipped {
			rec.Amount = decimal.Zero
		}
		return tx.Create(&rec).Error
	})
}

func (d *Database) settleEntry(ev types.Event) error {
	at := eventTime(ev)
	return d.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&BetRecord{}).
			Where("session_id = ? AND round_id = ? AND settled = ?", ev.SessionID, ev.RoundID, false).
			Updates(map[string]any{
				"settled":    true,
				"digit":      ev.Digit,
				"result":     string(ev.Result),
				"win":        ev.Win,
				"balance":    ev.Balance,
				"profit":     ev.Profit,
				"settled_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.Debug().Str("session", ev.SessionID).Str("round", ev.RoundID).Msg("Settlement without recorded entry")
		}

		column := "losses"
		switch {
		case ev.Skipped:
			column = "skips"
		case ev.Win:
			column = "wins"
		}
		return tx.Model(&SessionRecord{}).Where("id = ?", ev.SessionID).Updates(map[string]any{
			column:    gorm.Expr(column + " + 1"),
			"profit":  ev.Profit,
			"balance": ev.Balance,
		}).Error
	})
}

func (d *Database) closeSession(ev types.Event) error {
	at := eventTime(ev)
	rec := SessionRecord{
		ID:         ev.SessionID,
		UserID:     ev.UserID,
		Game:       string(ev.Game),
		Strategy:   ev.Strategy,
		Virtual:    ev.Virtual,
		HaltReason: ev.Reason,
		Threshold:  ev.Threshold,
		StartedAt:  at,
		StoppedAt:  &at,
		Profit:     ev.Profit,
		Balance:    ev.Balance,
	}
	if s := ev.Summary; s != nil {
		rec.Progression = s.Progression
		rec.Virtual = s.Virtual
		rec.Wins, rec.Losses, rec.Skips = s.Wins, s.Losses, s.Skips
		rec.Profit, rec.Balance = s.Profit, s.Balance
		if !s.StartedAt.IsZero() {
			rec.StartedAt = s.StartedAt
		}
		if !s.StoppedAt.IsZero() {
			stopped := s.StoppedAt
			rec.StoppedAt = &stopped
		}
	}
	return d.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"progression", "virtual", "wins", "losses", "skips",
			"profit", "balance", "halt_reason", "threshold", "stopped_at",
		}),
	}).Create(&rec).Error
}

func eventTime(ev types.Event) time.Time {
	if ev.At.IsZero() {
		return time.Now().UTC()
	}
	return ev.At.UTC()
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ═══════════════════════════════════════════════════════════════════════════════

// RecentBets returns the user's latest entries, newest first
func (d *Database) RecentBets(userID int64, limit int) ([]BetRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var bets []BetRecord
	err := d.db.Where("user_id = ?", userID).Order("placed_at DESC, id DESC").Limit(limit).Find(&bets).Error
	return bets, err
}

// Sessions returns the user's latest sessions, newest first
func (d *Database) Sessions(userID int64, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []SessionRecord
	err := d.db.Where("user_id = ?", userID).Order("started_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// Summary aggregates every settled entry of the user
func (d *Database) Summary(userID int64) (Summary, error) {
	var bets []BetRecord
	if err := d.db.Where("user_id = ? AND settled = ?", userID, true).Order("settled_at ASC, id ASC").Find(&bets).Error; err != nil {
		return Summary{}, err
	}

	sum := Summary{Staked: decimal.Zero, Profit: decimal.Zero, Balance: decimal.Zero}
	last := make(map[string]decimal.Decimal) // session → final profit
	for _, b := range bets {
		sum.Bets++
		switch {
		case b.Skipped:
			sum.Skips++
		case b.Win:
			sum.Wins++
		default:
			sum.Losses++
		}
		sum.Staked = sum.Staked.Add(b.Amount)
		sum.Balance = b.Balance
		last[b.SessionID] = b.Profit
	}
	for _, p := range last {
		sum.Profit = sum.Profit.Add(p)
	}
	return sum, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// ALLOW-LIST
// ═══════════════════════════════════════════════════════════════════════════════

// Allow grants access. Allowing a user twice is a no-op.
func (d *Database) Allow(userID, by int64) error {
	return d.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&AllowedUser{UserID: userID, AddedBy: by, CreatedAt: time.Now().UTC()}).Error
}

// Revoke removes access, reporting whether the user was listed
func (d *Database) Revoke(userID int64) (bool, error) {
	res := d.db.Delete(&AllowedUser{}, "user_id = ?", userID)
	return res.RowsAffected > 0, res.Error
}

// IsAllowed reports whether the user is on the list
func (d *Database) IsAllowed(userID int64) (bool, error) {
	var u AllowedUser
	err := d.db.First(&u, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ListAllowed returns every allowed user id in ascending order
func (d *Database) ListAllowed() ([]int64, error) {
	var ids []int64
	err := d.db.Model(&AllowedUser{}).Order("user_id ASC").Pluck("user_id", &ids).Error
	return ids, err
}
