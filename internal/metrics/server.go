package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/bsbot/core"
)

// SessionLister is the engine view the admin routes read
type SessionLister interface {
	Sessions() []core.Status
}

type sessionView struct {
	SessionID   string          `json:"session_id"`
	UserID      int64           `json:"user_id"`
	Game        string          `json:"game"`
	Strategy    string          `json:"strategy"`
	Progression string          `json:"progression"`
	Waiting     bool            `json:"waiting"`
	LastRound   string          `json:"last_round"`
	Pending     int             `json:"pending"`
	Skipped     int             `json:"skipped"`
	Gate        string          `json:"gate,omitempty"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	Skips       int             `json:"skips"`
	Profit      decimal.Decimal `json:"profit"`
	Balance     decimal.Decimal `json:"balance"`
	Virtual     bool            `json:"virtual"`
	StartedAt   time.Time       `json:"started_at"`
}

// NewRouter mounts /healthz, /metrics and /sessions
func NewRouter(m *Metrics, sessions SessionLister) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/sessions", sessionsHandler(sessions))
	return r
}

func sessionsHandler(sessions SessionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		live := sessions.Sessions()
		out := make([]sessionView, 0, len(live))
		for _, s := range live {
			out = append(out, sessionView{
				SessionID:   s.SessionID,
				UserID:      s.UserID,
				Game:        string(s.Game),
				Strategy:    s.Summary.Strategy,
				Progression: s.Summary.Progression,
				Waiting:     s.Waiting,
				LastRound:   s.LastRound,
				Pending:     s.Pending,
				Skipped:     s.Skipped,
				Gate:        s.Gate,
				Wins:        s.Summary.Wins,
				Losses:      s.Summary.Losses,
				Skips:       s.Summary.Skips,
				Profit:      s.Summary.Profit,
				Balance:     s.Summary.Balance,
				Virtual:     s.Summary.Virtual,
				StartedAt:   s.Summary.StartedAt,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// Serve runs the admin HTTP server until ctx is cancelled
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("📊 Metrics listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
