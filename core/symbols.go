package core

import (
	"time"

	"github.com/web3guy0/bsbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SYMBOLS - Game metadata
// ═══════════════════════════════════════════════════════════════════════════════

// Game describes one playable game
type Game struct {
	Kind     types.GameKind
	Name     string
	Duration time.Duration // round length
}

var games = []Game{
	{Kind: types.Wingo, Name: "WinGo 1 Min", Duration: time.Minute},
	{Kind: types.Wingo30s, Name: "WinGo 30 Sec", Duration: 30 * time.Second},
	{Kind: types.TRX, Name: "TRX Hash 1 Min", Duration: time.Minute},
}

// Games lists every supported game in menu order
func Games() []Game {
	return append([]Game(nil), games...)
}

// LookupGame finds a game's metadata
func LookupGame(kind types.GameKind) (Game, bool) {
	for _, g := range games {
		if g.Kind == kind {
			return g, true
		}
	}
	return Game{}, false
}
