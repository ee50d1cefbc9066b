package risk

import (
	"testing"
	"testing/quick"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ladder(t *testing.T, v string) []decimal.Decimal {
	t.Helper()
	l, err := ParseLadder(v)
	require.NoError(t, err)
	return l
}

var plenty = decimal.NewFromInt(1_000_000)

func TestMartingaleResetsOnWin(t *testing.T) {
	p, err := NewProgression(Martingale, ladder(t, "100,200,500"))
	require.NoError(t, err)

	var bets []string
	for _, win := range []bool{false, false, true} {
		amt := p.NextAmount(plenty)
		bets = append(bets, amt.String())
		p.Advance(win, amt)
	}
	bets = append(bets, p.NextAmount(plenty).String())
	assert.Equal(t, []string{"100", "200", "500", "100"}, bets)
}

func TestMartingaleLossThenWin(t *testing.T) {
	p, err := NewProgression(Martingale, ladder(t, "100,200,500"))
	require.NoError(t, err)

	// loss then win: second bet is 200, third (after the win) is back to 100
	first := p.NextAmount(plenty)
	p.Advance(false, first)
	second := p.NextAmount(plenty)
	p.Advance(true, second)
	third := p.NextAmount(plenty)

	assert.Equal(t, "100", first.String())
	assert.Equal(t, "200", second.String())
	assert.Equal(t, "100", third.String())
}

func TestMartingaleClampsAtTop(t *testing.T) {
	p, err := NewProgression(Martingale, ladder(t, "10,20"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		p.Advance(false, p.NextAmount(plenty))
	}
	assert.Equal(t, 1, p.Index())
}

func TestAntiMartingale(t *testing.T) {
	p, err := NewProgression(AntiMartingale, ladder(t, "10,20,40"))
	require.NoError(t, err)
	p.Advance(true, decimal.NewFromInt(10))
	p.Advance(true, decimal.NewFromInt(20))
	p.Advance(true, decimal.NewFromInt(40))
	assert.Equal(t, 2, p.Index())
	p.Advance(false, decimal.NewFromInt(40))
	assert.Equal(t, 0, p.Index())
}

func TestIndexStaysInLadder(t *testing.T) {
	f := func(size uint8, results []bool, anti bool) bool {
		n := int(size%6) + 1
		sizes := make([]decimal.Decimal, n)
		for i := range sizes {
			sizes[i] = decimal.NewFromInt(int64(10 * (i + 1)))
		}
		kind := Martingale
		if anti {
			kind = AntiMartingale
		}
		p, err := NewProgression(kind, sizes)
		if err != nil {
			return false
		}
		for _, win := range results {
			p.Advance(win, p.NextAmount(plenty))
			if p.Index() < 0 || p.Index() > n-1 {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestDalembertUnitsNeverBelowOne(t *testing.T) {
	f := func(results []bool) bool {
		p, err := NewProgression(Dalembert, []decimal.Decimal{decimal.NewFromInt(100)})
		if err != nil {
			return false
		}
		for _, win := range results {
			p.Advance(win, p.NextAmount(plenty))
			if p.Units() < 1 {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestDalembertReducesTowardBalance(t *testing.T) {
	p, err := NewProgression(Dalembert, ladder(t, "100"))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		p.Advance(false, decimal.Zero)
	}
	require.Equal(t, 5, p.Units())
	assert.Equal(t, "500", p.NextAmount(plenty).String())

	// 350 available: units walk down to 3
	assert.Equal(t, "300", p.NextAmount(decimal.NewFromInt(350)).String())
	assert.Equal(t, 3, p.Units())

	// below one unit: floored at the unit size
	assert.Equal(t, "100", p.NextAmount(decimal.NewFromInt(40)).String())
	assert.Equal(t, 1, p.Units())

	p.Advance(true, decimal.Zero)
	assert.Equal(t, 1, p.Units())
}

func TestDalembertRejectsMultipleRungs(t *testing.T) {
	_, err := NewProgression(Dalembert, ladder(t, "100,200"))
	assert.ErrorIs(t, err, ErrDalembertLadder)
}

func TestCustomWalksByUsedAmount(t *testing.T) {
	p, err := NewProgression(Custom, ladder(t, "100,200,300,400"))
	require.NoError(t, err)

	p.Advance(false, decimal.NewFromInt(100))
	assert.Equal(t, 1, p.Index())
	p.Advance(false, decimal.NewFromInt(200))
	p.Advance(false, decimal.NewFromInt(300))
	p.Advance(false, decimal.NewFromInt(400))
	assert.Equal(t, 3, p.Index(), "clamped at top")

	p.Advance(true, decimal.NewFromInt(400))
	assert.Equal(t, 2, p.Index())

	// an amount not on the ladder is treated as rung 0
	p.Advance(true, decimal.NewFromInt(999))
	assert.Equal(t, 0, p.Index())
	p.Advance(false, decimal.NewFromInt(999))
	assert.Equal(t, 1, p.Index())
}

func TestValidateLadder(t *testing.T) {
	assert.ErrorIs(t, ValidateLadder(Martingale, nil), ErrEmptyLadder)
	assert.ErrorIs(t, ValidateLadder(Martingale, []decimal.Decimal{decimal.Zero}), ErrLadderAmount)
	assert.ErrorIs(t, ValidateLadder("FIBONACCI", ladder(t, "1")), ErrUnknownKind)
	assert.NoError(t, ValidateLadder(Custom, ladder(t, "5 10 20")))
}

func TestSnapshotRestore(t *testing.T) {
	p, err := NewProgression(Martingale, ladder(t, "1,2,3"))
	require.NoError(t, err)
	p.Advance(false, decimal.NewFromInt(1))
	snap := p.Snapshot()
	p.Advance(false, decimal.NewFromInt(2))
	p.Restore(snap)
	assert.Equal(t, 1, p.Index())
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"martingale":      Martingale,
		"anti-martingale": AntiMartingale,
		"dalembert":       Dalembert,
		"Custom":          Custom,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("kelly")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
