package strategy

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/web3guy0/bsbot/types"
)

var (
	ErrWaitCount    = errors.New("wait count must not be negative")
	ErrSniperLadder = errors.New("SNIPER needs exactly 4 bet sizes")
	ErrPatternTable = errors.New("invalid pattern table")
)

// Fixed sequences
var (
	DefaultOrder    = mustSequence("BSBBSBSSSB")
	Dream2Pattern   = mustSequence("BBSBSSBBSBSS")
	LeoBigPattern   = mustSequence("BBSBSSSBSB")
	LeoSmallPattern = mustSequence("SSBSBBBSBS")
	defaultDream    = map[int]string{
		0: "SBBSBSSBBS",
		1: "BBSBSBSBBS",
		2: "SBSBBSBSBB",
		3: "BSBSBSSBSB",
		4: "SBBSBSBBSS",
		5: "BSSBSBBSBS",
		6: "BSBSSBSBSB",
		7: "SBSBSBSSBB",
		8: "BSBBSBSBSB",
		9: "SBSBBSSBSB",
	}
)

const (
	ShortHistory   = 10
	LongHistory    = 20
	fingerprintLen = 10
)

func mustSequence(v string) []types.Side {
	seq, err := types.ParseSequence(v)
	if err != nil {
		panic(err)
	}
	return seq
}

// Patterns holds the read-only tables loaded at startup
type Patterns struct {
	// LYZO: 10-outcome fingerprint -> predicted side
	Lyzo map[string]types.Side
	// DREAM: digit -> 10-outcome pattern
	Dream map[int][]types.Side
}

// DefaultPatterns returns the built-in tables: no LYZO fingerprints and the
// standard DREAM digit patterns.
func DefaultPatterns() *Patterns {
	p := &Patterns{
		Lyzo:  map[string]types.Side{},
		Dream: make(map[int][]types.Side, len(defaultDream)),
	}
	for d, s := range defaultDream {
		p.Dream[d] = mustSequence(s)
	}
	return p
}

// LoadPatterns reads the LYZO and DREAM tables. Either path may be empty or
// missing, in which case the built-in default for that table is kept. Both
// JSON and YAML files are accepted.
func LoadPatterns(lyzoPath, dreamPath string) (*Patterns, error) {
	p := DefaultPatterns()

	if raw, ok, err := readTable(lyzoPath); err != nil {
		return nil, err
	} else if ok {
		table, err := parseLyzo(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", lyzoPath, err)
		}
		p.Lyzo = table
		log.Info().Str("path", lyzoPath).Int("patterns", len(table)).Msg("📚 LYZO patterns loaded")
	}

	if raw, ok, err := readTable(dreamPath); err != nil {
		return nil, err
	} else if ok {
		table, err := parseDream(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dreamPath, err)
		}
		for d, seq := range table {
			p.Dream[d] = seq
		}
		log.Info().Str("path", dreamPath).Int("digits", len(table)).Msg("📚 DREAM patterns loaded")
	}

	return p, nil
}

func readTable(path string) (map[string]string, bool, error) {
	if path == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Pattern file not found, using defaults")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read pattern file: %w", err)
	}
	raw := map[string]string{}
	// YAML is a superset of JSON, one decoder covers both formats
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrPatternTable, path, err)
	}
	return raw, true, nil
}

func parseLyzo(raw map[string]string) (map[string]types.Side, error) {
	out := make(map[string]types.Side, len(raw))
	for key, val := range raw {
		fp, err := types.ParseSequence(key)
		if err != nil || len(fp) != fingerprintLen {
			return nil, fmt.Errorf("%w: fingerprint %q", ErrPatternTable, key)
		}
		side, err := types.ParseSide(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPatternTable, err)
		}
		out[types.SequenceString(fp)] = side
	}
	return out, nil
}

func parseDream(raw map[string]string) (map[int][]types.Side, error) {
	out := make(map[int][]types.Side, len(raw))
	for key, val := range raw {
		d, err := strconv.Atoi(key)
		if err != nil || d < 0 || d > 9 {
			return nil, fmt.Errorf("%w: digit %q", ErrPatternTable, key)
		}
		seq, err := types.ParseSequence(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPatternTable, err)
		}
		out[d] = seq
	}
	return out, nil
}
