// Package generator produces the synthetic, reproducible record dataset.
package generator

import (
	"fmt"
	"iter"
	"math/rand"
	"strings"
	"time"

	"github.com/arkilian/groupbench/internal/config"
	"github.com/arkilian/groupbench/pkg/types"
)

const (
	symbolAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	symbolLength   = 4
	minQuantity    = 10
	maxQuantity    = 1000
	minPriceCents  = 1000
	maxPriceCents  = 50000
	daysPerMonth   = 28
	firstKeyYear   = 2022
)

var sides = [...]string{"BUY", "SELL"}

// Options configures the generator.
type Options struct {
	RecordCount  int
	GroupCount   int
	PayloadSize  int
	Seed         int64
	Distribution config.Distribution
	PayloadMode  config.PayloadMode
}

// OptionsFromConfig extracts the generator options from a run configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		RecordCount:  cfg.RecordCount,
		GroupCount:   cfg.GroupCount,
		PayloadSize:  cfg.PayloadSize,
		Seed:         cfg.RandomSeed,
		Distribution: cfg.Distribution,
		PayloadMode:  cfg.PayloadMode,
	}
}

// Generator produces records. It holds no state between calls, so every
// call to All or Generate yields the same sequence for the same options.
type Generator struct {
	opts Options
	keys []string
}

// New creates a generator for the given options.
func New(opts Options) *Generator {
	return &Generator{
		opts: opts,
		keys: GroupKeys(opts.GroupCount),
	}
}

// GroupKeys returns n distinct ISO date keys starting at 2022-01-01, using
// days 1..28 of every month in chronological order.
func GroupKeys(n int) []string {
	if n <= 0 {
		return nil
	}
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		year := firstKeyYear + i/(12*daysPerMonth)
		month := time.Month(i/daysPerMonth%12 + 1)
		day := i%daysPerMonth + 1
		keys = append(keys, time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly))
	}
	return keys
}

// Keys returns the group keys the generator draws from.
func (g *Generator) Keys() []string {
	return append([]string(nil), g.keys...)
}

// All returns a restartable lazy sequence of records. Identifiers start at 1.
func (g *Generator) All() iter.Seq[types.Record] {
	return func(yield func(types.Record) bool) {
		if g.opts.RecordCount <= 0 || len(g.keys) == 0 {
			return
		}
		rng := rand.New(rand.NewSource(g.opts.Seed))
		constant := g.constantPayloads(rng)
		coverage := rng.Perm(len(g.keys))

		for i := 0; i < g.opts.RecordCount; i++ {
			idx := g.groupIndex(rng, i, coverage)
			rec := types.Record{
				ID:       int64(i + 1),
				GroupKey: g.keys[idx],
				Payload:  g.payload(rng, idx, constant),
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Generate returns all records eagerly.
func (g *Generator) Generate() []types.Record {
	records := make([]types.Record, 0, max(g.opts.RecordCount, 0))
	for rec := range g.All() {
		records = append(records, rec)
	}
	return records
}

// groupIndex picks the group for record i. Under the random policy the first
// len(keys) records visit every group once in shuffled order so no group is
// empty; the rest are uniform.
func (g *Generator) groupIndex(rng *rand.Rand, i int, coverage []int) int {
	n := len(g.keys)
	switch g.opts.Distribution {
	case config.DistributionRoundRobin:
		return i % n
	default:
		if i < n {
			return coverage[i]
		}
		return rng.Intn(n)
	}
}

func (g *Generator) constantPayloads(rng *rand.Rand) [][]byte {
	if g.opts.PayloadMode != config.PayloadConstant {
		return nil
	}
	payloads := make([][]byte, len(g.keys))
	for i := range payloads {
		payloads[i] = randomLetters(rng, g.opts.PayloadSize)
	}
	return payloads
}

func (g *Generator) payload(rng *rand.Rand, groupIdx int, constant [][]byte) []byte {
	switch g.opts.PayloadMode {
	case config.PayloadConstant:
		return constant[groupIdx]
	case config.PayloadRandom:
		return randomLetters(rng, g.opts.PayloadSize)
	default:
		return tradePayload(rng, g.opts.PayloadSize)
	}
}

// tradePayload renders "SIDE SYMB QTY PRICE", space-padded or truncated to
// size. A size of 0 keeps the natural length.
func tradePayload(rng *rand.Rand, size int) []byte {
	side := sides[rng.Intn(len(sides))]
	symbol := string(randomLetters(rng, symbolLength))
	qty := minQuantity + rng.Intn(maxQuantity-minQuantity+1)
	cents := minPriceCents + rng.Intn(maxPriceCents-minPriceCents+1)

	text := fmt.Sprintf("%s %s %d %d.%02d", side, symbol, qty, cents/100, cents%100)
	if size <= 0 {
		return []byte(text)
	}
	if len(text) >= size {
		return []byte(text[:size])
	}
	return []byte(text + strings.Repeat(" ", size-len(text)))
}

func randomLetters(rng *rand.Rand, n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = symbolAlphabet[rng.Intn(len(symbolAlphabet))]
	}
	return b
}
