package variate

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/murrant/snmpsim/internal/clock"
)

// dropThresholdMs is the computed delay above which the response is
// dropped instead of delayed.
const dropThresholdMs = 99999

// defaultWaitMs applies when the settings string names no wait.
const defaultWaitMs = 500

// thresholdOverride maps a lt/gt comparison against one threshold to a
// specific delay.
type thresholdOverride struct {
	value   int64
	delayMs float64
}

// overrideTable is one parsed vlist or tlist block. The eq form may
// carry several entries; lt and gt carry at most one threshold each.
type overrideTable struct {
	eq map[int64]float64
	lt *thresholdOverride
	gt *thresholdOverride
}

// pick selects the delay for v in first-match order: eq, then lt, then
// gt, then the base wait. ok is false when the probed value could not
// be interpreted as a number, in which case nothing matches.
func (t *overrideTable) pick(v int64, ok bool, baseMs float64) float64 {
	if ok {
		if t.eq != nil {
			if d, hit := t.eq[v]; hit {
				return d
			}
		}
		if t.lt != nil && v < t.lt.value {
			return t.lt.delayMs
		}
		if t.gt != nil && v > t.gt.value {
			return t.gt.delayMs
		}
	}
	return baseMs
}

// parseOverrides parses an op:value:delay:op:value:delay... list.
// Malformed entries are logged and skipped at entry granularity.
func parseOverrides(name, spec string) *overrideTable {
	t := &overrideTable{}
	items := strings.Split(spec, ":")
	for len(items) >= 3 {
		op, rawVal, rawDelay := items[0], items[1], items[2]
		items = items[3:]

		v, verr := strconv.ParseInt(rawVal, 10, 64)
		d, derr := strconv.ParseFloat(rawDelay, 64)
		if verr != nil || derr != nil {
			log.Printf("delay: bad %s entry %s:%s:%s, skipping", name, op, rawVal, rawDelay)
			continue
		}

		switch op {
		case "eq":
			if t.eq == nil {
				t.eq = make(map[int64]float64)
			}
			t.eq[v] = d
		case "lt":
			t.lt = &thresholdOverride{value: v, delayMs: d}
		case "gt":
			t.gt = &thresholdOverride{value: v, delayMs: d}
		default:
			log.Printf("delay: bad %s op %q, skipping", name, op)
		}
	}
	if len(items) != 0 {
		log.Printf("delay: trailing %s items %v, ignoring", name, items)
	}
	if t.eq == nil && t.lt == nil && t.gt == nil {
		return nil
	}
	return t
}

// DelayConfig is the parsed and validated delay settings for one
// recorded entry. Immutable after parsing.
type DelayConfig struct {
	WaitMs      float64
	DeviationMs float64
	// Value substitutes the response value on reads when HasValue is
	// set; decoded from hexvalue= or taken verbatim from value=.
	Value    string
	HasValue bool

	vlist *overrideTable
	tlist *overrideTable
}

// ParseDelayConfig parses the settings string of a delay entry.
// Numeric failures in wait/deviation/hexvalue are fatal here, at
// session setup, rather than rediscovered per request. Malformed
// vlist/tlist entries are logged and skipped.
func ParseDelayConfig(settings string) (*DelayConfig, error) {
	kv, err := splitSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("delay: %w", err)
	}

	cfg := &DelayConfig{WaitMs: defaultWaitMs}

	if raw, ok := kv["wait"]; ok {
		cfg.WaitMs, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("delay: bad wait %q: %w", raw, err)
		}
	}
	if raw, ok := kv["deviation"]; ok {
		cfg.DeviationMs, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("delay: bad deviation %q: %w", raw, err)
		}
	}

	if raw, ok := kv["hexvalue"]; ok {
		b, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("delay: bad hexvalue %q: %w", raw, err)
		}
		cfg.Value = string(b)
		cfg.HasValue = true
	} else if raw, ok := kv["value"]; ok {
		cfg.Value = raw
		cfg.HasValue = true
	}

	if raw, ok := kv["vlist"]; ok {
		cfg.vlist = parseOverrides("vlist", raw)
	}
	if raw, ok := kv["tlist"]; ok {
		cfg.tlist = parseOverrides("tlist", raw)
	}

	return cfg, nil
}

// Policy computes and applies response latency for one recorded entry.
// Thread-safe: concurrent requests against the same entry share it.
type Policy struct {
	cfg   *DelayConfig
	clock clock.Clock
	sink  Sink

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewPolicy creates a delay policy over cfg. If rng is nil, a
// time-seeded source is used; tests pass a seeded one.
func NewPolicy(cfg *DelayConfig, c clock.Clock, rng *rand.Rand, sink Sink) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Policy{cfg: cfg, clock: c, rng: rng, sink: sink}
}

// Compute returns the latency for one request, or drop=true when the
// response should not be sent at all. now is wall-clock time truncated
// to whole seconds. Selection order for an active override block is
// eq, then lt, then gt, then the base wait.
func (p *Policy) Compute(set bool, origValue string, now int64) (time.Duration, bool) {
	delay := p.cfg.WaitMs

	if set && p.cfg.vlist != nil {
		v, err := strconv.ParseInt(origValue, 10, 64)
		delay = p.cfg.vlist.pick(v, err == nil, p.cfg.WaitMs)
	} else if p.cfg.tlist != nil {
		delay = p.cfg.tlist.pick(now, true, p.cfg.WaitMs)
	}

	if p.cfg.DeviationMs > 0 {
		dev := int64(p.cfg.DeviationMs)
		p.mu.Lock()
		jitter := p.rng.Int63n(2*dev) - dev // uniform in [-dev, dev)
		p.mu.Unlock()
		delay += float64(jitter)
	}

	if delay < 0 {
		delay = 0
	}
	if delay > dropThresholdMs {
		return 0, true
	}
	return time.Duration(delay) * time.Millisecond, false
}

// Apply runs the full delay variation for one request: suspends for the
// computed latency (abortable through ctx), then echoes the original
// value, or the configured substitute on reads.
func (p *Policy) Apply(ctx context.Context, req Request) (Result, error) {
	if !req.Next && !req.Exact {
		return passthrough(req), nil
	}

	d, drop := p.Compute(req.Set, req.OrigValue, p.clock.Now().Unix())
	if drop {
		log.Printf("delay: dropping response for %s", req.OID)
		emit(p.sink, Event{Time: p.clock.Now(), Module: "delay", OID: req.OID, Kind: "drop"})
		return Result{Kind: KindDrop}, nil
	}

	log.Printf("delay: waiting %d milliseconds for %s", d.Milliseconds(), req.OID)
	emit(p.sink, Event{Time: p.clock.Now(), Module: "delay", OID: req.OID, Kind: "delay", Detail: d.String()})

	if err := clock.Wait(ctx, p.clock, d); err != nil {
		return Result{}, err
	}

	if req.Set || !p.cfg.HasValue {
		return Result{Kind: KindValue, OID: req.OID, Tag: req.Tag, Value: req.OrigValue}, nil
	}
	return Result{Kind: KindValue, OID: req.OID, Tag: req.Tag, Value: p.cfg.Value}, nil
}

// RecordDelay builds the delay-module capture record for one observed
// request/response pair: the value (or its hex form) plus the measured
// latency and any passthrough options. stop signals the end of the
// capture pass, which yields nothing further to store.
func RecordDelay(req Request, stop bool, hexvalue, options string, elapsed time.Duration) Result {
	if stop {
		return Result{Kind: KindNoMoreData}
	}

	var value string
	if hexvalue != "" {
		value = "hexvalue=" + hexvalue
	} else {
		value = "value=" + req.OrigValue
	}
	value += fmt.Sprintf(",wait=%d", elapsed.Milliseconds())
	if options != "" {
		value += "," + options
	}

	return Result{Kind: KindValue, OID: req.OID, Tag: req.Tag + ":delay", Value: value}
}
