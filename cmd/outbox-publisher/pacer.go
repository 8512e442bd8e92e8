package main

import (
	"math/rand/v2"
	"time"
)

const pollJitter = 250 * time.Millisecond

// pacer spaces relay passes: a fixed poll while idle and a doubling delay,
// capped at ceiling, while passes keep failing.
type pacer struct {
	base    time.Duration
	ceiling time.Duration
	current time.Duration
}

func newPacer(base, ceiling time.Duration) *pacer {
	return &pacer{base: base, ceiling: max(base, ceiling), current: base}
}

func (p *pacer) reset() {
	p.current = p.base
}

func (p *pacer) idle() time.Duration {
	p.reset()
	return p.base + jitter()
}

func (p *pacer) failure() time.Duration {
	p.current = min(p.current*2, p.ceiling)
	return p.current + jitter()
}

func jitter() time.Duration {
	return rand.N(pollJitter)
}
