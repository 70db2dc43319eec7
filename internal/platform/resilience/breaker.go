package resilience

import (
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
)

var ErrCircuitOpen = crerr.New("circuit breaker is open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker trips after Threshold consecutive counted failures and rejects calls
// until Cooldown elapses. It then admits up to Trials trial calls; all of them
// must succeed before it closes again.
type Breaker struct {
	mu  sync.Mutex
	cfg BreakerConfig
	now func() time.Time

	state     BreakerState
	streak    int
	trippedAt time.Time
	inFlight  int
	passed    int
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{
		cfg: cfg.Normalize(),
		now: time.Now,
	}
}

// Execute runs fn when the breaker admits it. Only errors for which counts
// reports true move the breaker toward open; a nil counts treats every error
// as a failure.
func (b *Breaker) Execute(fn func() error, counts func(error) bool) error {
	if !b.cfg.Enabled {
		return fn()
	}
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.settle(err != nil && (counts == nil || counts(err)))
	return err
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && b.cooled() {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if !b.cooled() {
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.inFlight, b.passed = 0, 0
	}
	if b.state == BreakerHalfOpen {
		if b.inFlight >= b.cfg.Trials {
			return ErrCircuitOpen
		}
		b.inFlight++
	}
	return nil
}

func (b *Breaker) settle(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		if !failed {
			b.streak = 0
			return
		}
		b.streak++
		if b.streak >= b.cfg.Threshold {
			b.trip()
		}
	case BreakerHalfOpen:
		if b.inFlight > 0 {
			b.inFlight--
		}
		if failed {
			b.trip()
			return
		}
		b.passed++
		if b.passed >= b.cfg.Trials && b.inFlight == 0 {
			b.state = BreakerClosed
			b.streak, b.passed = 0, 0
			b.trippedAt = time.Time{}
		}
	case BreakerOpen:
		if failed {
			b.trippedAt = b.now()
		}
	}
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.trippedAt = b.now()
	b.inFlight, b.passed = 0, 0
}

func (b *Breaker) cooled() bool {
	return b.now().Sub(b.trippedAt) >= b.cfg.Cooldown
}
