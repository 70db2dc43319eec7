package resilience

import (
	"sync"
	"time"
)

// Pacer enforces a minimum interval between successive calls to Wait.
// Waiting is a plain blocking sleep and does not observe cancellation.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(time.Duration)
}

func NewPacer(interval time.Duration) *Pacer {
	if interval < 0 {
		interval = 0
	}
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait blocks until at least the configured interval has passed since the
// previous Wait returned, then marks the current time. It returns the time slept.
func (p *Pacer) Wait() time.Duration {
	if p == nil {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var slept time.Duration
	if !p.last.IsZero() && p.interval > 0 {
		if remaining := p.interval - p.now().Sub(p.last); remaining > 0 {
			p.sleep(remaining)
			slept = remaining
		}
	}
	p.last = p.now()
	return slept
}
