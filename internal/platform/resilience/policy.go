package resilience

import "time"

// BreakerConfig tunes a Breaker. Zero values fall back to the defaults.
type BreakerConfig struct {
	Enabled   bool
	Threshold int
	Cooldown  time.Duration
	Trials    int
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:   true,
		Threshold: 5,
		Cooldown:  30 * time.Second,
		Trials:    1,
	}
}

func (c BreakerConfig) Normalize() BreakerConfig {
	defaults := DefaultBreakerConfig()
	if c.Threshold < 1 {
		c.Threshold = defaults.Threshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = defaults.Cooldown
	}
	if c.Trials < 1 {
		c.Trials = defaults.Trials
	}
	return c
}

// Retry runs fn up to attempts times in total, stopping at the first success or
// at the first error that retryable rejects. Every attempt first waits on pacer,
// which may be nil. onRetry, when set, sees each error that leads to another try.
func Retry(attempts int, pacer *Pacer, retryable func(error) bool, onRetry func(attempt int, err error), fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		pacer.Wait()
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts || retryable == nil || !retryable(err) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	return err
}
