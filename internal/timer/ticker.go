package timer

import "time"

// Ticker delivers tick instants until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(interval time.Duration) Ticker

type realTicker struct {
	ticker *time.Ticker
}

// NewRealTicker wraps time.Ticker.
func NewRealTicker(interval time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(interval)}
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
