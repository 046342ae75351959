// Package timectrl spaces simulation rounds in wall-clock time.
package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how a Pacer advances between rounds.
type Mode int

const (
	// Accelerated advances as quickly as the loop can run.
	Accelerated Mode = iota
	// RealTime waits Interval of wall-clock time between rounds.
	RealTime
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	default:
		return "accelerated"
	}
}

// Pacer gates a round loop. It satisfies core.Pacer.
type Pacer struct {
	mu       sync.Mutex
	Interval time.Duration
	Mode     Mode

	ticks     int
	listeners []func(tick int, at time.Time)
}

// NewPacer constructs a pacer. A non-positive interval always behaves as
// Accelerated.
func NewPacer(interval time.Duration, mode Mode) *Pacer {
	if interval <= 0 {
		mode = Accelerated
	}
	return &Pacer{Interval: interval, Mode: mode}
}

// Wait blocks until the next round may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Mode == RealTime {
		timer := time.NewTimer(p.Interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	p.ticks++
	tick := p.ticks
	listeners := append([]func(int, time.Time){}, p.listeners...)
	p.mu.Unlock()

	now := time.Now()
	for _, fn := range listeners {
		fn(tick, now)
	}
	return nil
}

// Ticks reports how many waits have completed.
func (p *Pacer) Ticks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

// AddListener registers a callback invoked after every completed wait.
func (p *Pacer) AddListener(fn func(tick int, at time.Time)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}
