package backend

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrCircuitOpen is returned when the breaker refuses a backend call.
var ErrCircuitOpen = errors.New("backend: circuit open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a failure-ratio circuit breaker guarding the remote POS API.
// Checkout already degrades to the retry queue when a call fails; the breaker
// stops a flapping backend from adding a full timeout to every sale.
type Breaker struct {
	mu           sync.Mutex
	state        breakerState
	failures     int
	successes    int
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	logger       zerolog.Logger
}

// NewBreaker constructs a breaker that opens once the failure ratio exceeds
// the threshold over at least minRequests observations.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration, logger zerolog.Logger) *Breaker {
	if minRequests <= 0 {
		minRequests = 5
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		state:        stateClosed,
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		logger:       logger,
	}
}

// allow reports whether a call may proceed. An open breaker lets one probe
// through after the cool-off and moves to half-open.
func (b *Breaker) allow() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateOpen {
		if time.Since(b.openedAt) >= b.openFor {
			b.transition(stateHalfOpen)
			return true
		}
		return false
	}
	return true
}

// report records a call outcome and drives the state machine.
func (b *Breaker) report(success bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		return
	case stateHalfOpen:
		if success {
			b.transition(stateClosed)
		} else {
			b.transition(stateOpen)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.minRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.failureRatio {
		b.transition(stateOpen)
	} else if total > b.minRequests*2 {
		// Keep the window rolling instead of growing forever.
		b.successes = int(math.Ceil(float64(b.successes) * 0.5))
		b.failures = int(math.Ceil(float64(b.failures) * 0.5))
	}
}

// transition must be called with b.mu held.
func (b *Breaker) transition(next breakerState) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0
	if next == stateOpen {
		b.openedAt = time.Now()
	} else {
		b.openedAt = time.Time{}
	}
	b.logger.Info().
		Str("from_state", prev.String()).
		Str("to_state", next.String()).
		Msg("backend breaker transition")
}
