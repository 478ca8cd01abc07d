package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultSession is one Pomodoro focus block.
const DefaultSession = 25 * time.Minute

const tickPeriod = time.Second

// State is a snapshot of the countdown.
type State struct {
	Remaining int  `json:"remaining"`
	Running   bool `json:"running"`
}

// Format renders the remaining time as MM:SS.
func (s State) Format() string {
	return fmt.Sprintf("%02d:%02d", s.Remaining/60, s.Remaining%60)
}

// Engine is a per-viewer countdown. It is Idle or Running; while Running a
// one-second ticker decrements Remaining until it reaches zero.
type Engine struct {
	clock    clock.Clock
	full     int
	onChange func(State)

	mu        sync.Mutex
	remaining int
	running   bool
	closed    bool
	stop      chan struct{}
	done      chan struct{}
}

type Option func(*Engine)

// WithDuration overrides the session length.
func WithDuration(d time.Duration) Option {
	return func(e *Engine) {
		if secs := int(d / time.Second); secs > 0 {
			e.full = secs
		}
	}
}

// WithOnChange registers a callback for every state change. It runs on the
// caller's goroutine or the ticker goroutine and must not call Pause, Reset or
// Close.
func WithOnChange(fn func(State)) Option {
	return func(e *Engine) { e.onChange = fn }
}

func New(clk clock.Clock, opts ...Option) *Engine {
	e := &Engine{
		clock: clk,
		full:  int(DefaultSession / time.Second),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.remaining = e.full
	return e
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Start moves Idle to Running. It does nothing when already running or when
// the countdown is at zero.
func (e *Engine) Start() {
	if e.State().Running {
		return
	}
	// a ticker left behind by a manual Tick reaching zero
	e.halt()

	e.mu.Lock()
	if e.closed || e.running || e.remaining == 0 {
		e.mu.Unlock()
		return
	}
	e.running = true
	stop, done := make(chan struct{}), make(chan struct{})
	e.stop, e.done = stop, done
	ticker := e.clock.Ticker(tickPeriod)
	st := e.stateLocked()
	e.mu.Unlock()

	go e.run(ticker, stop, done)
	e.notify(st)
}

// Pause moves Running to Idle and keeps the remaining time.
func (e *Engine) Pause() {
	e.mu.Lock()
	wasRunning := e.running
	e.running = false
	st := e.stateLocked()
	e.mu.Unlock()

	e.halt()
	if wasRunning {
		e.notify(st)
	}
}

// Reset returns to Idle with the full session length from any state.
func (e *Engine) Reset() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.remaining = e.full
	st := e.stateLocked()
	e.mu.Unlock()

	e.halt()
	e.notify(st)
}

// Tick advances a running countdown by one second.
func (e *Engine) Tick() {
	if st, changed := e.tick(); changed {
		e.notify(st)
	}
}

// Close stops the ticker. No callback fires after Close returns.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.running = false
	e.mu.Unlock()
	e.halt()
}

func (e *Engine) tick() (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return e.stateLocked(), false
	}
	if e.remaining > 0 {
		e.remaining--
	}
	if e.remaining == 0 {
		e.running = false
	}
	return e.stateLocked(), true
}

func (e *Engine) run(ticker *clock.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			st, changed := e.tick()
			if !changed {
				// a manual Tick already stopped the countdown
				return
			}
			select {
			case <-stop:
				return
			default:
			}
			e.notify(st)
			if !st.Running {
				return
			}
		}
	}
}

// halt stops the ticker goroutine, if any, and waits for it to exit.
func (e *Engine) halt() {
	e.mu.Lock()
	stop, done := e.stop, e.done
	e.stop, e.done = nil, nil
	e.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (e *Engine) notify(st State) {
	if e.onChange != nil {
		e.onChange(st)
	}
}

func (e *Engine) stateLocked() State {
	return State{Remaining: e.remaining, Running: e.running}
}
