// Package browser owns the single headless browser process shared by all
// scrapes. The process is started lazily, handed out as pages, and torn down
// after a period without use.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of the managed process.
type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Defaults for the idle eviction loop.
const (
	DefaultIdleTimeout   = 60 * time.Second
	DefaultCheckInterval = 10 * time.Second
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("browser manager closed")

// Handle is a running browser process.
type Handle interface {
	// Connected reports whether the process is still usable.
	Connected() bool
	// NewPage opens a page (tab) whose lifetime ends when the returned cancel is called.
	NewPage() (context.Context, context.CancelFunc)
	// Close terminates the process.
	Close() error
}

// LaunchFunc starts a new browser process.
type LaunchFunc func() (Handle, error)

// Options configures a Manager.
type Options struct {
	IdleTimeout   time.Duration
	CheckInterval time.Duration
	Logger        *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager hands out pages from one lazily launched browser process.
// All shared state lives here; acquire, release and the idle check are the
// only places it changes.
type Manager struct {
	launch LaunchFunc
	logger *slog.Logger

	idleTimeout   time.Duration
	checkInterval time.Duration
	now           func() time.Time

	mu       sync.Mutex
	state    State
	handle   Handle
	lastUsed time.Time
	pages    int
	launched chan struct{} // closed when the in-flight launch finishes
	closed   bool

	stop chan struct{}
	done chan struct{}
}

// NewManager creates a manager and starts its idle check loop.
func NewManager(launch LaunchFunc, opts Options) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		launch:        launch,
		logger:        opts.Logger,
		idleTimeout:   opts.IdleTimeout,
		checkInterval: opts.CheckInterval,
		now:           opts.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go m.idleLoop()
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Acquire returns the shared handle, launching a process when none is ready
// or the current one has disconnected. Every call counts as use for the idle timer.
func (m *Manager) Acquire(ctx context.Context) (Handle, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrClosed
		}
		m.lastUsed = m.now()

		switch m.state {
		case StateReady:
			if m.handle.Connected() {
				h := m.handle
				m.mu.Unlock()
				return h, nil
			}
			m.logger.Warn("Browser process disconnected, relaunching")
			stale := m.handle
			m.handle = nil
			m.state = StateUninitialized
			m.mu.Unlock()
			if err := stale.Close(); err != nil {
				m.logger.Debug("Closing stale browser failed", "error", err)
			}
			continue

		case StateStarting:
			wait := m.launched
			m.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		default:
			// Uninitialized, or Closing: a teardown in progress no longer owns the state.
			return m.start()
		}
	}
}

// start launches a process. Called with m.mu held; returns with it released.
func (m *Manager) start() (Handle, error) {
	m.state = StateStarting
	launched := make(chan struct{})
	m.launched = launched
	m.mu.Unlock()

	startedAt := time.Now()
	h, err := m.launch()

	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(launched)

	if err != nil {
		m.state = StateUninitialized
		m.logger.Error("Failed to launch browser", "error", err)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	if m.closed {
		_ = h.Close()
		m.state = StateUninitialized
		return nil, ErrClosed
	}

	m.handle = h
	m.state = StateReady
	m.lastUsed = m.now()
	m.logger.Info("Browser launched", "elapsed", time.Since(startedAt))
	return h, nil
}

// NewPage acquires the shared process and opens a page tied to ctx. The
// returned release closes the page and must be called on every exit path.
func (m *Manager) NewPage(ctx context.Context) (context.Context, func(), error) {
	h, err := m.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	m.pages++
	m.mu.Unlock()

	page, cancelPage := h.NewPage()
	stopAfter := context.AfterFunc(ctx, cancelPage)

	var once sync.Once
	release := func() {
		once.Do(func() {
			stopAfter()
			cancelPage()
			m.mu.Lock()
			m.pages--
			m.lastUsed = m.now()
			m.mu.Unlock()
		})
	}
	return page, release, nil
}

func (m *Manager) idleLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stop:
			return
		}
	}
}

// evictIdle tears the process down when it has been idle for longer than
// the timeout and no page is open.
func (m *Manager) evictIdle() bool {
	m.mu.Lock()
	if m.state != StateReady || m.pages > 0 {
		m.mu.Unlock()
		return false
	}
	idle := m.now().Sub(m.lastUsed)
	if idle < m.idleTimeout || !m.handle.Connected() {
		m.mu.Unlock()
		return false
	}

	h := m.handle
	m.handle = nil
	m.state = StateClosing
	m.mu.Unlock()

	m.logger.Info("Closing idle browser", "idle", idle)
	if err := h.Close(); err != nil {
		m.logger.Warn("Failed to close idle browser", "error", err)
	}

	m.mu.Lock()
	if m.state == StateClosing {
		m.state = StateUninitialized
	}
	m.mu.Unlock()
	return true
}

// Close stops the idle loop and terminates the process. It is safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	h := m.handle
	m.handle = nil
	if m.state == StateReady {
		m.state = StateClosing
	}
	m.mu.Unlock()

	close(m.stop)
	<-m.done

	var err error
	if h != nil {
		err = h.Close()
	}

	m.mu.Lock()
	if m.state == StateClosing {
		m.state = StateUninitialized
	}
	m.mu.Unlock()
	return err
}
