// Package zkpath is a path-aware asynchronous facade over a
// coordination-service client. It converts the callback-driven single-node
// API into composable deferred results, resolves relative paths against a
// configured base path, and layers self-re-arming watches and recursive
// multi-step operations on top of the one-shot primitives.
package zkpath

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/zkpath/config"
	"github.com/brettbedarf/zkpath/internal/util"
	"github.com/brettbedarf/zkpath/session"
	"github.com/brettbedarf/zkpath/zkconn"
)

// Re-exported collaborator types so most callers only import zkpath.
type CreateMode = session.CreateMode

const (
	ModePersistent          = session.ModePersistent
	ModeEphemeral           = session.ModeEphemeral
	ModeSequential          = session.ModeSequential
	ModeEphemeralSequential = session.ModeEphemeralSequential
)

// AnyVersion disables the version check on Set and Delete.
const AnyVersion = session.AnyVersion

// Reconnect policy after a session expiry. The source of truth for liveness
// is the collaborator's session feed; attempts are capped per expiry
// incident and backoff grows exponentially up to the cap.
const (
	reconnectBaseBackoff = 250 * time.Millisecond
	reconnectMaxBackoff  = 8 * time.Second
	reconnectMaxAttempts = 12
)

// Client is the public entry point. It owns a single session handle,
// replacing it wholesale on reconnect; operations read the current handle
// at call time, so a call racing a reconnect may fail with connection-loss,
// which is surfaced rather than hidden.
type Client struct {
	cfg      *config.Config
	basePath string
	log      util.Logger
	exec     session.Executor
	ownPool  *Pool
	dialer   session.Dialer

	mu   sync.RWMutex
	sess session.Conn

	alive            atomic.Bool
	closed           atomic.Bool
	reconnecting     atomic.Bool
	reconnectPending atomic.Bool

	stateMu  sync.Mutex
	stateCbs []session.StateFunc

	watches *xsync.Map[string, stopper]
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithDialer substitutes the session dialer; used by tests to run against
// the in-memory server instead of a live ensemble.
func WithDialer(d session.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithExecutor supplies the task-execution context operations run on. When
// omitted the client owns a Pool sized by Config.Workers and closes it on
// Close.
func WithExecutor(e session.Executor) Option {
	return func(c *Client) { c.exec = e }
}

// New builds a client and connects synchronously: it blocks until a session
// is established (bounded by Config.ConnectTimeout) and the base path
// exists. A connect failure is fatal and aborts construction.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.NewConfig(nil)
	}
	c := &Client{
		cfg:      cfg,
		basePath: Resolve("/", cfg.BasePath),
		log:      util.GetLogger("zkpath"),
		watches:  xsync.NewMap[string, stopper](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		pool := NewPool(cfg.Workers)
		c.exec = pool
		c.ownPool = pool
	}
	if c.dialer == nil {
		c.dialer = zkconn.NewDialer(c.exec, util.NewLogLogger("zk", cfg.LogLvl))
	}

	if err := c.connect(); err != nil {
		c.teardown()
		return nil, fmt.Errorf("zkpath: connect: %w", err)
	}
	return c, nil
}

// connect tears down any prior handle, opens a fresh session, waits for it
// to come alive, and bootstraps the base path. This is the only method that
// writes the session handle.
func (c *Client) connect() error {
	c.mu.Lock()
	old := c.sess
	c.sess = nil
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	connected := make(chan struct{})
	var once sync.Once
	sess, err := c.dialer.Dial(c.cfg.Endpoints, c.cfg.SessionTimeout, func(s session.State) {
		c.onSessionState(s, func() { once.Do(func() { close(connected) }) })
	})
	if err != nil {
		return err
	}

	select {
	case <-connected:
	case <-time.After(c.cfg.ConnectTimeout):
		_ = sess.Close()
		return fmt.Errorf("no session within %v", c.cfg.ConnectTimeout)
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	if c.basePath != "/" {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
		defer cancel()
		if _, err := c.CreatePath("").Await(ctx); err != nil {
			return fmt.Errorf("bootstrap base path %q: %w", c.basePath, err)
		}
	}
	c.log.Info().Strs("endpoints", c.cfg.Endpoints).Str("base", c.basePath).Msg("session established")
	return nil
}

func (c *Client) onSessionState(s session.State, onConnected func()) {
	switch s {
	case session.StateHasSession:
		c.alive.Store(true)
		onConnected()
	case session.StateExpired:
		c.alive.Store(false)
		if !c.closed.Load() {
			c.log.Warn().Msg("session expired, reconnecting")
			go c.reconnect()
		}
	case session.StateDisconnected:
		c.alive.Store(false)
	}
	c.notifyState(s)
}

// reconnect re-establishes the session after an expiry. One goroutine owns
// the incident at a time; a trigger that lands while an owner is still
// running is recorded in reconnectPending and consumed by the owner before
// it retires, so an expiry arriving mid-reconnect is never dropped.
func (c *Client) reconnect() {
	c.reconnectPending.Store(true)
	for c.reconnectPending.Load() {
		if !c.reconnecting.CompareAndSwap(false, true) {
			// The current owner rechecks pending after clearing the flag.
			return
		}
		c.reconnectPending.Store(false)
		c.runReconnectAttempts()
		c.reconnecting.Store(false)
	}
}

// runReconnectAttempts drives one reconnect incident; exhausting the attempt
// budget surfaces StateClosed to connection observers.
func (c *Client) runReconnectAttempts() {
	backoff := reconnectBaseBackoff
	for attempt := 1; attempt <= reconnectMaxAttempts; attempt++ {
		if c.closed.Load() {
			return
		}
		err := c.connect()
		if err == nil {
			c.log.Info().Int("attempt", attempt).Msg("session re-established")
			return
		}
		c.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("reconnect attempt failed")
		time.Sleep(backoff)
		backoff = min(backoff*2, reconnectMaxBackoff)
	}
	c.log.Error().Int("attempts", reconnectMaxAttempts).Msg("reconnect attempts exhausted")
	c.notifyState(session.StateClosed)
}

// conn returns the current session handle, or a connection-loss failure if
// the client has none (closed, or mid-reconnect teardown).
func (c *Client) conn() (session.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return nil, &OpError{Kind: KindConnectionLoss, Code: session.CodeConnectionLoss}
	}
	return c.sess, nil
}

// WatchConnection registers an observer for connection-state changes.
// Observers are invoked on the executor, never on the session feed.
func (c *Client) WatchConnection(fn session.StateFunc) {
	c.stateMu.Lock()
	c.stateCbs = append(c.stateCbs, fn)
	c.stateMu.Unlock()
}

func (c *Client) notifyState(s session.State) {
	c.stateMu.Lock()
	cbs := slices.Clone(c.stateCbs)
	c.stateMu.Unlock()
	for _, fn := range cbs {
		c.exec.Submit(func() { fn(s) })
	}
}

// IsAlive reports whether the client currently holds a live session.
func (c *Client) IsAlive() bool {
	return c.alive.Load() && !c.closed.Load()
}

// Close terminates outstanding watch registrations, closes the session, and
// stops the owned executor pool if any. Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.alive.Store(false)
	active := 0
	c.watches.Range(func(_ string, w stopper) bool {
		w.stop()
		active++
		return true
	})
	if active > 0 {
		c.log.Debug().Int("watches", active).Msg("terminated outstanding watch registrations")
	}
	return c.teardown()
}

func (c *Client) teardown() error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	var err error
	if sess != nil {
		err = sess.Close()
	}
	if c.ownPool != nil {
		c.ownPool.Close()
	}
	return err
}
