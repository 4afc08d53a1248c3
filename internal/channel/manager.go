package channel

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"battery_monitor/internal/logger"

	"github.com/google/uuid"
)

// Defaults match the mobile dashboard's socket settings.
const (
	DefaultReconnectDelay = 1 * time.Second
	DefaultMaxAttempts    = 5
)

// Config configures a Manager.
type Config struct {
	URL            string
	ReconnectDelay time.Duration // fixed delay before every retry
	MaxAttempts    int           // dials allowed per reconnection episode
}

// Metrics is the subset of collectors the channel reports to.
type Metrics interface {
	DialFailed(class string)
	ChannelStateChanged(from, to string)
}

// Session identifies one Open() lifetime of the channel.
type Session struct {
	ID       string
	URL      string
	OpenedAt time.Time

	done chan struct{}
}

// Done is closed when the session ends: on Close, when the Open context is
// canceled, or when reconnect attempts are exhausted.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Subscription is a registered event handler.
type Subscription struct {
	m      *Manager
	event  string
	fn     Handler
	active atomic.Bool
}

// Unsubscribe removes this handler only. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	subs := s.m.handlers[s.event]
	for i, other := range subs {
		if other == s {
			s.m.handlers[s.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

// Manager owns one persistent push connection with bounded reconnection.
// All state transitions of a session happen on that session's goroutine.
type Manager struct {
	cfg     Config
	dialer  Dialer
	log     *logger.Logger
	metrics Metrics

	state atomic.Int32

	mu        sync.Mutex
	session   *Session
	cancel    context.CancelFunc
	handlers  map[string][]*Subscription
	observers []Observer
}

// NewManager builds a manager. A nil dialer uses gorilla/websocket.
func NewManager(cfg Config, dialer Dialer, log *logger.Logger, metrics Metrics) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if dialer == nil {
		dialer = NewWebsocketDialer()
	}
	return &Manager{
		cfg:      cfg,
		dialer:   dialer,
		log:      logger.OrNop(log).Named("channel"),
		metrics:  metrics,
		handlers: make(map[string][]*Subscription),
	}
}

// State returns the current connection state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Subscribe registers fn for event. Handlers of one event run in
// registration order on the channel goroutine; they must not call Close.
func (m *Manager) Subscribe(event string, fn Handler) *Subscription {
	s := &Subscription{m: m, event: event, fn: fn}
	s.active.Store(true)
	m.mu.Lock()
	m.handlers[event] = append(m.handlers[event], s)
	m.mu.Unlock()
	return s
}

// OnState registers an observer for connection-state notifications.
func (m *Manager) OnState(o Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, o)
	m.mu.Unlock()
}

// Open starts a session, or returns the active one. A session ended by
// Close or by exhausted retries is replaced by a fresh one whose attempt
// counter starts at zero.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	if m.cfg.URL == "" {
		return nil, errNoURL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && !m.session.finished() {
		return m.session, nil
	}

	sctx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:       uuid.NewString(),
		URL:      m.cfg.URL,
		OpenedAt: time.Now().UTC(),
		done:     make(chan struct{}),
	}
	m.session, m.cancel = sess, cancel
	m.log.Infow("channel_open", "session", sess.ID, "url", sess.URL)

	go m.run(sctx, sess)
	return sess, nil
}

// Close ends the current session and waits for its goroutine. No handler or
// observer runs after Close returns.
func (m *Manager) Close() {
	m.mu.Lock()
	sess, cancel := m.session, m.cancel
	m.mu.Unlock()
	if sess == nil {
		return
	}
	cancel()
	<-sess.done
	m.setState(StateDisconnected)
}

// run drives one session: dial, read, and reconnect within the attempt budget.
func (m *Manager) run(ctx context.Context, sess *Session) {
	defer close(sess.done)
	defer m.setState(StateDisconnected)

	var (
		attempt      int
		lastSurfaced = classNone
		reconnecting bool
		first        = true
	)
	for {
		if !first && !sleepCtx(ctx, m.cfg.ReconnectDelay) {
			return
		}
		first = false

		if reconnecting {
			m.setState(StateReconnecting)
		} else {
			m.setState(StateConnecting)
		}

		conn, err := m.dialer.Dial(ctx, m.cfg.URL)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempt++
			cerr := &ChannelError{Op: "dial", Attempt: attempt, Class: Classify(err), Err: err}
			if m.metrics != nil {
				m.metrics.DialFailed(string(cerr.Class))
			}
			if decide(attempt, lastSurfaced, cerr.Class) == Surface {
				lastSurfaced = cerr.Class
				m.log.Warnw("channel_dial_failed", "session", sess.ID, "attempt", attempt, "max", m.cfg.MaxAttempts, "class", cerr.Class, "err", err)
				m.notify(ctx, Notification{Kind: KindError, Session: sess.ID, Attempt: attempt, Err: cerr})
			} else {
				m.log.Debugw("channel_dial_failed_suppressed", "session", sess.ID, "attempt", attempt, "class", cerr.Class)
			}
			if attempt >= m.cfg.MaxAttempts {
				m.setState(StateDisconnected)
				m.log.Warnw("channel_reconnect_exhausted", "session", sess.ID, "attempts", attempt)
				m.notify(ctx, Notification{Kind: KindExhausted, Session: sess.ID, Attempt: attempt, Err: cerr})
				return
			}
			continue
		}

		attempt, lastSurfaced = 0, classNone
		m.setState(StateConnected)
		m.log.Infow("channel_connected", "session", sess.ID)
		m.notify(ctx, Notification{Kind: KindConnected, Session: sess.ID})

		err = m.readLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		reconnecting = true
		m.setState(StateReconnecting)
		m.log.Warnw("channel_disconnected", "session", sess.ID, "err", err)
		m.notify(ctx, Notification{Kind: KindDisconnected, Session: sess.ID, Err: err})
	}
}

// readLoop dispatches frames until the connection fails or ctx ends.
func (m *Manager) readLoop(ctx context.Context, conn Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			m.log.Debugw("channel_bad_frame", "err", err, "size", len(data))
			continue
		}
		m.dispatch(ctx, env.Type, env.Data)
	}
}

func (m *Manager) dispatch(ctx context.Context, event string, data json.RawMessage) {
	m.mu.Lock()
	subs := append([]*Subscription(nil), m.handlers[event]...)
	m.mu.Unlock()

	if len(subs) == 0 {
		m.log.Debugw("channel_unhandled_event", "event", event)
		return
	}
	for _, s := range subs {
		if ctx.Err() != nil {
			return
		}
		if s.active.Load() {
			s.fn(data)
		}
	}
}

func (m *Manager) notify(ctx context.Context, n Notification) {
	m.mu.Lock()
	obs := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	for _, o := range obs {
		if ctx.Err() != nil {
			return
		}
		o(n)
	}
}

func (m *Manager) setState(to State) {
	from := State(m.state.Swap(int32(to)))
	if from != to && m.metrics != nil {
		m.metrics.ChannelStateChanged(from.String(), to.String())
	}
}

// sleepCtx waits d or until ctx ends; it reports whether the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
