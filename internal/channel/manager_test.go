package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// ---- Test doubles ----

// fakeConn yields queued frames, then blocks until closed.
type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn(frames ...string) *fakeConn {
	c := &fakeConn{frames: make(chan []byte, len(frames)+8), closed: make(chan struct{})}
	for _, f := range frames {
		c.frames <- []byte(f)
	}
	return c
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return websocket.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// scriptedDialer hands out results in order; once exhausted it repeats the last.
type scriptedDialer struct {
	mu    sync.Mutex
	calls int
	steps []func() (Conn, error)
}

func (d *scriptedDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	i := d.calls
	d.calls++
	step := d.steps[len(d.steps)-1]
	if i < len(d.steps) {
		step = d.steps[i]
	}
	d.mu.Unlock()
	return step()
}

func (d *scriptedDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func refused() (Conn, error) {
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

// recorder captures notifications in order.
type recorder struct {
	mu sync.Mutex
	ns []Notification
}

func (r *recorder) observe(n Notification) {
	r.mu.Lock()
	r.ns = append(r.ns, n)
	r.mu.Unlock()
}

func (r *recorder) kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.ns))
	for i, n := range r.ns {
		out[i] = n.Kind
	}
	return out
}

func (r *recorder) waitFor(t *testing.T, k Kind, count int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n := 0
		for _, got := range r.kinds() {
			if got == k {
				n++
			}
		}
		if n >= count {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q notifications; got %v", count, k, r.kinds())
}

func testManager(d Dialer) *Manager {
	return NewManager(Config{URL: "ws://backend.test/ws", ReconnectDelay: time.Millisecond, MaxAttempts: 5}, d, nil, nil)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session %s did not finish", s.ID)
	}
}

// ---- Tests ----

func TestOpen_IsIdempotentWhileActive(t *testing.T) {
	t.Parallel()

	d := &scriptedDialer{steps: []func() (Conn, error){func() (Conn, error) { return newFakeConn(), nil }}}
	m := testManager(d)
	rec := &recorder{}
	m.OnState(rec.observe)

	s1, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec.waitFor(t, KindConnected, 1)

	s2, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("Open while connected must return the existing session")
	}
	if d.Calls() != 1 {
		t.Fatalf("expected a single dial, got %d", d.Calls())
	}
	if m.State() != StateConnected {
		t.Fatalf("state: want CONNECTED, got %v", m.State())
	}

	m.Close()
	if m.State() != StateDisconnected {
		t.Fatalf("state after Close: want DISCONNECTED, got %v", m.State())
	}
}

func TestOpen_RequiresURL(t *testing.T) {
	t.Parallel()

	m := NewManager(Config{}, &scriptedDialer{}, nil, nil)
	if _, err := m.Open(context.Background()); !errors.Is(err, errNoURL) {
		t.Fatalf("want errNoURL, got %v", err)
	}
}

func TestReconnect_StopsAfterMaxAttemptsAndResetsOnReopen(t *testing.T) {
	t.Parallel()

	d := &scriptedDialer{steps: []func() (Conn, error){refused}}
	m := testManager(d)
	rec := &recorder{}
	m.OnState(rec.observe)

	s1, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitDone(t, s1)

	if got := d.Calls(); got != 5 {
		t.Fatalf("dial attempts: want 5, got %d", got)
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state: want DISCONNECTED, got %v", m.State())
	}
	// same failure class: only the first is surfaced, exhaustion is always surfaced
	if got := rec.kinds(); len(got) != 2 || got[0] != KindError || got[1] != KindExhausted {
		t.Fatalf("notifications: want [error exhausted], got %v", got)
	}

	// Stays down without an explicit Open.
	time.Sleep(20 * time.Millisecond)
	if got := d.Calls(); got != 5 {
		t.Fatalf("no dials expected after exhaustion, got %d", got)
	}

	m.Close()
	s2, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if s2 == s1 || s2.ID == s1.ID {
		t.Fatalf("reopen must start a fresh session")
	}
	waitDone(t, s2)
	if got := d.Calls(); got != 10 {
		t.Fatalf("counter must restart from zero: want 10 total dials, got %d", got)
	}
}

func TestReconnect_AfterTransportLoss(t *testing.T) {
	t.Parallel()

	first := newFakeConn()
	d := &scriptedDialer{steps: []func() (Conn, error){
		func() (Conn, error) { return first, nil },
		refused,
		refused,
		func() (Conn, error) { return newFakeConn(), nil },
	}}
	m := testManager(d)
	rec := &recorder{}
	m.OnState(rec.observe)

	if _, err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec.waitFor(t, KindConnected, 1)

	_ = first.Close() // simulate transport loss
	rec.waitFor(t, KindConnected, 2)
	defer m.Close()

	want := []Kind{KindConnected, KindDisconnected, KindError, KindConnected}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("notifications: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notifications: want %v, got %v", want, got)
		}
	}
	if d.Calls() != 4 {
		t.Fatalf("dials: want 4, got %d", d.Calls())
	}
}

func TestSubscribe_OrderAndUnsubscribe(t *testing.T) {
	t.Parallel()

	conn := newFakeConn(`{"type":"battery-data","data":{"id":"1"}}`)
	d := &scriptedDialer{steps: []func() (Conn, error){func() (Conn, error) { return conn, nil }}}
	m := testManager(d)

	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(name string) Handler {
		return func(data json.RawMessage) {
			mu.Lock()
			calls = append(calls, name+":"+string(data))
			mu.Unlock()
		}
	}
	m.Subscribe(EventBatteryData, record("a"))
	b := m.Subscribe(EventBatteryData, record("b"))
	m.Subscribe(EventBatteryData, record("c"))
	m.Subscribe("other", record("x"))

	if _, err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), calls...)
	}
	waitLen := func(n int) []string {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if got := snapshot(); len(got) >= n {
				return got
			}
			time.Sleep(2 * time.Millisecond)
		}
		t.Fatalf("timed out waiting for %d calls; got %v", n, snapshot())
		return nil
	}

	got := waitLen(3)
	want := []string{`a:{"id":"1"}`, `b:{"id":"1"}`, `c:{"id":"1"}`}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("handler order: want %v, got %v", want, got)
	}

	b.Unsubscribe()
	b.Unsubscribe()
	conn.frames <- []byte(`not json`)
	conn.frames <- []byte(`{"type":"battery-data","data":{"id":"2"}}`)

	got = waitLen(5)
	if got[3] != `a:{"id":"2"}` || got[4] != `c:{"id":"2"}` {
		t.Fatalf("after unsubscribe: got %v", got)
	}
}

func TestClose_StopsHandlerInvocations(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	d := &scriptedDialer{steps: []func() (Conn, error){func() (Conn, error) { return conn, nil }}}
	m := testManager(d)
	rec := &recorder{}
	m.OnState(rec.observe)

	var n atomic.Int32
	m.Subscribe(EventBatteryData, func(json.RawMessage) { n.Add(1) })

	if _, err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec.waitFor(t, KindConnected, 1)
	m.Close()

	before := len(rec.kinds())
	select {
	case conn.frames <- []byte(`{"type":"battery-data","data":{}}`):
	default:
	}
	time.Sleep(20 * time.Millisecond)

	if n.Load() != 0 {
		t.Fatalf("handler ran after Close")
	}
	if len(rec.kinds()) != before {
		t.Fatalf("observer ran after Close: %v", rec.kinds())
	}
}

func TestWebsocket_EndToEnd(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	var served atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		served.Add(1)
		_ = conn.WriteJSON(map[string]any{
			"type": EventBatteryData,
			"data": map[string]any{"id": "ws-1", "voltage": 12.2, "percentage": 90, "timestamp": 1, "dateTime": "t"},
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	m := NewManager(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", ReconnectDelay: 10 * time.Millisecond}, nil, nil, nil)
	got := make(chan json.RawMessage, 1)
	m.Subscribe(EventBatteryData, func(data json.RawMessage) { got <- data })

	if _, err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	select {
	case data := <-got:
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || payload.ID != "ws-1" {
			t.Fatalf("unexpected payload %s (%v)", data, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no battery-data received")
	}
	if served.Load() != 1 {
		t.Fatalf("expected one server connection, got %d", served.Load())
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	timeoutErr := &net.OpError{Op: "dial", Err: &timeoutError{}}
	cases := []struct {
		name string
		err  error
		want FailureClass
	}{
		{"nil", nil, classNone},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, ClassRefused},
		{"timeout", timeoutErr, ClassTimeout},
		{"bad handshake", errors.Join(errors.New("dial x: http 404"), websocket.ErrBadHandshake), ClassHandshake},
		{"closed", net.ErrClosed, ClassClosed},
		{"eof", io.EOF, ClassClosed},
		{"other", errors.New("weird"), ClassOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("%s: want %q, got %q", tc.name, tc.want, got)
		}
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestDecide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		attempt int
		last    FailureClass
		cur     FailureClass
		want    Decision
	}{
		{"first failure", 1, classNone, ClassRefused, Surface},
		{"repeat same class", 2, ClassRefused, ClassRefused, Suppress},
		{"fifth same class", 5, ClassRefused, ClassRefused, Suppress},
		{"class changes", 3, ClassRefused, ClassTimeout, Surface},
		{"nothing surfaced yet", 2, classNone, ClassTimeout, Surface},
	}
	for _, tc := range cases {
		if got := decide(tc.attempt, tc.last, tc.cur); got != tc.want {
			t.Errorf("%s: want %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	for s, want := range map[State]string{
		StateDisconnected: "DISCONNECTED",
		StateConnecting:   "CONNECTING",
		StateConnected:    "CONNECTED",
		StateReconnecting: "RECONNECTING",
	} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
