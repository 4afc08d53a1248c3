package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"battery_monitor/internal/channel"
	"battery_monitor/internal/logger"
	"battery_monitor/internal/models"

	"golang.org/x/sync/errgroup"
)

// RemoteData is the REST side of the backend the controller loads from.
type RemoteData interface {
	FetchLatest(ctx context.Context) (*models.Sample, error)
	FetchHistoricalWindow(ctx context.Context, w models.Window) ([]models.Sample, error)
}

// PushChannel is the live side of the backend.
type PushChannel interface {
	Open(ctx context.Context) (*channel.Session, error)
	Subscribe(event string, fn channel.Handler) *channel.Subscription
	OnState(o channel.Observer)
	Close()
}

// SampleJournal persists applied live samples.
type SampleJournal interface {
	Append(ctx context.Context, s models.Sample) error
}

// SyncMetrics is the subset of collectors the controller reports to.
type SyncMetrics interface {
	SampleApplied(historyLen int)
	SampleRejected()
	HistoryReplaced(historyLen int)
	DemoFallback()
	ModeChanged(from, to string)
}

var errAlreadyStarted = errors.New("sync controller already started")

const (
	opQueueSize    = 64
	journalTimeout = 2 * time.Second
)

// SyncOptions configures a SyncController. Zero values pick defaults.
type SyncOptions struct {
	HistorySize int
	Journal     SampleJournal
	Metrics     SyncMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

// SyncController merges the initial REST load and the live push stream into
// one SyncState. Every mutation runs on its loop goroutine; readers get
// immutable snapshots.
type SyncController struct {
	remote  RemoteData
	ch      PushChannel
	journal SampleJournal
	metrics SyncMetrics
	log     *logger.Logger
	now     func() time.Time

	ops      chan func()
	done     chan struct{}
	loopDone chan struct{}
	alive    atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	sub      *channel.Subscription

	snap atomic.Pointer[models.SyncState]

	// loop-owned
	current   *models.Sample
	history   *HistoryBuffer
	mode      models.Mode
	loading   bool
	channelUp bool
	liveSeen  bool
}

func NewSyncController(remote RemoteData, ch PushChannel, opts SyncOptions) *SyncController {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &SyncController{
		remote:   remote,
		ch:       ch,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		log:      logger.OrNop(opts.Logger).Named("sync"),
		now:      opts.Now,
		ops:      make(chan func(), opQueueSize),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		history:  NewHistoryBuffer(opts.HistorySize),
		mode:     models.ModeOffline,
	}
	c.publish()
	return c
}

// Start begins the initial load and opens the push channel. It returns
// without waiting for either; progress is visible through Snapshot.
// A controller can be started once.
func (c *SyncController) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}
	c.alive.Store(true)
	go c.loop()

	c.submit(func() {
		c.loading = true
	})

	c.sub = c.ch.Subscribe(channel.EventBatteryData, c.onBatteryData)
	c.ch.OnState(c.onChannelState)

	go c.loadInitial(ctx)

	if _, err := c.ch.Open(ctx); err != nil {
		c.log.Warnw("sync_channel_open_failed", "err", err)
	}
	return nil
}

// Stop tears the controller down. Results that arrive afterwards are dropped.
func (c *SyncController) Stop() {
	c.stopOnce.Do(func() {
		c.alive.Store(false)
		close(c.done)
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
		if c.started.Load() {
			c.ch.Close()
			<-c.loopDone
		}
		c.log.Infow("sync_stopped")
	})
}

// Snapshot returns the latest published state.
func (c *SyncController) Snapshot() models.SyncState {
	return *c.snap.Load()
}

// History returns the buffered samples, oldest first.
func (c *SyncController) History() []models.Sample {
	return c.Snapshot().History
}

func (c *SyncController) loop() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.done:
			return
		case op := <-c.ops:
			if !c.alive.Load() {
				return
			}
			op()
			c.publish()
		}
	}
}

// submit queues op for the loop. It reports false once the controller is
// stopped; op is then never run.
func (c *SyncController) submit(op func()) bool {
	if !c.alive.Load() {
		return false
	}
	select {
	case c.ops <- op:
		return true
	case <-c.done:
		return false
	}
}

// loadInitial fetches the latest sample and the default window concurrently.
func (c *SyncController) loadInitial(ctx context.Context) {
	var (
		latest  *models.Sample
		history []models.Sample
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.remote.FetchLatest(gctx)
		latest = s
		return err
	})
	g.Go(func() error {
		h, err := c.remote.FetchHistoricalWindow(gctx, models.Window{})
		history = h
		return err
	})
	err := g.Wait()

	if err != nil {
		c.log.Warnw("sync_initial_load_failed", "err", err)
		c.submit(func() { c.applyDemo() })
		return
	}
	c.submit(func() { c.applyInitial(latest, history) })
}

func (c *SyncController) applyInitial(latest *models.Sample, history []models.Sample) {
	if latest != nil && !c.liveSeen {
		s := *latest
		c.current = &s
	}
	c.history.Replace(append(history, c.liveSamples()...))
	if c.metrics != nil {
		c.metrics.HistoryReplaced(c.history.Len())
	}
	if c.channelUp {
		c.setMode(models.ModeLive)
	}
	c.loading = false
	c.log.Infow("sync_initial_loaded", "history", c.history.Len(), "has_current", c.current != nil)
}

func (c *SyncController) applyDemo() {
	now := c.now()
	if !c.liveSeen {
		s := DemoLatest(now)
		c.current = &s
	}
	c.history.Replace(append(DemoHistory(now), c.liveSamples()...))
	if c.metrics != nil {
		c.metrics.DemoFallback()
		c.metrics.HistoryReplaced(c.history.Len())
	}
	if c.channelUp {
		c.setMode(models.ModeLive)
	} else {
		c.setMode(models.ModeDemo)
	}
	c.loading = false
	c.log.Infow("sync_demo_mode", "history", c.history.Len())
}

// liveSamples returns samples pushed before the initial load resolved.
func (c *SyncController) liveSamples() []models.Sample {
	if !c.liveSeen {
		return nil
	}
	var out []models.Sample
	for _, s := range c.history.Samples() {
		if !IsDemo(s) {
			out = append(out, s)
		}
	}
	return out
}

// onBatteryData runs on the channel goroutine.
func (c *SyncController) onBatteryData(data json.RawMessage) {
	var s models.Sample
	if err := json.Unmarshal(data, &s); err != nil {
		c.reject("decode", err)
		return
	}
	if err := s.Validate(); err != nil {
		c.reject("validate", err)
		return
	}
	if !c.submit(func() { c.applyLive(s) }) {
		return
	}
	if c.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		if err := c.journal.Append(ctx, s); err != nil {
			c.log.Warnw("sync_journal_append_failed", "id", s.ID, "err", err)
		}
		cancel()
	}
}

func (c *SyncController) reject(stage string, err error) {
	if c.metrics != nil {
		c.metrics.SampleRejected()
	}
	c.log.Debugw("sync_sample_rejected", "stage", stage, "err", err)
}

func (c *SyncController) applyLive(s models.Sample) {
	c.current = &s
	c.history.Push(s)
	c.liveSeen = true
	if c.metrics != nil {
		c.metrics.SampleApplied(c.history.Len())
	}
}

// onChannelState runs on the channel goroutine.
func (c *SyncController) onChannelState(n channel.Notification) {
	switch n.Kind {
	case channel.KindConnected:
		c.submit(func() {
			c.channelUp = true
			c.setMode(models.ModeLive)
		})
	case channel.KindDisconnected, channel.KindExhausted:
		c.submit(func() {
			c.channelUp = false
			if c.mode != models.ModeLive {
				return
			}
			if c.demoDisplayed() {
				c.setMode(models.ModeDemo)
			} else {
				c.setMode(models.ModeOffline)
			}
		})
	default:
		c.log.Debugw("sync_channel_notice", "kind", n.Kind, "attempt", n.Attempt, "err", n.Err)
	}
}

func (c *SyncController) demoDisplayed() bool {
	if c.current != nil && IsDemo(*c.current) {
		return true
	}
	for _, s := range c.history.items {
		if IsDemo(s) {
			return true
		}
	}
	return false
}

func (c *SyncController) setMode(to models.Mode) {
	if c.mode == to {
		return
	}
	from := c.mode
	c.mode = to
	if c.metrics != nil {
		c.metrics.ModeChanged(string(from), string(to))
	}
	c.log.Infow("sync_mode_changed", "from", from, "to", to)
}

// publish stores an immutable copy of the loop-owned state.
func (c *SyncController) publish() {
	st := &models.SyncState{
		History:  c.history.Samples(),
		Mode:     c.mode,
		Loading:  c.loading,
		DemoData: c.demoDisplayed(),
	}
	if c.current != nil {
		cur := *c.current
		st.Current = &cur
	}
	c.snap.Store(st)
}
