package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"microgrid-console/internal/api"
	"microgrid-console/internal/domain"
)

type Options struct {
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	HistoryHours   int
}

// Snapshot is the synchronizer's whole view state. Ready is false until
// the first successful cycle; Err carries the last cycle failure and is
// cleared by the next success.
type Snapshot struct {
	Status   *domain.SystemStatus
	Alerts   []domain.Alert
	Readings []domain.SensorReading
	Stats    *domain.Statistics
	Insights domain.Insights
	LastSync time.Time
	Err      string
	Ready    bool
}

// Synchronizer keeps one authoritative copy of backend state: a fixed
// 30s pull loop plus a websocket subscriber whose messages only trigger
// refetches. Pull cycles are all-or-nothing; overlapping cycles are
// allowed and the last apply wins.
type Synchronizer struct {
	client *api.Client
	opts   Options

	mu      sync.RWMutex
	snap    Snapshot
	stopped bool

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	kick chan struct{}

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}

	connMu sync.Mutex
	conn   *websocket.Conn
}

func New(client *api.Client, opts Options) *Synchronizer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.HistoryHours <= 0 {
		opts.HistoryHours = 24
	}
	return &Synchronizer{
		client: client,
		opts:   opts,
		kick:   make(chan struct{}, 1),
		subs:   make(map[chan struct{}]struct{}),
	}
}

// Start launches the pull loop and the push subscriber. Calling Start on
// a running synchronizer is a no-op.
func (s *Synchronizer) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	s.running = true

	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.pullLoop(runCtx)
	go s.listen(runCtx)
}

// Stop cancels both loops, closes the socket and waits for them. After
// Stop returns, no further snapshot mutation can occur; cycles still in
// flight discard their results.
func (s *Synchronizer) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if !s.running {
		return
	}
	s.running = false

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.closeConn()
	s.wg.Wait()
}

// Snapshot returns a copy of the current view state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Alerts = append([]domain.Alert(nil), s.snap.Alerts...)
	out.Readings = append([]domain.SensorReading(nil), s.snap.Readings...)
	if s.snap.Status != nil {
		st := *s.snap.Status
		out.Status = &st
	}
	if s.snap.Stats != nil {
		st := *s.snap.Stats
		out.Stats = &st
	}
	return out
}

// Subscribe registers a notification channel signalled after every apply
// or recorded error. Notifications never block.
func (s *Synchronizer) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

func (s *Synchronizer) Unsubscribe(ch chan struct{}) {
	s.subMu.Lock()
	delete(s.subs, ch)
	s.subMu.Unlock()
}

// Refresh queues one immediate out-of-cycle pull.
func (s *Synchronizer) Refresh() {
	s.kickPull()
}

// ResolveAlert asks the backend to resolve the alert, then refetches so
// the authoritative resolved state comes from the backend rather than a
// local mutation.
func (s *Synchronizer) ResolveAlert(ctx context.Context, id int64) error {
	if err := s.client.ResolveAlert(ctx, id); err != nil {
		return err
	}
	s.kickPull()
	return nil
}

func (s *Synchronizer) pullLoop(ctx context.Context) {
	defer s.wg.Done()

	s.runCycle(ctx)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.spawnCycle(ctx)
		case <-s.kick:
			s.spawnCycle(ctx)
		}
	}
}

// spawnCycle runs the cycle off the loop goroutine so a slow backend
// never delays the next tick. Overlap is safe: applies are serialized
// and each one replaces the whole snapshot.
func (s *Synchronizer) spawnCycle(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCycle(ctx)
	}()
}

var cycleSources = [...]string{
	"status", "alerts", "readings", "statistics",
	"solar", "load", "grid_switch", "faults", "load_management",
}

func (s *Synchronizer) runCycle(ctx context.Context) {
	var (
		res  Snapshot
		wg   sync.WaitGroup
		errs [len(cycleSources)]error
	)

	fetch := func(i int, f func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f()
		}()
	}

	fetch(0, func() error {
		out, err := s.client.SystemStatus(ctx)
		res.Status = out
		return err
	})
	fetch(1, func() error {
		out, err := s.client.Alerts(ctx, false)
		res.Alerts = out
		return err
	})
	fetch(2, func() error {
		out, err := s.client.SensorHistory(ctx, s.opts.HistoryHours)
		res.Readings = out
		return err
	})
	fetch(3, func() error {
		out, err := s.client.Statistics(ctx, s.opts.HistoryHours)
		res.Stats = out
		return err
	})
	fetch(4, func() error {
		out, err := s.client.SolarPredictions(ctx)
		if err == nil {
			res.Insights.Solar = *out
		}
		return err
	})
	fetch(5, func() error {
		out, err := s.client.LoadPredictions(ctx)
		if err == nil {
			res.Insights.Load = *out
		}
		return err
	})
	fetch(6, func() error {
		out, err := s.client.GridSwitching(ctx)
		if err == nil {
			res.Insights.GridSwitch = *out
		}
		return err
	})
	fetch(7, func() error {
		out, err := s.client.FaultDetection(ctx)
		if err == nil {
			res.Insights.Faults = *out
		}
		return err
	})
	fetch(8, func() error {
		out, err := s.client.LoadManagement(ctx)
		if err == nil {
			res.Insights.LoadManagement = *out
		}
		return err
	})

	wg.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", cycleSources[i], err))
		}
	}
	if len(failed) > 0 {
		// All-or-nothing: one failure discards every result of the cycle.
		msg := strings.Join(failed, "; ")
		if ctx.Err() == nil {
			log.Warn().Str("failed", msg).Msg("pull cycle discarded")
		}
		s.recordError(msg)
		return
	}
	s.apply(res)
}

func (s *Synchronizer) apply(res Snapshot) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	res.LastSync = time.Now().UTC()
	res.Ready = true
	res.Err = ""
	s.snap = res
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) recordError(msg string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.snap.Err = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) notify() {
	s.subMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.subMu.Unlock()
}

func (s *Synchronizer) kickPull() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Synchronizer) listen(ctx context.Context) {
	defer s.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.readMessages(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("push channel lost")
		}
		// Fixed delay, forever. Reconnects never block the pull loop.
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ReconnectDelay):
		}
	}
}

func (s *Synchronizer) readMessages(ctx context.Context) error {
	endpoint, err := s.client.WSEndpoint()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	if tok := s.client.Token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	s.setConn(conn)
	defer s.closeConn()

	log.Info().Str("endpoint", endpoint).Msg("push channel connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg domain.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // garbled frame, wait for the next one
		}
		if msg.RefetchTrigger() {
			s.kickPull()
		}
	}
}

func (s *Synchronizer) setConn(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
}

func (s *Synchronizer) closeConn() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	s.conn.Close()
	s.conn = nil
}
