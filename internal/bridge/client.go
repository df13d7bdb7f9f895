package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polyforge/scenebridge/internal/discovery"
	"github.com/polyforge/scenebridge/internal/protocol"
)

var (
	// ErrNotConnected is returned by Send when the link is not Connected.
	// No transmission is attempted.
	ErrNotConnected = errors.New("not connected to agent")

	// ErrConnectionClosed rejects every pending request when the socket
	// closes for any reason.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrRequestTimeout fails a request whose response never arrived
	// within the request budget.
	ErrRequestTimeout = errors.New("request timed out")
)

// Config holds controller configuration.
type Config struct {
	// ProjectDir is the engine project root holding the discovery record.
	ProjectDir string

	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration

	// RequestTimeout is the default per-request budget.
	RequestTimeout time.Duration

	// ReconnectAttempts bounds retries after a connection drops.
	ReconnectAttempts int

	// ReconnectDelay is the fixed delay between reconnect attempts.
	ReconnectDelay time.Duration

	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration

	// PollInterval and FastPollInterval drive discovery polling. The fast
	// interval is used right after a failed attempt to ride through
	// editor recompile windows.
	PollInterval     time.Duration
	FastPollInterval time.Duration

	// StaleAfter is the discovery record freshness threshold.
	StaleAfter time.Duration

	// AutoProvision installs the agent plugin into the project on Start.
	AutoProvision bool
}

// DefaultConfig returns controller defaults.
func DefaultConfig(projectDir string) Config {
	return Config{
		ProjectDir:        projectDir,
		HandshakeTimeout:  5 * time.Second,
		RequestTimeout:    10 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    2 * time.Second,
		WriteTimeout:      10 * time.Second,
		PollInterval:      5 * time.Second,
		FastPollInterval:  2 * time.Second,
		StaleAfter:        discovery.DefaultStaleAfter,
		AutoProvision:     true,
	}
}

type result struct {
	resp *protocol.Response
	err  error
}

// pendingRequest is one in-flight command. Whoever removes it from the
// pending map owns its completion, so a request resolves exactly once.
type pendingRequest struct {
	done chan result // buffered, never blocks the router
}

// Client is the host-side controller. It discovers the agent, maintains
// the connection state machine, correlates responses to requests, and
// republishes agent events to subscribers.
type Client struct {
	config Config
	poller *discovery.Poller

	mu        sync.Mutex
	state     ConnectionState
	conn      *wsConn
	pending   map[string]*pendingRequest
	retryKick chan struct{}
	stopping  bool

	stateSubs    []func(ConnectionState)
	consoleSubs  []func(protocol.ConsoleLog)
	playModeSubs []func(protocol.PlayModeChange)
	eventSubs    []func(*protocol.Event)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a controller. Start begins discovery.
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config:  config,
		state:   StateDisconnected,
		pending: make(map[string]*pendingRequest),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start provisions the agent plugin (fire and forget) and begins polling
// the discovery record.
func (c *Client) Start() error {
	if c.config.ProjectDir == "" {
		return errors.New("project directory is required")
	}

	if c.config.AutoProvision {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if _, err := EnsurePlugin(c.config.ProjectDir); err != nil {
				log.Printf("[Bridge] plugin provisioning failed: %v", err)
			}
		}()
	}

	pollCfg := discovery.PollerConfig{
		ProjectDir:   c.config.ProjectDir,
		Interval:     c.config.PollInterval,
		FastInterval: c.config.FastPollInterval,
		StaleAfter:   c.config.StaleAfter,
		OnRecord:     c.onRecord,
	}
	c.poller = discovery.NewPoller(pollCfg)
	c.poller.Start(c.ctx)
	return nil
}

// Stop disconnects and halts discovery. Pending requests are rejected.
func (c *Client) Stop() {
	c.mu.Lock()
	c.stopping = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if c.poller != nil {
		c.poller.Stop()
	}
	if conn != nil {
		conn.close()
	}
	c.wg.Wait()
	c.setState(StateDisconnected)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange subscribes to connection state transitions.
func (c *Client) OnStateChange(fn func(ConnectionState)) {
	c.mu.Lock()
	c.stateSubs = append(c.stateSubs, fn)
	c.mu.Unlock()
}

// OnConsoleLog subscribes to console.log events from the agent.
func (c *Client) OnConsoleLog(fn func(protocol.ConsoleLog)) {
	c.mu.Lock()
	c.consoleSubs = append(c.consoleSubs, fn)
	c.mu.Unlock()
}

// OnPlayModeChange subscribes to playModeChanged events from the agent.
func (c *Client) OnPlayModeChange(fn func(protocol.PlayModeChange)) {
	c.mu.Lock()
	c.playModeSubs = append(c.playModeSubs, fn)
	c.mu.Unlock()
}

// OnEvent subscribes to every event frame, including kinds the typed
// subscriptions do not cover.
func (c *Client) OnEvent(fn func(*protocol.Event)) {
	c.mu.Lock()
	c.eventSubs = append(c.eventSubs, fn)
	c.mu.Unlock()
}

// RetryNow cancels any wait in progress and forces an immediate retry:
// a sleeping reconnect loop wakes with a reset attempt budget, and a
// disconnected client polls discovery immediately.
func (c *Client) RetryNow() {
	c.mu.Lock()
	kick := c.retryKick
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateReconnecting:
		if kick != nil {
			select {
			case kick <- struct{}{}:
			default:
			}
		}
	case StateDisconnected:
		c.poller.PollSoon(0)
	}
}

// setState publishes a state transition to subscribers.
func (c *Client) setState(next ConnectionState) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	subs := append(([]func(ConnectionState))(nil), c.stateSubs...)
	c.mu.Unlock()

	log.Printf("[Bridge] connection state: %s", next)
	for _, fn := range subs {
		fn(next)
	}
}

// onRecord handles a fresh discovery record while disconnected.
func (c *Client) onRecord(rec *discovery.Record) {
	c.mu.Lock()
	if c.state != StateDisconnected || c.stopping {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.setState(StateConnecting)
	conn, err := c.dial(rec)
	if err != nil {
		log.Printf("[Bridge] connection to %s failed: %v", rec.URL(), err)
		c.setState(StateDisconnected)
		// Fast re-poll to ride through editor recompile windows.
		c.poller.PollSoon(c.config.FastPollInterval)
		return
	}
	c.install(conn)
}

// dial performs the websocket handshake within the handshake budget.
func (c *Client) dial(rec *discovery.Record) (*wsConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.Dial(rec.URL(), nil)
	if err != nil {
		return nil, err
	}
	return newWSConn(conn, c.config.WriteTimeout), nil
}

// install makes conn the active connection and starts its read loop.
func (c *Client) install(conn *wsConn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateConnected)
	c.poller.Suspend()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.readLoop(conn)
	}()
}

// readLoop routes inbound frames until the socket dies.
func (c *Client) readLoop(conn *wsConn) {
	for {
		data, err := conn.read()
		if err != nil {
			c.onClosed(conn)
			return
		}
		c.route(data)
	}
}

// route dispatches one inbound frame by message tag. Malformed frames
// are logged and dropped.
func (c *Client) route(data []byte) {
	msg, err := protocol.Parse(data)
	if err != nil {
		log.Printf("[Bridge] dropping malformed frame: %v", err)
		return
	}
	switch {
	case msg.Response != nil:
		c.resolve(msg.Response)
	case msg.Event != nil:
		c.emit(msg.Event)
	default:
		log.Println("[Bridge] dropping unexpected request frame from agent")
	}
}

// resolve completes the pending request matching the response id. A
// response with no pending entry (late, after timeout) is discarded.
func (c *Client) resolve(resp *protocol.Response) {
	c.mu.Lock()
	pr := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()

	if pr == nil {
		log.Printf("[Bridge] discarding response for unknown request %s", resp.ID)
		return
	}
	pr.done <- result{resp: resp}
}

// emit republishes one event to subscribers.
func (c *Client) emit(ev *protocol.Event) {
	c.mu.Lock()
	consoleSubs := append(([]func(protocol.ConsoleLog))(nil), c.consoleSubs...)
	playModeSubs := append(([]func(protocol.PlayModeChange))(nil), c.playModeSubs...)
	eventSubs := append(([]func(*protocol.Event))(nil), c.eventSubs...)
	c.mu.Unlock()

	switch ev.Name {
	case protocol.EventConsoleLog:
		cl := protocol.DecodeConsoleLog(ev.Data)
		for _, fn := range consoleSubs {
			fn(cl)
		}
	case protocol.EventPlayModeChanged:
		pm := protocol.DecodePlayModeChange(ev.Data)
		for _, fn := range playModeSubs {
			fn(pm)
		}
	}
	for _, fn := range eventSubs {
		fn(ev)
	}
}

// onClosed handles the death of the active connection: every pending
// request is rejected exactly once, then bounded reconnection begins.
func (c *Client) onClosed(conn *wsConn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		conn.close()
		return
	}
	c.conn = nil
	rejected := c.takeAllPendingLocked()
	stopping := c.stopping
	var kick chan struct{}
	if !stopping {
		kick = make(chan struct{}, 1)
		c.retryKick = kick
	}
	c.mu.Unlock()

	conn.close()
	for _, pr := range rejected {
		pr.done <- result{err: ErrConnectionClosed}
	}

	if stopping {
		return
	}

	c.setState(StateReconnecting)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.reconnectLoop(kick)
	}()
}

func (c *Client) takeAllPendingLocked() []*pendingRequest {
	out := make([]*pendingRequest, 0, len(c.pending))
	for id, pr := range c.pending {
		out = append(out, pr)
		delete(c.pending, id)
	}
	return out
}

// reconnectLoop retries the connection up to the attempt budget, with a
// fixed delay between attempts. The discovery record is re-read before
// each attempt since the port or channel may have changed across an
// engine reload. A retry kick restarts the budget and skips the delay.
func (c *Client) reconnectLoop(kick chan struct{}) {
	attempt := 0
	for attempt < c.config.ReconnectAttempts {
		attempt++
		select {
		case <-c.ctx.Done():
			return
		case <-kick:
			attempt = 1
		case <-time.After(c.config.ReconnectDelay):
		}

		rec, err := discovery.Read(c.config.ProjectDir)
		if err != nil || rec.IsStale(time.Now(), c.config.StaleAfter) {
			log.Printf("[Bridge] reconnect attempt %d/%d: no usable discovery record",
				attempt, c.config.ReconnectAttempts)
			continue
		}

		c.setState(StateConnecting)
		conn, err := c.dial(rec)
		if err != nil {
			log.Printf("[Bridge] reconnect attempt %d/%d failed: %v",
				attempt, c.config.ReconnectAttempts, err)
			c.setState(StateReconnecting)
			continue
		}

		c.mu.Lock()
		c.retryKick = nil
		c.mu.Unlock()
		c.install(conn)
		return
	}

	// Budget exhausted. Resume discovery polling so the bridge recovers
	// when the engine comes back.
	log.Printf("[Bridge] reconnect budget exhausted after %d attempts", c.config.ReconnectAttempts)
	c.mu.Lock()
	c.retryKick = nil
	c.mu.Unlock()
	c.setState(StateDisconnected)
	c.poller.Resume()
}

// Send issues one command with the default request budget.
func (c *Client) Send(category, action string, params protocol.Params) (*protocol.Response, error) {
	return c.SendTimeout(category, action, params, c.config.RequestTimeout)
}

// SendTimeout issues one command and waits for its response. It fails
// fast with ErrNotConnected when the link is not Connected; the request
// resolves exactly once, by response, timeout, or connection close.
func (c *Client) SendTimeout(category, action string, params protocol.Params, timeout time.Duration) (*protocol.Response, error) {
	req := protocol.NewRequest(category, action, params)
	data, err := protocol.Encode(req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	pr := &pendingRequest{done: make(chan result, 1)}
	c.pending[req.ID] = pr
	c.mu.Unlock()

	if err := conn.write(data); err != nil {
		c.removePending(req.ID)
		return nil, fmt.Errorf("failed to send %s: %w", req.Key(), err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-pr.done:
		return res.resp, res.err
	case <-timer.C:
		if c.removePending(req.ID) {
			return nil, fmt.Errorf("%s: %w after %s", req.Key(), ErrRequestTimeout, timeout)
		}
		// The response raced the timer and has already been delivered.
		res := <-pr.done
		return res.resp, res.err
	}
}

// removePending takes ownership of a pending entry. Returns false when
// someone else (router or close handler) already completed it.
func (c *Client) removePending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// PendingCount reports in-flight requests. Diagnostic only.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
