// Package agent implements the engine-side half of the bridge: a loopback
// WebSocket server embedded in the editor process. It accepts exactly one
// controller connection, queues inbound commands for the engine main loop,
// and pushes responses and spontaneous events back out.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polyforge/scenebridge/internal/discovery"
	"github.com/polyforge/scenebridge/internal/protocol"
	"github.com/polyforge/scenebridge/internal/scene"
)

// Config holds agent server configuration.
type Config struct {
	// ProjectDir is where the discovery record is written.
	ProjectDir string

	// Channel, when set, is the URL path segment the websocket upgrade
	// must use (protocol 1.1).
	Channel string

	// MaxBatchPerTick bounds how many inbound messages one engine tick
	// may execute.
	MaxBatchPerTick int

	// InboundQueueSize bounds the queue between the read loop and the
	// tick executor.
	InboundQueueSize int

	// OutboundQueueSize bounds the per-connection send queue.
	OutboundQueueSize int

	// SendInterval is the send loop's drain cadence.
	SendInterval time.Duration

	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults. The batch bound keeps command
// execution from starving the engine's own frame work.
func DefaultConfig(projectDir string) Config {
	return Config{
		ProjectDir:        projectDir,
		MaxBatchPerTick:   10,
		InboundQueueSize:  256,
		OutboundQueueSize: 256,
		SendInterval:      16 * time.Millisecond,
		WriteTimeout:      10 * time.Second,
	}
}

// Server is the in-process agent. Graph mutation never happens on the
// network goroutines: the read loop only enqueues, and Tick (called from
// the engine main loop) executes.
type Server struct {
	config     Config
	editor     *scene.Editor
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener

	mu     sync.Mutex
	client *client

	inbound chan *protocol.Request

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// client is the single accepted controller connection.
type client struct {
	conn     *websocket.Conn
	outbound chan []byte
	done     chan struct{}
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// New creates an agent serving the given editor.
func New(config Config, editor *scene.Editor) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  config,
		editor:  editor,
		inbound: make(chan *protocol.Request, config.InboundQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // loopback only; the listener binds 127.0.0.1
			},
		},
	}
	s.dispatcher = NewDispatcher(editor)

	// Editor output becomes bridge events.
	editor.SetLogHook(func(logType, message, stackTrace string) {
		s.PublishEvent(protocol.NewConsoleLogEvent(message, stackTrace, logType))
	})
	editor.SetPlayModeHook(func(state string) {
		s.PublishEvent(protocol.NewPlayModeEvent(state))
	})

	return s
}

// Start binds an ephemeral loopback port, begins serving, and advertises
// the agent via the discovery record.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("agent already started")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to bind agent port: %w", err)
	}
	s.listener = listener
	s.started = true

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)
	s.httpServer = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[Agent] serve error: %v", err)
		}
	}()

	rec := discovery.Record{
		Port:    s.Port(),
		PID:     os.Getpid(),
		Version: protocol.ProtocolVersion,
		Channel: s.config.Channel,
	}
	if err := discovery.Write(s.config.ProjectDir, rec); err != nil {
		listener.Close()
		return fmt.Errorf("failed to write discovery record: %w", err)
	}

	log.Printf("[Agent] listening on 127.0.0.1:%d (protocol %s)", s.Port(), protocol.ProtocolVersion)
	return nil
}

// Port returns the bound port. Zero before Start.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Stop shuts the agent down and removes the discovery record.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	c := s.client
	s.client = nil
	s.mu.Unlock()

	if err := discovery.Remove(s.config.ProjectDir); err != nil {
		log.Printf("[Agent] failed to remove discovery record: %v", err)
	}

	s.cancel()
	if c != nil {
		c.close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Println("[Agent] stopped")
	return nil
}

// handleHTTP answers plain GETs with the health payload and upgrades
// websocket requests.
func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": protocol.ProtocolVersion,
		})
		return
	}

	if s.config.Channel != "" && strings.Trim(r.URL.Path, "/") != s.config.Channel {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Agent] upgrade failed: %v", err)
		return
	}
	s.attach(conn)
}

// attach installs the connection as the single client, or rejects it at
// the protocol level when one is already connected.
func (s *Server) attach(conn *websocket.Conn) {
	c := &client{
		conn:     conn,
		outbound: make(chan []byte, s.config.OutboundQueueSize),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	if s.client != nil {
		s.mu.Unlock()
		s.rejectSecondClient(conn)
		return
	}
	s.client = c
	s.mu.Unlock()

	log.Printf("[Agent] controller connected from %s", conn.RemoteAddr())

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.readLoop(c)
	}()
	go func() {
		defer s.wg.Done()
		s.sendLoop(c)
	}()
}

// rejectSecondClient answers a concurrent connection attempt with an
// explicit protocol-level rejection, then closes it. The first connection
// is unaffected.
func (s *Server) rejectSecondClient(conn *websocket.Conn) {
	log.Printf("[Agent] rejecting second controller from %s", conn.RemoteAddr())
	ev := protocol.NewEvent(protocol.EventError, map[string]any{
		"reason": "client already connected",
	})
	if data, err := protocol.Encode(ev); err == nil {
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "client already connected"),
		time.Now().Add(time.Second))
	conn.Close()
}

// detach removes c if it is still the current client.
func (s *Server) detach(c *client) {
	s.mu.Lock()
	if s.client == c {
		s.client = nil
	}
	s.mu.Unlock()
	c.close()
	log.Println("[Agent] controller disconnected")
}

// readLoop parses inbound frames and queues requests for the tick
// executor. Malformed frames are logged and dropped, never fatal.
func (s *Server) readLoop(c *client) {
	defer s.detach(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Agent] read error: %v", err)
			}
			return
		}

		msg, err := protocol.Parse(data)
		if err != nil {
			log.Printf("[Agent] dropping malformed frame: %v", err)
			continue
		}
		if msg.Request == nil {
			log.Printf("[Agent] dropping unexpected %s frame from controller", frameKind(msg))
			continue
		}

		select {
		case s.inbound <- msg.Request:
		default:
			// Queue full: answer immediately rather than block the read loop.
			s.send(protocol.NewErrorResponse(msg.Request.ID, "agent command queue is full"))
		}
	}
}

func frameKind(msg *protocol.Message) string {
	switch {
	case msg.Response != nil:
		return "response"
	case msg.Event != nil:
		return "event"
	default:
		return "unknown"
	}
}

// sendLoop drains the outbound queue on a fixed cadence.
func (s *Server) sendLoop(c *client) {
	ticker := time.NewTicker(s.config.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if !s.drainOutbound(c) {
				return
			}
		}
	}
}

// drainOutbound writes everything currently queued. Returns false when the
// connection is no longer usable.
func (s *Server) drainOutbound(c *client) bool {
	for {
		select {
		case data := <-c.outbound:
			c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[Agent] write error: %v", err)
				c.close()
				return false
			}
		default:
			return true
		}
	}
}

// Tick executes up to MaxBatchPerTick queued commands. It must be called
// from the engine main loop: it is the only place graph mutation happens.
// Returns the number of commands processed.
func (s *Server) Tick() int {
	processed := 0
	for processed < s.config.MaxBatchPerTick {
		select {
		case req := <-s.inbound:
			resp := s.dispatcher.Dispatch(req)
			s.send(resp)
			processed++
		default:
			return processed
		}
	}
	return processed
}

// RunLoop drives Tick at the given cadence until the context is cancelled.
// The standalone agent binary uses this in place of an engine frame loop.
func (s *Server) RunLoop(ctx context.Context, tickInterval time.Duration) {
	if tickInterval <= 0 {
		tickInterval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// PublishEvent pushes an event to the connected controller, if any.
func (s *Server) PublishEvent(ev *protocol.Event) {
	s.send(ev)
}

// send encodes and queues one outbound frame. Frames are dropped (with a
// log line) when no client is connected or its queue is full.
func (s *Server) send(v any) {
	s.mu.Lock()
	c := s.client
	s.mu.Unlock()
	if c == nil {
		return
	}

	data, err := protocol.Encode(v)
	if err != nil {
		log.Printf("[Agent] encode error: %v", err)
		return
	}
	select {
	case c.outbound <- data:
	default:
		log.Println("[Agent] outbound queue full, dropping frame")
	}
}
