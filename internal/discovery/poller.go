package discovery

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/polyforge/scenebridge/internal/protocol"
)

// PollerConfig configures the discovery poller.
type PollerConfig struct {
	// ProjectDir is the project root the record lives under.
	ProjectDir string

	// Interval is the normal polling cadence.
	Interval time.Duration

	// FastInterval is used for the poll immediately after a failed
	// connection attempt, to ride through editor recompile windows.
	FastInterval time.Duration

	// StaleAfter is the record freshness threshold.
	StaleAfter time.Duration

	// OnRecord is invoked with each fresh record found while polling is
	// active. Connection bookkeeping is the callback's business.
	OnRecord func(rec *Record)
}

// DefaultPollerConfig returns sensible defaults.
func DefaultPollerConfig(projectDir string) PollerConfig {
	return PollerConfig{
		ProjectDir:   projectDir,
		Interval:     5 * time.Second,
		FastInterval: 2 * time.Second,
		StaleAfter:   DefaultStaleAfter,
	}
}

// Poller watches the discovery record on an interval. Polling is suspended
// while a connection is active and resumed on disconnect. The poller never
// writes the record; it may delete a stale one.
type Poller struct {
	config PollerConfig

	mu        sync.Mutex
	suspended bool
	kick      chan time.Duration
	stopped   chan struct{}
	stopOnce  sync.Once
}

// NewPoller creates a poller. Start must be called to begin polling.
func NewPoller(config PollerConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.FastInterval <= 0 {
		config.FastInterval = 2 * time.Second
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	return &Poller{
		config:  config,
		kick:    make(chan time.Duration, 1),
		stopped: make(chan struct{}),
	}
}

// Start runs the poll loop until the context is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	go p.loop(ctx)
}

// Stop terminates the poll loop.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
}

// Suspend pauses polling (a connection is active).
func (p *Poller) Suspend() {
	p.mu.Lock()
	p.suspended = true
	p.mu.Unlock()
}

// Resume restarts polling after a disconnect.
func (p *Poller) Resume() {
	p.mu.Lock()
	p.suspended = false
	p.mu.Unlock()
	p.PollSoon(0)
}

// PollSoon schedules the next poll after the given delay instead of the
// normal interval. A zero delay polls immediately.
func (p *Poller) PollSoon(delay time.Duration) {
	select {
	case p.kick <- delay:
	default:
		// A reschedule is already queued; one is enough.
	}
}

func (p *Poller) loop(ctx context.Context) {
	timer := time.NewTimer(0) // first poll immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopped:
			return
		case delay := <-p.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(delay)
		case <-timer.C:
			p.pollOnce()
			timer.Reset(p.config.Interval)
		}
	}
}

// pollOnce reads the record and either purges it or hands it to the
// callback. Missing and malformed records are expected and absorbed.
func (p *Poller) pollOnce() {
	p.mu.Lock()
	suspended := p.suspended
	p.mu.Unlock()
	if suspended {
		return
	}

	rec, err := Read(p.config.ProjectDir)
	if err != nil {
		return // engine not running, or a half-written record
	}

	if rec.IsStale(time.Now(), p.config.StaleAfter) {
		// Best-effort purge; the agent exited uncleanly.
		if err := Remove(p.config.ProjectDir); err == nil {
			log.Printf("[Discovery] purged stale record (age %s, pid %d)",
				rec.Age(time.Now()).Round(time.Second), rec.PID)
		}
		return
	}

	if rec.Version != "" && !protocol.IsSupportedVersion(rec.Version) {
		log.Printf("[Discovery] agent advertises protocol %s (supported: %v), connecting anyway",
			rec.Version, protocol.SupportedVersions)
	}

	if p.config.OnRecord != nil {
		p.config.OnRecord(rec)
	}
}
