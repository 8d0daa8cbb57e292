// Package sync keeps the dashboard inbox fresh while a session is live.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memakingbeats/sentient-inbox-main/internal/apiclient"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

// SyncState represents the current state of the refresher.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus is the refresher's last known state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// InboxMsg is a tea.Msg sent when a fetch completes.
type InboxMsg struct {
	Emails []model.Email
	Err    error

	// AuthError is set when the backend rejected the session token.
	AuthError bool

	// NewCount counts messages not seen by an earlier fetch of this run.
	NewCount int
}

// Fetcher lists the inbox. apiclient.Client satisfies it.
type Fetcher interface {
	ListEmails(ctx context.Context, max int) ([]model.Email, error)
}

const (
	fetchTimeout    = 30 * time.Second
	defaultInterval = 60 * time.Second
	defaultMax      = 50
)

// Poller fetches the inbox on a ticker and on demand. It can be started and
// stopped repeatedly, once per session.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	max      int

	resultCh  chan InboxMsg
	triggerCh chan struct{}

	mu        gosync.Mutex
	cancel    context.CancelFunc
	running   bool
	listening bool
	status    SyncStatus
	known     map[string]bool
}

// New creates a poller. Non-positive interval or max fall back to defaults.
func New(f Fetcher, interval time.Duration, max int) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if max <= 0 {
		max = defaultMax
	}
	return &Poller{
		fetcher:   f,
		interval:  interval,
		max:       max,
		resultCh:  make(chan InboxMsg, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start begins polling with an immediate fetch. The returned command
// delivers the next InboxMsg; it is nil when a listener is already waiting
// from an earlier run.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	p.known = nil
	listen := !p.listening
	p.listening = true
	p.mu.Unlock()

	go p.poll(ctx)

	if !listen {
		return nil
	}
	return p.waitForResult()
}

// Stop halts polling. A fetch in flight is cancelled and its result dropped.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.cancel()
	p.running = false
	p.status = SyncStatus{State: SyncIdle}
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Refresh triggers an immediate fetch. It never blocks.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already queued.
	}
}

// Status returns the current sync status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) poll(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx)
		case <-p.triggerCh:
			p.fetch(ctx)
		}
	}
}

func (p *Poller) fetch(runCtx context.Context) {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(runCtx, fetchTimeout)
	defer cancel()

	emails, err := p.fetcher.ListEmails(ctx, p.max)
	if runCtx.Err() != nil {
		return
	}
	if err != nil {
		p.setStatus(SyncError, err)
		log.LogWarnWithFields("sync", "inbox fetch failed", map[string]any{
			"error": err.Error(),
		})
		p.sendResult(InboxMsg{Err: err, AuthError: apiclient.IsAuthError(err)})
		return
	}

	p.setStatus(SyncIdle, nil)
	newCount := p.track(emails)
	log.LogDebugWithFields("sync", "inbox fetched", map[string]any{
		"count": len(emails),
		"new":   newCount,
	})
	p.sendResult(InboxMsg{Emails: emails, NewCount: newCount})
}

// track records the fetched IDs and counts the unseen ones. The first fetch
// of a run sets the baseline and counts nothing.
func (p *Poller) track(emails []model.Email) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	primed := p.known != nil
	if !primed {
		p.known = make(map[string]bool, len(emails))
	}
	n := 0
	for _, e := range emails {
		if !p.known[e.ID] {
			p.known[e.ID] = true
			if primed {
				n++
			}
		}
	}
	return n
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends on the result channel without blocking.
func (p *Poller) sendResult(msg InboxMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next InboxMsg.
// Call it after handling each InboxMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
