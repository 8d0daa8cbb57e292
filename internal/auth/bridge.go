package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/memakingbeats/sentient-inbox-main/internal/log"
)

// Bridge runs the popup authorization handshake. It owns the pending
// attempt: only the most recent one may reach the ResultSink.
type Bridge struct {
	cfg       Config
	origin    string
	opener    Opener
	bus       *MessageBus
	exchanger Exchanger
	sink      ResultSink

	mu      sync.Mutex
	current *Attempt
}

// NewBridge validates cfg and wires the collaborators. exchanger may be nil
// only in ModeToken.
func NewBridge(
	cfg Config,
	opener Opener,
	bus *MessageBus,
	exchanger Exchanger,
	sink ResultSink,
) (*Bridge, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeCode && exchanger == nil {
		return nil, fmt.Errorf("auth config: code mode needs an exchanger")
	}

	origin, _ := OriginOf(cfg.RedirectURI)

	return &Bridge{
		cfg:       cfg,
		origin:    origin,
		opener:    opener,
		bus:       bus,
		exchanger: exchanger,
		sink:      sink,
	}, nil
}

// Origin is the origin the bridge accepts messages from.
func (b *Bridge) Origin() string {
	return b.origin
}

// Begin starts a new attempt, retiring any pending one first. It fails with
// ErrPopupBlocked when the consent window cannot be opened; in that case no
// listener or timer is left behind.
func (b *Bridge) Begin(ctx context.Context) (*Attempt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var prevPopup Popup
	if prev := b.current; prev != nil {
		prev.retire()
		prevPopup = prev.popup
		b.current = nil
	}

	id := uuid.NewString()
	req := NewAuthorizationRequest(b.cfg, id)

	popup, err := b.opener.Open(ctx, req.AuthURL, PopupOptions{
		Name:   b.cfg.PopupName,
		Width:  b.cfg.PopupWidth,
		Height: b.cfg.PopupHeight,
	})
	if err != nil || popup == nil {
		if prevPopup != nil {
			_ = prevPopup.Close()
		}
		if err == nil {
			err = fmt.Errorf("opener returned no window")
		}
		log.LogWarnWithFields("auth", "consent window blocked", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrPopupBlocked, err)
	}
	if prevPopup != nil && prevPopup != popup {
		_ = prevPopup.Close()
	}

	a := newAttempt(id, req, popup)
	a.sub.Store(b.bus.Subscribe(b.origin, func(msg Message) bool {
		return b.handleMessage(a, msg)
	}))
	b.current = a

	go b.watch(a)

	log.LogInfoWithFields("auth", "authorization started", map[string]any{
		"attempt": id,
		"mode":    string(b.cfg.Mode),
	})
	return a, nil
}

// Pending returns the attempt in flight, if any.
func (b *Bridge) Pending() *Attempt {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Cancel retires the pending attempt and closes its window. The sink is
// not notified.
func (b *Bridge) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return
	}
	b.current.retire()
	_ = b.current.popup.Close()
	b.current = nil
}

// watch polls popup liveness and enforces the attempt deadline. It exits as
// soon as the attempt is claimed or resolved.
func (b *Bridge) watch(a *Attempt) {
	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(b.cfg.Timeout)
	defer deadline.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.claimed:
			return
		case <-ticker.C:
			if !a.popup.Closed() {
				continue
			}
			if a.claim() {
				b.finish(a, Cancelled(ErrUserCancelled), false)
			}
			return
		case <-deadline.C:
			if a.claim() {
				b.finish(a, Failure(ErrAuthorizationTimeout), true)
			}
			return
		}
	}
}

// handleMessage runs on the bus. It returns true once the attempt has been
// claimed by a well-formed message, which disarms the subscription.
func (b *Bridge) handleMessage(a *Attempt, msg Message) bool {
	if msg.Type != MessageTypeAuthSuccess && msg.Type != MessageTypeAuthError {
		return false
	}
	// The state is the only proof the message answers this attempt: a
	// missing one is as foreign as a stale one.
	if msg.State != a.id {
		log.LogDebugWithFields("auth", "ignoring message for another attempt", map[string]any{
			"attempt": a.id,
		})
		return false
	}

	if msg.Type == MessageTypeAuthError {
		if !a.claim() {
			return true
		}
		reason := msg.Error
		if reason == "" {
			reason = "unknown error"
		}
		b.finish(a, Failure(fmt.Errorf("%w: %s", ErrAuthExchangeFailed, reason)), true)
		return true
	}

	switch b.cfg.Mode {
	case ModeCode:
		if msg.Code == "" {
			return false
		}
	case ModeToken:
		if msg.Token == "" {
			return false
		}
	}

	if !a.claim() {
		return true
	}
	go b.complete(a, msg)
	return true
}

// complete turns a claimed message into the attempt's result.
func (b *Bridge) complete(a *Attempt, msg Message) {
	if b.cfg.Mode == ModeToken {
		b.finish(a, Success(msg.Token), true)
		return
	}

	token, err := b.exchanger.ExchangeCode(a.ctx, msg.Code)
	if err != nil {
		b.finish(a, Failure(fmt.Errorf("%w: %w", ErrAuthExchangeFailed, err)), true)
		return
	}
	if token == "" {
		b.finish(a, Failure(fmt.Errorf("%w: empty token", ErrAuthExchangeFailed)), true)
		return
	}
	b.finish(a, Success(token), true)
}

// finish resolves a and releases the bridge's hold on it.
func (b *Bridge) finish(a *Attempt, r Result, closePopup bool) {
	if !a.resolve(r, b.sink, closePopup) {
		return
	}

	fields := map[string]any{"attempt": a.id, "result": r.Kind.String()}
	if r.Err != nil {
		fields["error"] = r.Err.Error()
	}
	log.LogInfoWithFields("auth", "authorization finished", fields)

	b.mu.Lock()
	if b.current == a {
		b.current = nil
	}
	b.mu.Unlock()
}

// Attempt is one run of the handshake.
type Attempt struct {
	id    string
	req   AuthorizationRequest
	popup Popup
	sub   atomic.Pointer[Subscription]

	ctx    context.Context
	cancel context.CancelFunc

	// claimed closes when a detector wins the right to resolve.
	claimed   chan struct{}
	claimFlag atomic.Bool

	once   sync.Once
	done   chan struct{}
	result Result
}

func newAttempt(id string, req AuthorizationRequest, popup Popup) *Attempt {
	ctx, cancel := context.WithCancel(context.Background())
	return &Attempt{
		id:      id,
		req:     req,
		popup:   popup,
		ctx:     ctx,
		cancel:  cancel,
		claimed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ID returns the attempt ID, also used as the OAuth state.
func (a *Attempt) ID() string { return a.id }

// Request returns the authorization request the window was opened with.
func (a *Attempt) Request() AuthorizationRequest { return a.req }

// Done closes when the attempt has a result.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Result returns the terminal result. Only meaningful after Done closes.
func (a *Attempt) Result() Result {
	<-a.done
	return a.result
}

// Wait blocks until the attempt resolves or ctx ends.
func (a *Attempt) Wait(ctx context.Context) (Result, error) {
	select {
	case <-a.done:
		return a.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (a *Attempt) claim() bool {
	if !a.claimFlag.CompareAndSwap(false, true) {
		return false
	}
	close(a.claimed)
	return true
}

// resolve applies r once: detectors are disarmed before the sink sees the
// result, and Done closes last. It reports whether this call won.
func (a *Attempt) resolve(r Result, sink ResultSink, closePopup bool) bool {
	won := false
	a.once.Do(func() {
		won = true
		a.cancel()
		a.sub.Load().Disarm()
		if closePopup {
			_ = a.popup.Close()
		}
		a.result = r
		if sink != nil {
			sink.OnAuthorizationResult(r)
		}
		close(a.done)
	})
	return won
}

// retire ends the attempt without telling the sink.
func (a *Attempt) retire() {
	a.resolve(Cancelled(ErrSuperseded), nil, false)
}
