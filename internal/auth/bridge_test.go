package auth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

type fakePopup struct {
	closed atomic.Bool
	closes atomic.Int32
}

func (p *fakePopup) Closed() bool { return p.closed.Load() }

func (p *fakePopup) Close() error {
	p.closes.Add(1)
	p.closed.Store(true)
	return nil
}

type fakeOpener struct {
	mu     sync.Mutex
	err    error
	reuse  bool
	opened []*fakePopup
	urls   []string
}

func (o *fakeOpener) Open(_ context.Context, url string, _ PopupOptions) (Popup, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	o.urls = append(o.urls, url)
	if o.reuse && len(o.opened) > 0 {
		return o.opened[len(o.opened)-1], nil
	}
	p := &fakePopup{}
	o.opened = append(o.opened, p)
	return p, nil
}

func (o *fakeOpener) last() *fakePopup {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened[len(o.opened)-1]
}

type fakeExchanger struct {
	token string
	err   error
	block chan struct{}
	calls atomic.Int32
	codes chan string
}

func (e *fakeExchanger) ExchangeCode(ctx context.Context, code string) (string, error) {
	e.calls.Add(1)
	if e.codes != nil {
		e.codes <- code
	}
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return e.token, e.err
}

type recordingSink struct {
	mu      sync.Mutex
	results []Result
}

func (s *recordingSink) OnAuthorizationResult(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *recordingSink) all() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

func testConfig() Config {
	return Config{
		ClientID:     "client-123",
		RedirectURI:  testOrigin + "/auth/callback",
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
		PollInterval: 5 * time.Millisecond,
		Timeout:      time.Minute,
	}
}

func newTestBridge(t *testing.T, cfg Config, ex Exchanger) (*Bridge, *fakeOpener, *MessageBus, *recordingSink) {
	t.Helper()
	opener := &fakeOpener{}
	bus := NewMessageBus()
	sink := &recordingSink{}
	b, err := NewBridge(cfg, opener, bus, ex, sink)
	require.NoError(t, err)
	return b, opener, bus, sink
}

func waitResult(t *testing.T, a *Attempt) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := a.Wait(ctx)
	require.NoError(t, err, "attempt did not resolve")
	return r
}

func TestBridgeCodeExchangeSuccess(t *testing.T) {
	ex := &fakeExchanger{token: "tok-xyz", codes: make(chan string, 1)}
	b, opener, bus, sink := newTestBridge(t, testConfig(), ex)

	a, err := b.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, bus.Post(Message{
		Type:   MessageTypeAuthSuccess,
		Code:   "ABC123",
		State:  a.ID(),
		Origin: testOrigin,
	}, testOrigin))

	r := waitResult(t, a)
	assert.Equal(t, ResultSuccess, r.Kind)
	assert.Equal(t, "tok-xyz", r.Token)
	assert.Equal(t, "ABC123", <-ex.codes)
	assert.Equal(t, []Result{r}, sink.all())
	assert.True(t, opener.last().Closed())
	assert.Nil(t, b.Pending())
	assert.Equal(t, 0, bus.Len())
}

func TestBridgeAuthURLCarriesState(t *testing.T) {
	b, opener, _, _ := newTestBridge(t, testConfig(), &fakeExchanger{token: "t"})

	a, err := b.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(b.Cancel)

	u, err := url.Parse(opener.urls[0])
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, testOrigin+"/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, a.ID(), q.Get("state"))
	assert.Equal(t, a.ID(), a.Request().State)
}

func TestBridgePopupBlocked(t *testing.T) {
	b, opener, bus, sink := newTestBridge(t, testConfig(), &fakeExchanger{})
	opener.err = errors.New("no browser")

	a, err := b.Begin(context.Background())
	assert.Nil(t, a)
	assert.ErrorIs(t, err, ErrPopupBlocked)
	assert.Nil(t, b.Pending())
	assert.Equal(t, 0, bus.Len())
	assert.Empty(t, sink.all())
}

func TestBridgeUserClosedPopup(t *testing.T) {
	ex := &fakeExchanger{token: "tok"}
	b, opener, _, sink := newTestBridge(t, testConfig(), ex)

	a, err := b.Begin(context.Background())
	require.NoError(t, err)
	opener.last().closed.Store(true)

	r := waitResult(t, a)
	assert.Equal(t, ResultCancelled, r.Kind)
	assert.ErrorIs(t, r.Err, ErrUserCancelled)
	assert.Len(t, sink.all(), 1)
	assert.Zero(t, ex.calls.Load())
}

func TestBridgeExchangeFailure(t *testing.T) {
	ex := &fakeExchanger{err: errors.New("invalid_grant")}
	b, _, bus, sink := newTestBridge(t, testConfig(), ex)

	a, err := b.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, bus.Post(Message{Type: MessageTypeAuthSuccess, Code: "bad", State: a.ID(), Origin: testOrigin}, testOrigin))

	r := waitResult(t, a)
	assert.Equal(t, ResultFailure, r.Kind)
	assert.ErrorIs(t, r.Err, ErrAuthExchangeFailed)
	assert.Len(t, sink.all(), 1)
}

func TestBridgeIgnoresForeignAndMalformedMessages(t *testing.T) {
	ex := &fakeExchanger{token: "tok"}
	b, _, bus, sink := newTestBridge(t, testConfig(), ex)

	a, err := b.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(b.Cancel)

	// Spoofed sender origin.
	require.NoError(t, bus.Post(Message{Type: MessageTypeAuthSuccess, Code: "X", State: a.ID(), Origin: "http://evil.test"}, testOrigin))
	// Wrong type, missing code and stale state.
	require.NoError(t, bus.Post(Message{Type: "ping", Code: "X", State: a.ID(), Origin: testOrigin}, testOrigin))
	require.NoError(t, bus.Post(Message{Type: MessageTypeAuthSuccess, State: a.ID(), Origin: testOrigin}, testOrigin))
	require.NoError(t, bus.Post(Message{Type: MessageTypeAuthSuccess, Code: "X", State: "other", Origin: testOrigin}, testOrigin))
	bus.Wait()

	select {
	case <-a.Done():
		t.Fatal("attempt resolved on an invalid message")
	default:
	}
	assert.Zero(t, ex.calls.Load())
	assert.Empty(t, sink.all())
	assert.Equal(t, a, b.Pending())
}

func TestBridgeTokenMode(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeToken
	b, _, bus, sink := newTestBridge(t, cfg, nil)

	a, err := b.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, bus.Post(Message{Type: MessageTypeAuthSuccess, Token: "direct", State: a.ID(), Origin: testOrigin}, testOrigin))

	r := waitResult(t, a)
	assert.True(t, r.OK())
	assert.Equal(t, "direct", r.Token)
	assert.Len(t, sink.all(), 1)
}

func TestBridgeRequiresState(t *testing.T) {
	for _, mode := range []Mode{ModeCode, ModeToken} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := testConfig()
			cfg.Mode = mode
			ex := &fakeExchanger{token: "tok"}
			b, _, bus, sink := newTestBridge(t, cfg, ex)

			a, err := b.Begin(context.Background())
			require.NoError(t, err)
			t.Cleanup(b.Cancel)

			require.NoError(t, bus.Post(Message{
				Type:   MessageTypeAuthSuccess,
				Code:   "injected",
				Token:  "injected-token",
				Origin: testOrigin,
			}, testOrigin))
			require.NoError(t, bus.Post(Message{
				Type:   MessageTypeAuthError,
				Error:  CallbackErrorExchangeFailed,
				Origin: testOrigin,
			}, testOrigin))
			bus.Wait()

			select {
			case <-a.Done():
				t.Fatalf("attempt resolved without a state: %+v", a.Result())
			default:
			}
			assert.Zero(t, ex.calls.Load())
			assert.Empty(t, sink.all())
			assert.Equal(t, a, b.Pending())
		})
	}
}

func TestBridgeBackendExchangeError(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeToken
	b, opener, bus, sink := newTestBridge(t, cfg, nil)

	a, err := b.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, bus.Post(Message{
		Type:   MessageTypeAuthError,
		Error:  CallbackErrorExchangeFailed,
		State:  a.ID(),
		Origin: testOrigin,
	}, testOrigin))

	r := waitResult(t, a)
	assert.Equal(t, ResultFailure, r.Kind)
	assert.ErrorIs(t, r.Err, ErrAuthExchangeFailed)
	assert.Contains(t, r.Err.Error(), CallbackErrorExchangeFailed)
	assert.True(t, opener.last().Closed())
	assert.Len(t, sink.all(), 1)
	assert.Equal(t, 0, bus.Len())
}

func TestBridgeTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	b, opener, _, sink := newTestBridge(t, cfg, &fakeExchanger{})

	a, err := b.Begin(context.Background())
	require.NoError(t, err)

	r := waitResult(t, a)
	assert.Equal(t, ResultFailure, r.Kind)
	assert.ErrorIs(t, r.Err, ErrAuthorizationTimeout)
	assert.True(t, opener.last().Closed())
	assert.Len(t, sink.all(), 1)
}

func TestBridgeSupersede(t *testing.T) {
	ex := &fakeExchanger{token: "second"}
	b, opener, bus, sink := newTestBridge(t, testConfig(), ex)

	first, err := b.Begin(context.Background())
	require.NoError(t, err)
	firstPopup := opener.last()

	second, err := b.Begin(context.Background())
	require.NoError(t, err)

	<-first.Done()
	assert.ErrorIs(t, first.Result().Err, ErrSuperseded)
	assert.True(t, firstPopup.Closed())
	assert.Equal(t, second, b.Pending())

	// A late message for the first attempt must not resolve the second.
	require.NoError(t, bus.Post(Message{Type: MessageTypeAuthSuccess, Code: "old", State: first.ID(), Origin: testOrigin}, testOrigin))
	bus.Wait()
	assert.Zero(t, ex.calls.Load())

	require.NoError(t, bus.Post(Message{Type: MessageTypeAuthSuccess, Code: "new", State: second.ID(), Origin: testOrigin}, testOrigin))
	r := waitResult(t, second)
	assert.Equal(t, "second", r.Token)

	results := sink.all()
	require.Len(t, results, 1)
	assert.Equal(t, "second", results[0].Token)
}

func TestBridgeSupersedeReusedWindow(t *testing.T) {
	b, opener, _, _ := newTestBridge(t, testConfig(), &fakeExchanger{token: "t"})
	opener.reuse = true

	_, err := b.Begin(context.Background())
	require.NoError(t, err)
	_, err = b.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(b.Cancel)

	assert.Len(t, opener.opened, 1)
	assert.False(t, opener.last().Closed())
}

func TestBridgePopupClosedDuringExchange(t *testing.T) {
	ex := &fakeExchanger{token: "tok-xyz", block: make(chan struct{}), codes: make(chan string, 1)}
	b, opener, bus, sink := newTestBridge(t, testConfig(), ex)

	a, err := b.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, bus.Post(Message{Type: MessageTypeAuthSuccess, Code: "ABC123", State: a.ID(), Origin: testOrigin}, testOrigin))
	<-ex.codes

	// The callback page closes itself while the exchange is in flight.
	opener.last().closed.Store(true)
	time.Sleep(30 * time.Millisecond)
	close(ex.block)

	r := waitResult(t, a)
	assert.True(t, r.OK())
	assert.Len(t, sink.all(), 1)
}

func TestBridgeSingleResolutionUnderRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		ex := &fakeExchanger{token: "tok"}
		cfg := testConfig()
		cfg.PollInterval = time.Millisecond
		b, opener, bus, sink := newTestBridge(t, cfg, ex)

		a, err := b.Begin(context.Background())
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			opener.last().closed.Store(true)
		}()
		go func() {
			defer wg.Done()
			_ = bus.Post(Message{Type: MessageTypeAuthSuccess, Code: "c", State: a.ID(), Origin: testOrigin}, testOrigin)
		}()
		wg.Wait()

		waitResult(t, a)
		bus.Wait()
		time.Sleep(5 * time.Millisecond)
		assert.Len(t, sink.all(), 1)
	}
}

func TestBridgeCancel(t *testing.T) {
	b, opener, bus, sink := newTestBridge(t, testConfig(), &fakeExchanger{})

	a, err := b.Begin(context.Background())
	require.NoError(t, err)
	b.Cancel()

	<-a.Done()
	assert.ErrorIs(t, a.Result().Err, ErrSuperseded)
	assert.True(t, opener.last().Closed())
	assert.Nil(t, b.Pending())
	assert.Equal(t, 0, bus.Len())
	assert.Empty(t, sink.all())
}

func TestNewBridgeValidation(t *testing.T) {
	_, err := NewBridge(Config{RedirectURI: testOrigin + "/cb"}, &fakeOpener{}, NewMessageBus(), &fakeExchanger{}, nil)
	assert.Error(t, err)

	cfg := testConfig()
	_, err = NewBridge(cfg, &fakeOpener{}, NewMessageBus(), nil, nil)
	assert.Error(t, err)

	cfg.RedirectURI = "/relative"
	_, err = NewBridge(cfg, &fakeOpener{}, NewMessageBus(), &fakeExchanger{}, nil)
	assert.Error(t, err)
}
