package server

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/store"
)

// persistingTokenSource writes provider tokens back to the session row
// whenever the underlying source hands out a new access token.
type persistingTokenSource struct {
	base  oauth2.TokenSource
	store store.Store

	mu   sync.Mutex
	sess model.AccountSession
}

func newPersistingTokenSource(
	ctx context.Context,
	cfg *oauth2.Config,
	st store.Store,
	sess model.AccountSession,
) *persistingTokenSource {
	tok := &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
		Expiry:       sess.Expiry,
	}
	return &persistingTokenSource{
		base:  cfg.TokenSource(context.WithoutCancel(ctx), tok),
		store: st,
		sess:  sess,
	}
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken == p.sess.AccessToken {
		return tok, nil
	}

	p.sess.AccessToken = tok.AccessToken
	p.sess.TokenType = tok.TokenType
	p.sess.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		p.sess.RefreshToken = tok.RefreshToken
	}
	if err := p.store.UpdateSessionToken(context.Background(), p.sess); err != nil {
		log.LogWarnWithFields("auth", "persisting refreshed provider token", map[string]any{
			"session": p.sess.ID,
			"error":   err.Error(),
		})
	}
	return tok, nil
}
