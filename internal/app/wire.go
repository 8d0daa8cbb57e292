package app

import (
	"context"
	"fmt"
	"time"

	"github.com/memakingbeats/sentient-inbox-main/internal/apiclient"
	"github.com/memakingbeats/sentient-inbox-main/internal/auth"
	"github.com/memakingbeats/sentient-inbox-main/internal/browser"
	"github.com/memakingbeats/sentient-inbox-main/internal/callback"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/session"
	appsync "github.com/memakingbeats/sentient-inbox-main/internal/sync"
)

// Connect wires the real services for cfg: the session controller, the
// popup bridge with its loopback callback server, the REST client and the
// inbox poller.
func Connect(cfg *model.AppConfig, n session.Notifier) (*Services, error) {
	bus := auth.NewMessageBus()
	ctrl := session.NewController(n)
	client := apiclient.NewClient(cfg.Backend.BaseURL, cfg.Auth.ClientID, cfg.Auth.RedirectURI, ctrl)
	launcher := browser.NewLauncher(cfg.Browser.Command)

	authCfg := auth.Config{
		ClientID:     cfg.Auth.ClientID,
		RedirectURI:  cfg.Auth.RedirectURI,
		Scopes:       cfg.Auth.Scopes,
		AuthURL:      cfg.Auth.AuthURL,
		Mode:         auth.Mode(cfg.Auth.Mode),
		PopupName:    cfg.Auth.PopupName,
		PopupWidth:   cfg.Auth.PopupWidth,
		PopupHeight:  cfg.Auth.PopupHeight,
		PollInterval: cfg.Auth.PollInterval,
		Timeout:      cfg.Auth.Timeout,
	}

	// Token mode needs no exchange: the backend already issued the token.
	var exchanger auth.Exchanger
	if authCfg.Mode != auth.ModeToken {
		exchanger = client
	}

	bridge, err := auth.NewBridge(authCfg, launcher, bus, exchanger, ctrl)
	if err != nil {
		return nil, err
	}
	ctrl.SetAuthorizer(bridge)

	handler, err := callback.NewHandler(cfg.Auth.RedirectURI, bus, ctrl)
	if err != nil {
		return nil, err
	}
	srv, err := callback.Listen(handler)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	go func() {
		if err := srv.Serve(); err != nil {
			log.LogErrorWithFields("app", "callback server stopped", map[string]any{"error": err.Error()})
			ctrl.Report(err)
		}
	}()

	return &Services{
		Session: ctrl,
		Backend: client,
		Poller:  appsync.New(client, cfg.RefreshInterval(), cfg.Display.MaxResults),
		Close: func() {
			launcher.CloseAll()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.LogWarnWithFields("app", "callback server shutdown", map[string]any{"error": err.Error()})
			}
		},
	}, nil
}

// CheckBackend reports whether the REST service at baseURL answers.
func CheckBackend(ctx context.Context, baseURL string) error {
	return apiclient.NewClient(baseURL, "", "", nil).Health(ctx)
}
