// Command sentient-inbox-api is the backend REST service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memakingbeats/sentient-inbox-main/internal/ai"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox"
	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox/gmail"
	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox/imap"
	"github.com/memakingbeats/sentient-inbox-main/internal/server"
	"github.com/memakingbeats/sentient-inbox-main/internal/store"
	"github.com/memakingbeats/sentient-inbox-main/internal/token"
)

func main() {
	logLevel := flag.String("log-level", "info", "log level (error, warn, info, debug, trace)")
	flag.Parse()

	if flag.Arg(0) == "secrets" {
		if err := runSecrets(flag.Args()[1:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "sentient-inbox-api: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "sentient-inbox-api: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logLevel string) error {
	if err := log.SetLogLevel(logLevel); err != nil {
		return err
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return err
	}

	analyzer := ai.New(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicMaxTokens)
	if !analyzer.Enabled() {
		log.LogWarnWithFields("main", "no Anthropic API key, analyses use the fallback", nil)
	}

	var mailboxes mailbox.Factory
	switch cfg.MailDriver {
	case server.DriverIMAP:
		mailboxes = imap.Factory(cfg.IMAP())
	default:
		mailboxes = gmail.Factory()
	}

	srv := server.New(cfg, st, issuer, mailboxes, analyzer)
	httpServer := server.NewHTTPServer(srv.Handler(), cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(func() error { return srv.SweepSessions(gctx, time.Hour) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Stop(shutdownCtx)
	})

	log.LogInfoWithFields("main", "backend ready", map[string]any{
		"addr":   cfg.Addr,
		"driver": cfg.MailDriver,
	})
	return g.Wait()
}
