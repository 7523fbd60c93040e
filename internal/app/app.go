package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-p2p/internal/config"
	"github.com/vovakirdan/wirechat-p2p/internal/core"
	"github.com/vovakirdan/wirechat-p2p/internal/discovery"
	"github.com/vovakirdan/wirechat-p2p/internal/p2p"
	transporthttp "github.com/vovakirdan/wirechat-p2p/internal/transport/http"
)

const eventBuffer = 64

// App wires together the network, discovery and session layers.
type App struct {
	settings        core.Settings
	node            *p2p.Node
	mdns            *discovery.MDNS
	session         *core.Session
	server          *stdhttp.Server
	input           io.Reader
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application. Input lines are read from in and received
// messages are printed to out.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger, in io.Reader, out io.Writer) (*App, error) {
	settings := core.Settings{Topic: cfg.Topic, Alias: cfg.Alias}

	node, err := p2p.New(ctx, cfg.ListenAddrs, settings.Topic, logger)
	if err != nil {
		return nil, fmt.Errorf("init network: %w", err)
	}

	port, err := node.Port()
	if err != nil {
		_ = node.Close()
		return nil, fmt.Errorf("init network: %w", err)
	}

	mdns := discovery.NewMDNS(discovery.Options{
		ServiceName:    cfg.ServiceName,
		Domain:         cfg.Domain,
		RecordTTL:      cfg.RecordTTL,
		BrowseInterval: cfg.BrowseInterval,
		BrowseTimeout:  cfg.BrowseTimeout,
	}, node.ID(), port, logger)

	sessionLog := logger.With().Str("session", mdns.Instance()).Str("topic", settings.Topic).Logger()

	feed := core.NewFeed()
	session := core.NewSession(settings, node, mdns, out, &sessionLog, core.WithFeed(feed))

	var server *stdhttp.Server
	if cfg.HTTPAddr != "" {
		server = transporthttp.NewServer(cfg.HTTPAddr, settings, node, feed, logger)
	}

	return &App{
		settings:        settings,
		node:            node,
		mdns:            mdns,
		session:         session,
		server:          server,
		input:           in,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}, nil
}

// Run starts discovery, the network event loop and the optional status
// server, then blocks in the session until ctx is cancelled or a fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.cleanup()

	if err := a.mdns.StartAdvertising(); err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}

	events := make(chan core.Event, eventBuffer)
	fatal := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := a.node.Run(ctx, events); err != nil {
			fatal <- fmt.Errorf("network: %w", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		a.mdns.Run(ctx, events)
	}()

	if a.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.log.Info().Str("addr", a.server.Addr).Msg("status server listening")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				fatal <- fmt.Errorf("status server: %w", err)
				cancel()
			}
		}()
	}

	a.log.Info().
		Str("topic", a.settings.Topic).
		Str("alias", a.settings.Alias).
		Str("peer_id", a.node.ID()).
		Msg("chat session running")

	err := a.session.Run(ctx, core.ReadLines(ctx, a.input), events)

	if a.server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
		a.log.Info().Msg("shutting down status server")
		if shutdownErr := a.server.Shutdown(shutdownCtx); shutdownErr != nil {
			a.log.Warn().Err(shutdownErr).Msg("status server shutdown")
		}
		cancelShutdown()
	}
	cancel()
	wg.Wait()

	select {
	case fatalErr := <-fatal:
		return fatalErr
	default:
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// cleanup stops the advertisement and closes the host.
func (a *App) cleanup() {
	a.mdns.StopAdvertising()
	if err := a.node.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close host")
	} else {
		a.log.Info().Msg("host closed")
	}
}
