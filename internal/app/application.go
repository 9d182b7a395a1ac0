// Package app wires the collaborators together and owns process lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AxolotlClient/AxolotlClient-API/internal/api"
	"github.com/AxolotlClient/AxolotlClient-API/internal/channel"
	"github.com/AxolotlClient/AxolotlClient-API/internal/config"
	"github.com/AxolotlClient/AxolotlClient-API/internal/database"
	"github.com/AxolotlClient/AxolotlClient-API/internal/gateway"
	"github.com/AxolotlClient/AxolotlClient-API/internal/identity"
	"github.com/AxolotlClient/AxolotlClient-API/internal/metrics"
	"github.com/AxolotlClient/AxolotlClient-API/internal/tcpserver"
	"github.com/AxolotlClient/AxolotlClient-API/internal/user"
)

// Application holds the wired system. Build it with New, run it with Start,
// shut it down with Stop.
type Application struct {
	cfg   *config.Config
	log   *slog.Logger
	store *database.Manager

	httpServer *http.Server
	tcpServer  *tcpserver.Server
	mux        *channel.Multiplexer

	cleanupStop chan struct{}
}

// New builds the full object graph from cfg. Nothing is listening yet when
// New returns.
func New(cfg *config.Config, log *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	store, err := database.NewManager(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	resolver := identity.NewClient(cfg.Profile.BaseURL, cfg.Profile.Timeout, log)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	registry := gateway.NewRegistry(log)
	presence := gateway.NewPresence(registry, store, log)

	mux := channel.NewMultiplexer(registry, m, log)
	if err := mux.Register(
		channel.NewFriends(store, registry, mux),
		channel.NewStatusUpdate(presence),
		channel.NewUsers(registry, mux),
		channel.NewErrors(log),
	); err != nil {
		_ = store.Close()
		return nil, err
	}

	gatewayHandler := gateway.NewHandler(registry, store, resolver, presence, mux, m,
		gateway.HandlerConfig{
			ReadTimeout:  cfg.Gateway.ReadTimeout,
			WriteTimeout: cfg.Gateway.WriteTimeout,
			PingInterval: cfg.Gateway.PingInterval,
		}, log)

	users := user.NewManager(registry, store)

	apiServer := api.NewServer(http.HandlerFunc(gatewayHandler.ServeWS), registry, users, promRegistry, log)
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	tcpServer, err := tcpserver.NewServer(
		net.JoinHostPort(cfg.TCP.Host, strconv.Itoa(cfg.TCP.Port)),
		cfg.TCP.ReadTimeout, users, m, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Application{
		cfg:         cfg,
		log:         log,
		store:       store,
		httpServer:  httpServer,
		tcpServer:   tcpServer,
		mux:         mux,
		cleanupStop: make(chan struct{}),
	}, nil
}

// Start binds both listeners. The HTTP server's websocket upgrade path means
// its timeouts apply to plain API requests only; gorilla hijacks the
// connection before they bite.
func (a *Application) Start(ctx context.Context) error {
	if err := a.tcpServer.Start(ctx); err != nil {
		return fmt.Errorf("start binary transport: %w", err)
	}

	listener, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		a.tcpServer.Stop()
		return fmt.Errorf("start HTTP listener: %w", err)
	}
	a.log.Info("HTTP listening", "addr", listener.Addr().String())

	go func() {
		if err := a.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			a.log.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	go a.cleanupLoop()
	return nil
}

func (a *Application) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.mux.Cleanup()
		case <-a.cleanupStop:
			return
		}
	}
}

// Stop shuts the listeners down and closes the store. Hijacked websocket
// connections are not tracked by http.Server.Shutdown, so Close follows it to
// cut them loose.
func (a *Application) Stop(ctx context.Context) error {
	close(a.cleanupStop)

	a.tcpServer.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("HTTP shutdown incomplete", "error", err)
	}
	_ = a.httpServer.Close()

	return a.store.Close()
}
