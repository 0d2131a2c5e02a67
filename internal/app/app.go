// Package app wires the core subsystems - session store, game controller,
// matchmaking queue, tournament overlay and the durable summary sink -
// into one process-lifetime object. It owns no transport; a caller (see
// cmd/) drives these through whatever surface it chooses.
package app

import (
	"context"
	"fmt"
	"os"
	"sync"

	"corechess/internal/config"
	"corechess/internal/db"
	"corechess/internal/eventbus"
	"corechess/internal/game"
	"corechess/internal/matchmaking"
	"corechess/internal/session"
	"corechess/internal/tournament"
)

// App bundles every wired subsystem for the lifetime of one process.
type App struct {
	cfg config.Config

	store *db.Store
	bus   *eventbus.Bus

	Sessions    *session.Store
	Games       *game.Controller
	Queue       *matchmaking.Queue
	Tournaments *tournament.Overlay

	cancelBackground context.CancelFunc
	closeOnce        sync.Once
}

// New opens the durable store, builds every in-memory subsystem, and
// starts the idle-sweep background jobs. ratings and connAlive are the
// two external collaborators the core depends on but does not own -
// rating persistence and connection liveness both live outside this
// package's scope - so the caller supplies them.
func New(cfg config.Config, ratings matchmaking.RatingLookup, connAlive matchmaking.ConnAlive) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := db.Open(cfg.SessionDBPath)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	sessions := session.NewStore(cfg.SessionTTL, bus, store)
	games := game.NewController(sessions, bus)
	queue := matchmaking.New(cfg, ratings, connAlive, sessions, bus)
	tournaments := tournament.New(cfg.TournamentCapacity, queue, sessions, bus, ratings, connAlive)

	ctx, cancel := context.WithCancel(context.Background())
	go session.RunIdleSweep(ctx, sessions, cfg.IdleSweepInterval)
	go matchmaking.RunIdleCleanup(ctx, queue, cfg.IdleSweepInterval)

	return &App{
		cfg:              cfg,
		store:            store,
		bus:              bus,
		Sessions:         sessions,
		Games:            games,
		Queue:            queue,
		Tournaments:      tournaments,
		cancelBackground: cancel,
	}, nil
}

// Events returns the bus every subsystem publishes onto, for a transport
// layer to subscribe to.
func (a *App) Events() *eventbus.Bus {
	return a.bus
}

// Close stops the background sweep jobs and closes the durable store.
// Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.cancelBackground()
		_ = a.store.Close()
	})
}
