// Command corechess wires the core subsystems into a running process and
// logs every published event to stdout. It is a demonstration harness,
// not a server: HTTP routing, the websocket transport and its wire
// format, and rating persistence all live outside this core by design -
// this binary supplies the simplest possible stand-ins so the wiring is
// exercised end to end.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"corechess/internal/app"
	"corechess/internal/config"
	"corechess/internal/eventbus"
)

// stubRatings hands back a flat 1000 rank for any recognized variant, the
// simplest stand-in for the rating store this core deliberately excludes.
func stubRatings(userID, variantName, subvariant string) (int, bool) {
	switch variantName {
	case "classic", "crazyhouse", "decay", "sixpointer":
		return 1000, true
	default:
		return 0, false
	}
}

// connTracker is the simplest possible connection-liveness stand-in: a
// connection id is alive until explicitly marked dead.
type connTracker struct {
	mu   sync.Mutex
	dead map[string]bool
}

func newConnTracker() *connTracker {
	return &connTracker{dead: make(map[string]bool)}
}

func (c *connTracker) alive(connID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dead[connID]
}

func main() {
	cfg := config.FromEnv()
	tracker := newConnTracker()

	application, err := app.New(cfg, stubRatings, tracker.alive)
	if err != nil {
		log.Fatal(err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, events, unsubscribe := application.Events().Subscribe()
	defer unsubscribe()

	log.Printf("corechess core running, data dir %s", cfg.DataDir)
	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			logEvent(ev)
		}
	}
}

func logEvent(ev eventbus.Event) {
	log.Printf("event %s: %+v", ev.Kind, ev.Payload)
}
