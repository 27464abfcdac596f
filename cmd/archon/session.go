package main

import (
	"context"
	"fmt"

	"archon/internal/config"
	"archon/internal/console"
	"archon/internal/dns"
	"archon/internal/logging"
	"archon/internal/metrics"
	"archon/internal/nodeapi"
	"archon/internal/watch"

	"go.uber.org/zap"
)

// inboundBuffer sizes the channel background work reports into.
const inboundBuffer = 64

// session is one running console: the engine and everything it talks to.
type session struct {
	store   *config.Store
	engine  *console.Engine
	spawner *console.TaskSpawner
	inbound chan console.Action
	metrics *metrics.Recorder
	watcher *watch.InventoryWatcher

	cancel context.CancelFunc
}

// openSession loads the inventory at path and wires the engine. With
// watchFile set, edits made to the file by other programs are reported into
// the inbound channel. A configuration error here is fatal.
func openSession(parent context.Context, path string, watchFile bool) (*session, error) {
	store := config.NewStore(path)
	inv, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	logging.Boot("inventory loaded: %d sites, %d domains, %d nodes", len(inv.Sites), len(inv.Domains), len(inv.Nodes))

	ctx, cancel := context.WithCancel(parent)
	inbound := make(chan console.Action, inboundBuffer)
	rec := metrics.New()
	spawner := console.NewTaskSpawner(nodeapi.New(), dns.NewFactory(), inbound)
	engine := console.NewEngine(console.NewState(inv), store, spawner, console.WithRecorder(rec))

	s := &session{
		store:   store,
		engine:  engine,
		spawner: spawner,
		inbound: inbound,
		metrics: rec,
		cancel:  cancel,
	}

	if metricsAddr != "" {
		go func() {
			if err := rec.Serve(ctx, metricsAddr); err != nil {
				logging.BootWarn("metrics server stopped: %v", err)
				logger.Warn("metrics server stopped", zap.String("addr", metricsAddr), zap.Error(err))
			}
		}()
	}

	if watchFile {
		w, err := watch.NewInventoryWatcher(path, store, func(p string) {
			select {
			case inbound <- console.InventoryChanged{Path: p}:
			case <-ctx.Done():
			}
		})
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			// The console works without it; external edits just go unnoticed.
			logging.BootWarn("inventory watcher unavailable: %v", err)
			if w != nil {
				w.Stop()
			}
		} else {
			s.watcher = w
		}
	}

	return s, nil
}

// Close stops the watcher and background operations. Completions still in
// flight are dropped.
func (s *session) Close() {
	s.cancel()
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.spawner.Shutdown()
	logging.Boot("session closed")
}
