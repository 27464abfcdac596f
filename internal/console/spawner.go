package console

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"archon/internal/dns"
	"archon/internal/logging"
)

// Spawner starts background operations. Spawn must not block and must not
// touch State.
type Spawner interface {
	Spawn(job Job)
}

// TaskSpawner runs each job on its own goroutine and delivers exactly one
// OperationCompleted per job to the inbound channel.
type TaskSpawner struct {
	api    NodeAPI
	newDNS dns.Factory
	out    chan<- Action

	// ctx is cancelled only by Shutdown so goroutines blocked on delivery
	// can exit.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running atomic.Int64
}

// NewTaskSpawner returns a spawner that reports to out.
func NewTaskSpawner(api NodeAPI, newDNS dns.Factory, out chan<- Action) *TaskSpawner {
	if newDNS == nil {
		newDNS = dns.NewFactory()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskSpawner{
		api:    api,
		newDNS: newDNS,
		out:    out,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Spawn launches job.
func (s *TaskSpawner) Spawn(job Job) {
	if s.ctx.Err() != nil {
		logging.Get(logging.CategorySpawner).Warn("spawner stopped, dropping %s %s", job.Op.Kind, job.Op.ID)
		return
	}

	s.wg.Add(1)
	s.running.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Add(-1)

		start := time.Now()
		logging.SpawnerDebug("op %s: %s target=%s started", job.Op.ID, job.Op.Kind, job.Op.Target)
		payload, err := execute(s.ctx, s.api, s.newDNS, job)

		done := OperationCompleted{ID: job.Op.ID, Payload: payload, Err: err}
		if err != nil {
			done.Payload = nil
			logging.Spawner("op %s: %s failed after %s: %v", job.Op.ID, job.Op.Kind, time.Since(start), err)
		} else {
			logging.SpawnerDebug("op %s: %s finished in %s", job.Op.ID, job.Op.Kind, time.Since(start))
		}

		select {
		case s.out <- done:
		case <-s.ctx.Done():
			logging.Get(logging.CategorySpawner).Warn("op %s: completion dropped at shutdown", job.Op.ID)
		}
	}()
}

// Running is the number of jobs whose goroutine has not exited.
func (s *TaskSpawner) Running() int {
	return int(s.running.Load())
}

// Shutdown cancels in-flight requests and waits for every goroutine to exit.
// Completions not yet delivered are dropped.
func (s *TaskSpawner) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
