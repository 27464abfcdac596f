package console

import (
	"fmt"
	"testing"
	"time"

	"archon/internal/config"
	"archon/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var testClock = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// recordingSpawner keeps jobs instead of running them and checks that every
// job's operation was registered before the spawn.
type recordingSpawner struct {
	t     *testing.T
	state *State
	jobs  []Job
}

func (r *recordingSpawner) Spawn(job Job) {
	op, ok := r.state.Operations.Get(job.Op.ID)
	assert.True(r.t, ok, "operation %s spawned before registration", job.Op.ID)
	assert.Equal(r.t, OpInProgress, op.Status)
	r.jobs = append(r.jobs, job)
}

func (r *recordingSpawner) last() Job {
	r.t.Helper()
	if len(r.jobs) == 0 {
		r.t.Fatal("no job spawned")
	}
	return r.jobs[len(r.jobs)-1]
}

type memStore struct {
	inv     *config.Inventory
	saves   int
	saveErr error
	loadErr error
}

func (m *memStore) Load() (*config.Inventory, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.inv == nil {
		return config.DefaultInventory(), nil
	}
	return m.inv, nil
}

func (m *memStore) Save(inv *config.Inventory) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.inv = inv
	return nil
}

type harness struct {
	engine  *Engine
	state   *State
	spawner *recordingSpawner
	store   *memStore
}

func newHarness(t *testing.T, inv *config.Inventory) *harness {
	t.Helper()
	state := NewState(inv)
	sp := &recordingSpawner{t: t, state: state}
	store := &memStore{}
	n := 0
	ids := func() uuid.UUID {
		n++
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("op-%d", n)))
	}
	engine := NewEngine(state, store, sp,
		WithClock(func() time.Time { return testClock }),
		WithIDs(ids))
	return &harness{engine: engine, state: state, spawner: sp, store: store}
}

type fixtures struct {
	domain models.Domain
	manual models.Domain
	node   models.Node
}

func newFixtures() (*config.Inventory, fixtures) {
	f := fixtures{
		domain: models.NewDomain("example.com", models.Cloudflare("cf-token", "zone-1")),
		manual: models.NewDomain("legacy.example.org", models.Manual()),
		node:   models.NewNode("edge-1", "http://edge-1:8080", "node-key", "203.0.113.10"),
	}
	inv := config.DefaultInventory()
	inv.Domains = append(inv.Domains, f.domain, f.manual)
	inv.Nodes = append(inv.Nodes, f.node)
	return inv, f
}

func (f fixtures) site(name string) models.Site {
	return models.NewSite(name, f.domain.ID, f.node.ID, "ghcr.io/acme/"+name+":1", 8080)
}

// deployed creates a site and completes its initial deploy.
func (h *harness) deployed(t *testing.T, site models.Site) {
	t.Helper()
	h.engine.Apply(CreateSite{Site: site})
	job := h.spawner.last()
	h.engine.Apply(OperationCompleted{ID: job.Op.ID, Payload: SiteDeployed{SiteID: site.ID}})
}

func countLevel(q *Notifications, level Level) int {
	n := 0
	for _, item := range q.Items() {
		if item.Level == level {
			n++
		}
	}
	return n
}
