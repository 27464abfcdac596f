package console

import (
	"fmt"
	"time"

	"archon/internal/config"
	"archon/internal/logging"
	"archon/internal/models"
	"archon/internal/nodeapi"

	"github.com/google/uuid"
)

// Store persists the inventory. *config.Store implements it.
type Store interface {
	Load() (*config.Inventory, error)
	Save(inv *config.Inventory) error
}

// Recorder receives operation and notification counts. *metrics.Recorder
// implements it.
type Recorder interface {
	OperationStarted(kind string)
	OperationFinished(kind, outcome string, elapsed time.Duration)
	OperationRefused(kind string)
	Notified(level string)
}

type nopRecorder struct{}

func (nopRecorder) OperationStarted(string)                         {}
func (nopRecorder) OperationFinished(string, string, time.Duration) {}
func (nopRecorder) OperationRefused(string)                         {}
func (nopRecorder) Notified(string)                                 {}

// Engine applies actions to State. It is the only code that mutates State and
// must be driven from a single goroutine.
type Engine struct {
	state   *State
	store   Store
	spawner Spawner
	metrics Recorder

	now   func() time.Time
	newID func() uuid.UUID
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithIDs sets the operation id generator.
func WithIDs(newID func() uuid.UUID) EngineOption {
	return func(e *Engine) { e.newID = newID }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// NewEngine returns an engine over state. store may be nil, in which case
// saves are no-ops.
func NewEngine(state *State, store Store, spawner Spawner, opts ...EngineOption) *Engine {
	e := &Engine{
		state:   state,
		store:   store,
		spawner: spawner,
		metrics: nopRecorder{},
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the state the engine owns. Callers on other goroutines must
// not read it while Apply runs.
func (e *Engine) State() *State {
	return e.state
}

// Apply applies one action.
func (e *Engine) Apply(a Action) {
	s := e.state
	logging.UpdateDebug("apply %T", a)

	switch a := a.(type) {
	// Navigation
	case NavigateTo:
		s.navigateTo(a.Screen)
	case NavigateBack:
		s.navigateBack()

	// Sites
	case CreateSite:
		e.createSite(a.Site)
	case UpdateSite:
		e.updateSite(a.ID, a.Site)
	case DeleteSite:
		e.deleteSite(a.ID)

	// Domains
	case CreateDomain:
		if _, ok := s.Domain(a.Domain.ID); ok {
			e.notify(LevelWarning, "Domain %s already exists", a.Domain.ID)
			return
		}
		s.Domains = append(s.Domains, a.Domain.Clone())
		e.notify(LevelSuccess, "Domain created successfully")
		e.autoSave()
	case UpdateDomain:
		d, ok := s.Domain(a.ID)
		if !ok {
			e.notify(LevelWarning, "Domain not found")
			return
		}
		next := a.Domain.Clone()
		next.ID = d.ID
		next.CreatedAt = d.CreatedAt
		*d = next
		s.clampSelection()
		e.notify(LevelSuccess, "Domain updated successfully")
		e.autoSave()
	case DeleteDomain:
		if !s.removeDomain(a.ID) {
			e.notify(LevelWarning, "Domain not found")
			return
		}
		e.leaveScreenFor(a.ID)
		e.notify(LevelSuccess, "Domain deleted successfully")
		e.autoSave()

	// Nodes
	case AddNode:
		if _, ok := s.Node(a.Node.ID); ok {
			e.notify(LevelWarning, "Node %s already exists", a.Node.ID)
			return
		}
		s.Nodes = append(s.Nodes, a.Node.Clone())
		e.notify(LevelSuccess, "Node added successfully")
		e.autoSave()
	case UpdateNode:
		n, ok := s.Node(a.ID)
		if !ok {
			e.notify(LevelWarning, "Node not found")
			return
		}
		next := a.Node.Clone()
		next.ID = n.ID
		*n = next
		e.notify(LevelSuccess, "Node updated successfully")
		e.autoSave()
	case RemoveNode:
		if !s.removeNode(a.ID) {
			e.notify(LevelWarning, "Node not found")
			return
		}
		e.leaveScreenFor(a.ID)
		e.notify(LevelSuccess, "Node removed successfully")
		e.autoSave()

	// DNS records
	case AddDNSRecord:
		d, ok := s.Domain(a.DomainID)
		if !ok {
			e.notify(LevelWarning, "Domain not found")
			return
		}
		rec := a.Record
		if rec.TTL == 0 {
			rec.TTL = s.Settings.DefaultDNSTTL
		}
		d.DNSRecords = append(d.DNSRecords, rec)
		e.notify(LevelSuccess, "DNS record added")
		e.autoSave()
	case UpdateDNSRecord:
		d, ok := s.Domain(a.DomainID)
		if !ok || a.Index < 0 || a.Index >= len(d.DNSRecords) {
			e.notify(LevelWarning, "DNS record not found")
			return
		}
		rec := a.Record
		if rec.TTL == 0 {
			rec.TTL = s.Settings.DefaultDNSTTL
		}
		d.DNSRecords[a.Index] = rec
		e.notify(LevelSuccess, "DNS record updated")
		e.autoSave()
	case DeleteDNSRecord:
		d, ok := s.Domain(a.DomainID)
		if !ok || a.Index < 0 || a.Index >= len(d.DNSRecords) {
			e.notify(LevelWarning, "DNS record not found")
			return
		}
		d.DNSRecords = append(d.DNSRecords[:a.Index], d.DNSRecords[a.Index+1:]...)
		s.clampSelection()
		e.notify(LevelSuccess, "DNS record deleted")
		e.autoSave()

	// Cursors
	case SelectNext:
		s.step(1)
	case SelectPrevious:
		s.step(-1)
	case SelectItem:
		s.selectItem(a.Index)
	case NextFormField:
		s.stepFormField(1)
	case PreviousFormField:
		s.stepFormField(-1)

	// Background operations
	case DeploySite:
		e.deploy(a.ID, OpDeploySite)
	case StopSite:
		e.siteOp(a.ID, OpStopSite)
	case RestartSite:
		e.siteOp(a.ID, OpRestartSite)
	case RefreshSiteStatus:
		e.siteOp(a.ID, OpSiteStatus)
	case FetchLogs:
		e.siteOp(a.SiteID, OpFetchLogs)
	case FetchMetrics:
		e.siteOp(a.SiteID, OpFetchMetrics)
	case SyncDNSRecords:
		e.syncDNS(a.DomainID)
	case CheckNodeHealth:
		e.nodeOp(a.ID, OpNodeHealth)
	case CheckAllNodes:
		for _, n := range s.Nodes {
			e.nodeOp(n.ID, OpNodeHealth)
		}
	case FetchNodeStats:
		e.nodeOp(a.ID, OpNodeStats)
	case OperationCompleted:
		e.complete(a)

	// Notifications
	case ShowNotification:
		n := a.Notification
		if n.Timestamp.IsZero() {
			n.Timestamp = e.now()
		}
		s.Notifications.Push(n)
		e.metrics.Notified(string(n.Level))
	case DismissNotification:
		s.Notifications.Dismiss()

	// System
	case SaveConfig:
		if err := e.save(); err != nil {
			e.notify(LevelError, "Failed to save configuration: %v", err)
			return
		}
		e.notify(LevelSuccess, "Configuration saved")
	case LoadConfig:
		e.reload()
	case InventoryChanged:
		s.ExternalChange = true
		e.notify(LevelInfo, "Inventory file changed on disk; reload to pick up the changes")
	case Tick:
		if s.Settings.HealthCheckIntervalSeconds > 0 {
			e.Apply(CheckAllNodes{})
		}
	case Quit:
		if s.Settings.AutoSave {
			if err := e.save(); err != nil {
				logging.Get(logging.CategoryStore).Error("save on quit failed: %v", err)
				e.notify(LevelError, "Failed to save configuration: %v", err)
			}
		}
		s.ShouldQuit = true

	default:
		logging.Get(logging.CategoryUpdate).Warn("unhandled action %T", a)
	}
}

// -----------------------------------------------------------------------------
// Site lifecycle
// -----------------------------------------------------------------------------

func (e *Engine) createSite(site models.Site) {
	s := e.state
	if _, ok := s.Site(site.ID); ok {
		e.notify(LevelWarning, "Site %s already exists", site.ID)
		return
	}
	if _, ok := s.Domain(site.DomainID); !ok {
		e.notify(LevelWarning, "Cannot create site %s: domain not found", site.Name)
		return
	}
	if _, ok := s.Node(site.NodeID); !ok {
		e.notify(LevelWarning, "Cannot create site %s: node not found", site.Name)
		return
	}

	s.Sites = append(s.Sites, site.Clone())
	e.notify(LevelSuccess, "Site created successfully")
	e.deploy(site.ID, OpDeploySite)
	e.autoSave()
}

func (e *Engine) updateSite(id uuid.UUID, site models.Site) {
	s := e.state
	cur, ok := s.Site(id)
	if !ok {
		e.notify(LevelWarning, "Site not found")
		return
	}
	if busy, ok := s.Operations.Conflict(OpUpdateSite, id); ok {
		e.refuse(OpUpdateSite, busy)
		return
	}
	// The redeploy below must be able to start once the site is changed.
	if _, ok := s.Domain(site.DomainID); !ok {
		e.notify(LevelWarning, "Cannot update site %s: domain not found", cur.Name)
		return
	}
	if _, ok := s.Node(site.NodeID); !ok {
		e.notify(LevelWarning, "Cannot update site %s: node not found", cur.Name)
		return
	}

	next := site.Clone()
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = e.now()
	if next.Status == "" {
		next.Status = cur.Status
	}
	*cur = next
	e.notify(LevelSuccess, "Site updated successfully")
	e.deploy(id, OpUpdateSite)
	e.autoSave()
}

// deleteSite asks the node to remove the site. The site stays in the
// inventory until SiteDeleted is merged.
func (e *Engine) deleteSite(id uuid.UUID) {
	s := e.state
	site, ok := s.Site(id)
	if !ok {
		logging.UpdateDebug("delete of unknown site %s ignored", id)
		return
	}
	node, ok := s.Node(site.NodeID)
	if !ok {
		name := site.Name
		s.removeSite(id)
		e.leaveScreenFor(id)
		e.notify(LevelWarning, "Site %s removed from inventory; its node no longer exists", name)
		e.autoSave()
		return
	}
	e.start(OpDeleteSite, id, Job{Endpoint: nodeapi.EndpointFor(*node), Site: site.Clone()})
}

// deploy spawns a deploy or redeploy and marks the site Deploying.
func (e *Engine) deploy(id uuid.UUID, kind OpKind) {
	s := e.state
	site, ok := s.Site(id)
	if !ok {
		return
	}
	domain, ok := s.Domain(site.DomainID)
	if !ok {
		e.notify(LevelWarning, "Cannot deploy %s: domain not found", site.Name)
		return
	}
	node, ok := s.Node(site.NodeID)
	if !ok {
		e.notify(LevelWarning, "Cannot deploy %s: node not found", site.Name)
		return
	}

	job := Job{Endpoint: nodeapi.EndpointFor(*node), Site: site.Clone(), Domain: domain.Name}
	if e.start(kind, id, job) {
		site.Status = models.SiteDeploying
		site.UpdatedAt = e.now()
	}
}

// siteOp spawns an operation that only needs the site's node.
func (e *Engine) siteOp(id uuid.UUID, kind OpKind) {
	s := e.state
	site, ok := s.Site(id)
	if !ok {
		return
	}
	node, ok := s.Node(site.NodeID)
	if !ok {
		e.notify(LevelWarning, "%s of %s skipped: node not found", kind.Label(), site.Name)
		return
	}
	e.start(kind, id, Job{
		Endpoint: nodeapi.EndpointFor(*node),
		Site:     site.Clone(),
		LogLines: nodeapi.DefaultLogLines,
	})
}

func (e *Engine) nodeOp(id uuid.UUID, kind OpKind) {
	node, ok := e.state.Node(id)
	if !ok {
		return
	}
	e.start(kind, id, Job{Endpoint: nodeapi.EndpointFor(*node)})
}

// syncDNS is a no-op for domains whose DNS is managed by hand.
func (e *Engine) syncDNS(id uuid.UUID) {
	d, ok := e.state.Domain(id)
	if !ok {
		return
	}
	if d.DNSProvider.IsManual() {
		logging.UpdateDebug("dns sync skipped for manual domain %s", d.Name)
		return
	}
	e.start(OpSyncDNS, id, Job{Domain: d.Name, DNS: d.DNSProvider.Clone()})
}

// start registers the operation and then hands the job to the spawner. It
// refuses when a conflicting operation on the same target is in flight.
func (e *Engine) start(kind OpKind, target uuid.UUID, job Job) bool {
	if busy, ok := e.state.Operations.Conflict(kind, target); ok {
		e.refuse(kind, busy)
		return false
	}

	op := Operation{ID: e.newID(), Kind: kind, Target: target, Status: OpInProgress, StartedAt: e.now()}
	e.state.Operations.Register(op)
	e.metrics.OperationStarted(string(kind))
	logging.Update("op %s: %s %s registered", op.ID, kind, target)

	job.Op = op
	e.spawner.Spawn(job)
	return true
}

func (e *Engine) refuse(kind OpKind, busy Operation) {
	e.metrics.OperationRefused(string(kind))
	e.notify(LevelWarning, "%s of %s refused: %s already in progress",
		kind.Label(), e.targetName(busy), busy.Kind.Label())
}

// -----------------------------------------------------------------------------
// Persistence
// -----------------------------------------------------------------------------

func (e *Engine) save() error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(e.state.Inventory()); err != nil {
		return err
	}
	logging.Store("inventory saved (%d sites, %d domains, %d nodes)",
		len(e.state.Sites), len(e.state.Domains), len(e.state.Nodes))
	return nil
}

func (e *Engine) autoSave() {
	if !e.state.Settings.AutoSave {
		return
	}
	if err := e.save(); err != nil {
		logging.StoreError("auto-save failed: %v", err)
		e.notify(LevelError, "Failed to save configuration: %v", err)
	}
}

// reload replaces the inventory from disk. Operations, notifications and the
// current screen survive.
func (e *Engine) reload() {
	if e.store == nil {
		return
	}
	inv, err := e.store.Load()
	if err != nil {
		logging.StoreError("reload failed: %v", err)
		e.notify(LevelError, "Failed to reload configuration: %v", err)
		return
	}
	e.state.setInventory(inv)
	e.state.clampSelection()
	e.state.ExternalChange = false
	e.notify(LevelInfo, "Configuration reloaded")
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (e *Engine) notify(level Level, format string, args ...any) {
	e.state.Notifications.Push(Notification{
		Message:   fmt.Sprintf(format, args...),
		Level:     level,
		Timestamp: e.now(),
	})
	e.metrics.Notified(string(level))
}

// leaveScreenFor goes back when the current screen shows an entity that no
// longer exists.
func (e *Engine) leaveScreenFor(id uuid.UUID) {
	if e.state.Screen.ID == id {
		e.state.navigateBack()
	}
}

func (e *Engine) targetName(op Operation) string {
	s := e.state
	switch op.Kind {
	case OpNodeHealth, OpNodeStats:
		if n, ok := s.Node(op.Target); ok {
			return n.Name
		}
	case OpSyncDNS:
		if d, ok := s.Domain(op.Target); ok {
			return d.Name
		}
	default:
		if site, ok := s.Site(op.Target); ok {
			return site.Name
		}
	}
	return op.Target.String()[:8]
}
