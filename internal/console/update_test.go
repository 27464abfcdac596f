package console

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"archon/internal/config"
	"archon/internal/models"
	"archon/internal/nodeapi"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SITE LIFECYCLE
// =============================================================================

func TestCreateSiteDeploysAndMergesOnce(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")

	h.engine.Apply(CreateSite{Site: site})

	require.Len(t, h.spawner.jobs, 1)
	job := h.spawner.jobs[0]
	assert.Equal(t, OpDeploySite, job.Op.Kind)
	assert.Equal(t, site.ID, job.Op.Target)
	assert.Equal(t, "example.com", job.Domain)
	assert.Equal(t, nodeapi.Endpoint{BaseURL: "http://edge-1:8080", Token: "node-key"}, job.Endpoint)

	got, ok := h.state.Site(site.ID)
	require.True(t, ok)
	assert.Equal(t, models.SiteDeploying, got.Status)
	assert.Equal(t, 1, countLevel(&h.state.Notifications, LevelSuccess))

	h.engine.Apply(OperationCompleted{ID: job.Op.ID, Payload: SiteDeployed{SiteID: site.ID}})

	got, _ = h.state.Site(site.ID)
	assert.Equal(t, models.SiteRunning, got.Status)
	assert.Equal(t, 2, countLevel(&h.state.Notifications, LevelSuccess), "merge adds exactly one success")
	latest, _ := h.state.Notifications.Latest()
	assert.Equal(t, "Site deployed successfully", latest.Message)

	op, _ := h.state.Operations.Get(job.Op.ID)
	assert.Equal(t, OpCompleted, op.Status)
}

func TestCreateSiteRejectsDuplicatesAndDanglingRefs(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.engine.Apply(CreateSite{Site: site})

	h.engine.Apply(CreateSite{Site: site})
	assert.Len(t, h.state.Sites, 1)
	latest, _ := h.state.Notifications.Latest()
	assert.Equal(t, LevelWarning, latest.Level)

	orphan := f.site("orphan")
	orphan.DomainID = uuid.New()
	h.engine.Apply(CreateSite{Site: orphan})
	assert.Len(t, h.state.Sites, 1)
	assert.Len(t, h.spawner.jobs, 1)
}

func TestDeleteSiteRemovesOnlyOnSuccess(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.deployed(t, site)

	h.engine.Apply(DeleteSite{ID: site.ID})
	del := h.spawner.last()
	require.Equal(t, OpDeleteSite, del.Op.Kind)
	_, ok := h.state.Site(site.ID)
	assert.True(t, ok, "site stays until the node confirms")

	h.engine.Apply(OperationCompleted{ID: del.Op.ID, Err: errors.New("server error: 500 - boom")})
	_, ok = h.state.Site(site.ID)
	assert.True(t, ok)
	latest, _ := h.state.Notifications.Latest()
	assert.Equal(t, LevelError, latest.Level)
	assert.Contains(t, latest.Message, "boom")

	h.engine.Apply(DeleteSite{ID: site.ID})
	del = h.spawner.last()
	h.engine.Apply(OperationCompleted{ID: del.Op.ID, Payload: SiteDeleted{SiteID: site.ID}})
	_, ok = h.state.Site(site.ID)
	assert.False(t, ok)
}

func TestDeleteUnknownSiteIsSilent(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	h.deployed(t, f.site("blog"))

	sites := append([]models.Site(nil), h.state.Sites...)
	jobs := len(h.spawner.jobs)
	notes := h.state.Notifications.Len()
	saves := h.store.saves

	h.engine.Apply(DeleteSite{ID: uuid.New()})

	assert.Len(t, h.spawner.jobs, jobs)
	assert.Equal(t, notes, h.state.Notifications.Len())
	assert.Equal(t, saves, h.store.saves)
	assert.Empty(t, cmp.Diff(sites, h.state.Sites))
}

func TestDeleteSiteWithMissingNodeRemovesLocally(t *testing.T) {
	inv, f := newFixtures()
	site := f.site("stray")
	site.NodeID = uuid.New()
	inv.Sites = append(inv.Sites, site)
	h := newHarness(t, inv)

	h.engine.Apply(DeleteSite{ID: site.ID})
	assert.Empty(t, h.spawner.jobs)
	assert.Empty(t, h.state.Sites)
}

func TestFailedDeployCompensates(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.engine.Apply(CreateSite{Site: site})
	job := h.spawner.last()

	h.engine.Apply(OperationCompleted{ID: job.Op.ID, Err: nodeapi.ErrTimeout})

	got, _ := h.state.Site(site.ID)
	assert.Equal(t, models.SiteFailed, got.Status)
	op, _ := h.state.Operations.Get(job.Op.ID)
	assert.Equal(t, OpFailed, op.Status)
	assert.Equal(t, nodeapi.ErrTimeout.Error(), op.Reason)
	assert.Equal(t, 1, countLevel(&h.state.Notifications, LevelError))
}

func TestFailedStopLeavesStatus(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.deployed(t, site)

	h.engine.Apply(StopSite{ID: site.ID})
	stop := h.spawner.last()
	h.engine.Apply(OperationCompleted{ID: stop.Op.ID, Err: errors.New("network error")})

	got, _ := h.state.Site(site.ID)
	assert.Equal(t, models.SiteRunning, got.Status)
}

func TestUpdateSiteRedeploysWithPut(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.deployed(t, site)

	changed := site.Clone()
	changed.ID = uuid.New()
	changed.DockerImage = "ghcr.io/acme/blog:2"
	h.engine.Apply(UpdateSite{ID: site.ID, Site: changed})

	require.Len(t, h.state.Sites, 1)
	got := h.state.Sites[0]
	assert.Equal(t, site.ID, got.ID, "id is preserved")
	assert.Equal(t, "ghcr.io/acme/blog:2", got.DockerImage)
	assert.Equal(t, models.SiteDeploying, got.Status)

	job := h.spawner.last()
	assert.Equal(t, OpUpdateSite, job.Op.Kind)
	assert.Equal(t, "ghcr.io/acme/blog:2", job.Site.DockerImage)

	h.engine.Apply(OperationCompleted{ID: job.Op.ID, Payload: SiteUpdated{SiteID: site.ID}})
	assert.Equal(t, models.SiteRunning, h.state.Sites[0].Status)
}

func TestUpdateSiteNotifiesOnce(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.deployed(t, site)
	spawned := len(h.spawner.jobs)

	dangling := site.Clone()
	dangling.DomainID = uuid.New()
	dangling.DockerImage = "ghcr.io/acme/blog:2"
	before := h.state.Notifications.Len()
	h.engine.Apply(UpdateSite{ID: site.ID, Site: dangling})

	assert.Equal(t, before+1, h.state.Notifications.Len())
	last, _ := h.state.Notifications.Latest()
	assert.Equal(t, LevelWarning, last.Level)
	assert.Contains(t, last.Message, "domain not found")
	assert.Equal(t, "ghcr.io/acme/blog:1", h.state.Sites[0].DockerImage)
	assert.Equal(t, models.SiteRunning, h.state.Sites[0].Status)
	assert.Len(t, h.spawner.jobs, spawned)

	moved := site.Clone()
	moved.NodeID = uuid.New()
	h.engine.Apply(UpdateSite{ID: site.ID, Site: moved})
	last, _ = h.state.Notifications.Latest()
	assert.Contains(t, last.Message, "node not found")
	assert.Len(t, h.spawner.jobs, spawned)

	changed := site.Clone()
	changed.DockerImage = "ghcr.io/acme/blog:3"
	before = h.state.Notifications.Len()
	h.engine.Apply(UpdateSite{ID: site.ID, Site: changed})
	assert.Equal(t, before+1, h.state.Notifications.Len())
	last, _ = h.state.Notifications.Latest()
	assert.Equal(t, LevelSuccess, last.Level)
	assert.Len(t, h.spawner.jobs, spawned+1)
}

func TestStopRestartAndStatusMerges(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.deployed(t, site)

	h.engine.Apply(StopSite{ID: site.ID})
	h.engine.Apply(OperationCompleted{ID: h.spawner.last().Op.ID, Payload: SiteStopped{SiteID: site.ID}})
	assert.Equal(t, models.SiteStopped, h.state.Sites[0].Status)

	h.engine.Apply(RestartSite{ID: site.ID})
	h.engine.Apply(OperationCompleted{ID: h.spawner.last().Op.ID, Payload: SiteRestarted{SiteID: site.ID}})
	assert.Equal(t, models.SiteRunning, h.state.Sites[0].Status)

	h.engine.Apply(RefreshSiteStatus{ID: site.ID})
	h.engine.Apply(OperationCompleted{ID: h.spawner.last().Op.ID, Payload: SiteStatusFetched{SiteID: site.ID, Status: models.SiteFailed}})
	assert.Equal(t, models.SiteFailed, h.state.Sites[0].Status)

	h.engine.Apply(RefreshSiteStatus{ID: site.ID})
	h.engine.Apply(OperationCompleted{ID: h.spawner.last().Op.ID, Payload: SiteStatusFetched{SiteID: site.ID, Status: "Exploded"}})
	assert.Equal(t, models.SiteFailed, h.state.Sites[0].Status)
}

// =============================================================================
// IN-FLIGHT GUARD
// =============================================================================

func TestMutatingSiteOperationsExcludeEachOther(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.engine.Apply(CreateSite{Site: site})
	require.Len(t, h.spawner.jobs, 1)

	h.engine.Apply(DeleteSite{ID: site.ID})
	h.engine.Apply(DeploySite{ID: site.ID})
	assert.Len(t, h.spawner.jobs, 1)
	assert.Equal(t, 2, countLevel(&h.state.Notifications, LevelWarning))

	// Reads are not blocked by a mutation.
	h.engine.Apply(FetchLogs{SiteID: site.ID})
	assert.Len(t, h.spawner.jobs, 2)

	// Duplicate reads are.
	h.engine.Apply(FetchLogs{SiteID: site.ID})
	assert.Len(t, h.spawner.jobs, 2)
}

func TestUpdateSiteRefusedWhileBusy(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.engine.Apply(CreateSite{Site: site})

	changed := site.Clone()
	changed.Name = "renamed"
	h.engine.Apply(UpdateSite{ID: site.ID, Site: changed})

	assert.Equal(t, "blog", h.state.Sites[0].Name)
	latest, _ := h.state.Notifications.Latest()
	assert.Equal(t, LevelWarning, latest.Level)
	assert.Contains(t, latest.Message, "already in progress")
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestDuplicateCompletionIsIgnored(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.engine.Apply(CreateSite{Site: site})
	job := h.spawner.last()
	done := OperationCompleted{ID: job.Op.ID, Payload: SiteDeployed{SiteID: site.ID}}
	h.engine.Apply(done)

	ops := h.state.Operations.All()
	sites := append([]models.Site(nil), h.state.Sites...)
	notes := h.state.Notifications.Items()

	h.engine.Apply(done)
	h.engine.Apply(OperationCompleted{ID: job.Op.ID, Err: errors.New("late failure")})

	assert.Empty(t, cmp.Diff(ops, h.state.Operations.All()))
	assert.Empty(t, cmp.Diff(sites, h.state.Sites))
	assert.Empty(t, cmp.Diff(notes, h.state.Notifications.Items()))
}

func TestUnknownCompletionIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Apply(OperationCompleted{ID: uuid.New(), Payload: SiteDeployed{SiteID: uuid.New()}})
	assert.Zero(t, h.state.Operations.Len())
	assert.Zero(t, h.state.Notifications.Len())
}

func TestCompletionWithoutPayloadFails(t *testing.T) {
	inv, _ := newFixtures()
	h := newHarness(t, inv)
	h.engine.Apply(CheckAllNodes{})
	job := h.spawner.last()

	h.engine.Apply(OperationCompleted{ID: job.Op.ID})
	op, _ := h.state.Operations.Get(job.Op.ID)
	assert.Equal(t, OpFailed, op.Status)
}

func TestCompletionWithUnknownStatusFails(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.deployed(t, site)

	h.engine.Apply(CheckNodeHealth{ID: f.node.ID})
	health := h.spawner.last()
	h.engine.Apply(OperationCompleted{ID: health.Op.ID, Payload: NodeHealth{NodeID: f.node.ID, Status: "healthy"}})

	op, _ := h.state.Operations.Get(health.Op.ID)
	assert.Equal(t, OpFailed, op.Status)
	assert.Contains(t, op.Reason, "healthy")
	n, _ := h.state.Node(f.node.ID)
	assert.Equal(t, f.node.Status, n.Status)
	assert.Nil(t, n.LastHealthCheck)

	errorsBefore := countLevel(&h.state.Notifications, LevelError)
	h.engine.Apply(RefreshSiteStatus{ID: site.ID})
	refresh := h.spawner.last()
	h.engine.Apply(OperationCompleted{ID: refresh.Op.ID, Payload: SiteStatusFetched{SiteID: site.ID, Status: ""}})

	op, _ = h.state.Operations.Get(refresh.Op.ID)
	assert.Equal(t, OpFailed, op.Status)
	assert.Equal(t, models.SiteRunning, h.state.Sites[0].Status)
	assert.Equal(t, errorsBefore+1, countLevel(&h.state.Notifications, LevelError))
}

// =============================================================================
// DNS
// =============================================================================

func TestSyncDNSOnManualDomainShortCircuits(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)

	h.engine.Apply(SyncDNSRecords{DomainID: f.manual.ID})

	assert.Empty(t, h.spawner.jobs)
	assert.Zero(t, h.state.Operations.Len())
	assert.Zero(t, h.state.Notifications.Len())
}

func TestSyncDNSReplacesRecords(t *testing.T) {
	inv, f := newFixtures()
	inv.Domains[0].DNSRecords = []models.DNSRecord{models.NewDNSRecord(models.RecordTXT, "stale", "x", 60)}
	h := newHarness(t, inv)

	h.engine.Apply(SyncDNSRecords{DomainID: f.domain.ID})
	job := h.spawner.last()
	assert.Equal(t, models.ProviderCloudflare, job.DNS.Kind)
	assert.Equal(t, "example.com", job.Domain)

	fresh := []models.DNSRecord{{ID: "r1", Type: models.RecordA, Name: "example.com", Value: "203.0.113.10", TTL: 300}}
	h.engine.Apply(OperationCompleted{ID: job.Op.ID, Payload: DNSSynced{DomainID: f.domain.ID, Records: fresh}})

	d, _ := h.state.Domain(f.domain.ID)
	assert.Equal(t, fresh, d.DNSRecords)
}

func TestDNSRecordCRUD(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)

	h.engine.Apply(AddDNSRecord{DomainID: f.domain.ID, Record: models.DNSRecord{Type: models.RecordA, Name: "@", Value: "203.0.113.10"}})
	d, _ := h.state.Domain(f.domain.ID)
	require.Len(t, d.DNSRecords, 1)
	assert.Equal(t, uint32(300), d.DNSRecords[0].TTL, "default ttl applied")

	h.engine.Apply(UpdateDNSRecord{DomainID: f.domain.ID, Index: 0, Record: models.DNSRecord{Type: models.RecordA, Name: "@", Value: "198.51.100.1", TTL: 60}})
	d, _ = h.state.Domain(f.domain.ID)
	assert.Equal(t, "198.51.100.1", d.DNSRecords[0].Value)
	assert.Equal(t, uint32(60), d.DNSRecords[0].TTL)

	h.engine.Apply(UpdateDNSRecord{DomainID: f.domain.ID, Index: 0, Record: models.DNSRecord{Type: models.RecordA, Name: "@", Value: "198.51.100.2"}})
	d, _ = h.state.Domain(f.domain.ID)
	assert.Equal(t, uint32(300), d.DNSRecords[0].TTL, "default ttl applied on update")

	h.engine.Apply(DeleteDNSRecord{DomainID: f.domain.ID, Index: 4})
	latest, _ := h.state.Notifications.Latest()
	assert.Equal(t, LevelWarning, latest.Level)

	h.engine.Apply(DeleteDNSRecord{DomainID: f.domain.ID, Index: 0})
	d, _ = h.state.Domain(f.domain.ID)
	assert.Empty(t, d.DNSRecords)
	assert.Equal(t, 5, h.state.Notifications.Len())
}

// =============================================================================
// NODES
// =============================================================================

func TestNodeHealthAndStatsMerge(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)

	h.engine.Apply(CheckNodeHealth{ID: f.node.ID})
	docker := &models.DockerInfo{Version: "27.1", ContainersRunning: 3, ImagesCount: 9}
	h.engine.Apply(OperationCompleted{ID: h.spawner.last().Op.ID, Payload: NodeHealth{NodeID: f.node.ID, Status: models.NodeOnline, Docker: docker}})

	n, _ := h.state.Node(f.node.ID)
	assert.Equal(t, models.NodeOnline, n.Status)
	require.NotNil(t, n.LastHealthCheck)
	assert.Equal(t, testClock, *n.LastHealthCheck)
	assert.Nil(t, n.TraefikInfo)

	h.engine.Apply(FetchNodeStats{ID: f.node.ID})
	h.engine.Apply(OperationCompleted{ID: h.spawner.last().Op.ID, Payload: NodeStats{
		NodeID:  f.node.ID,
		Docker:  models.DockerInfo{Version: "27.2"},
		Traefik: models.TraefikInfo{Version: "3.1", RoutersCount: 4},
	}})
	n, _ = h.state.Node(f.node.ID)
	assert.Equal(t, "27.2", n.DockerInfo.Version)
	assert.Equal(t, uint32(4), n.TraefikInfo.RoutersCount)
	assert.Equal(t, models.NodeOnline, n.Status)
}

func TestTickChecksAllNodes(t *testing.T) {
	inv, _ := newFixtures()
	inv.Nodes = append(inv.Nodes, models.NewNode("edge-2", "http://edge-2:8080", "k", "203.0.113.11"))
	h := newHarness(t, inv)

	h.engine.Apply(Tick{})
	assert.Len(t, h.spawner.jobs, 2)

	// Still in flight: the next tick is deduplicated.
	h.engine.Apply(Tick{})
	assert.Len(t, h.spawner.jobs, 2)

	h.state.Settings.HealthCheckIntervalSeconds = 0
	for _, job := range h.spawner.jobs {
		h.engine.Apply(OperationCompleted{ID: job.Op.ID, Payload: NodeHealth{NodeID: job.Op.Target, Status: models.NodeOffline}})
	}
	h.engine.Apply(Tick{})
	assert.Len(t, h.spawner.jobs, 2)
}

func TestLogsAndMetricsStayTransient(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	site := f.site("blog")
	h.deployed(t, site)

	h.engine.Apply(FetchLogs{SiteID: site.ID})
	job := h.spawner.last()
	assert.Equal(t, nodeapi.DefaultLogLines, job.LogLines)
	h.engine.Apply(OperationCompleted{ID: job.Op.ID, Payload: SiteLogs{SiteID: site.ID, Lines: []string{"GET / 200"}}})

	h.engine.Apply(FetchMetrics{SiteID: site.ID})
	h.engine.Apply(OperationCompleted{ID: h.spawner.last().Op.ID, Payload: SiteMetrics{SiteID: site.ID, Data: models.ContainerMetrics{CPUUsagePercent: 3.5}}})

	m := h.state.Monitor[site.ID]
	require.NotNil(t, m)
	assert.Equal(t, []string{"GET / 200"}, m.Logs)
	assert.InDelta(t, 3.5, m.Metrics.CPUUsagePercent, 0.001)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestAutoSaveFollowsSetting(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)

	h.engine.Apply(CreateDomain{Domain: models.NewDomain("new.example.com", models.Manual())})
	assert.Equal(t, 1, h.store.saves)

	h.state.Settings.AutoSave = false
	h.engine.Apply(RemoveNode{ID: f.node.ID})
	assert.Equal(t, 1, h.store.saves)

	h.engine.Apply(Quit{})
	assert.True(t, h.state.ShouldQuit)
	assert.Equal(t, 1, h.store.saves)
}

func TestQuitSavesWhenAutoSaveOn(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Apply(Quit{})
	assert.True(t, h.state.ShouldQuit)
	assert.Equal(t, 1, h.store.saves)
}

func TestSaveFailureBecomesNotification(t *testing.T) {
	h := newHarness(t, nil)
	h.store.saveErr = config.ErrConfig

	h.engine.Apply(SaveConfig{})
	latest, _ := h.state.Notifications.Latest()
	assert.Equal(t, LevelError, latest.Level)
	assert.Contains(t, latest.Message, "config error")

	h.engine.Apply(AddNode{Node: models.NewNode("n", "http://n", "k", "")})
	assert.Len(t, h.state.Nodes, 1, "in-memory state kept")
}

func TestReloadKeepsOperationsAndScreen(t *testing.T) {
	inv, f := newFixtures()
	inv.Sites = append(inv.Sites, f.site("a"), f.site("b"))
	h := newHarness(t, inv)
	h.engine.Apply(NavigateTo{Screen: Screen{Kind: ScreenSitesList}})
	h.engine.Apply(SelectItem{Index: 1})
	h.engine.Apply(DeploySite{ID: inv.Sites[1].ID})
	h.engine.Apply(InventoryChanged{Path: "/tmp/archon.yaml"})
	require.True(t, h.state.ExternalChange)

	onDisk, _ := newFixtures()
	onDisk.Sites = append(onDisk.Sites, f.site("only"))
	h.store.inv = onDisk
	h.engine.Apply(LoadConfig{})

	assert.Len(t, h.state.Sites, 1)
	assert.Equal(t, 0, h.state.Selection.Sites, "cursor clamped")
	assert.Equal(t, ScreenSitesList, h.state.Screen.Kind)
	assert.Len(t, h.state.Operations.InFlight(), 1)
	assert.False(t, h.state.ExternalChange)
	latest, _ := h.state.Notifications.Latest()
	assert.Equal(t, "Configuration reloaded", latest.Message)
}

func TestReloadFailureKeepsState(t *testing.T) {
	inv, _ := newFixtures()
	h := newHarness(t, inv)
	h.store.loadErr = config.ErrConfig

	h.engine.Apply(LoadConfig{})
	assert.Len(t, h.state.Domains, 2)
	latest, _ := h.state.Notifications.Latest()
	assert.Equal(t, LevelError, latest.Level)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	inv, f := newFixtures()
	site := f.site("blog")
	site.EnvironmentVars["MODE"] = "production"
	site.ConfigFiles = []models.ConfigFile{{Name: "nginx.conf", Content: "server {}", ContainerPath: "/etc/nginx/nginx.conf"}}
	inv.Sites = append(inv.Sites, site)
	inv.Domains[0].DNSRecords = []models.DNSRecord{{ID: "r1", Type: models.RecordMX, Name: "@", Value: "mx.example.com", TTL: 3600}}

	store := config.NewStore(t.TempDir() + "/archon.yaml")
	state := NewState(inv)
	engine := NewEngine(state, store, &recordingSpawner{t: t, state: state})
	engine.Apply(SaveConfig{})

	loaded, err := store.Load()
	require.NoError(t, err)
	opts := cmpopts.EquateEmpty()
	assert.Empty(t, cmp.Diff(state.Sites, loaded.Sites, opts))
	assert.Empty(t, cmp.Diff(state.Domains, loaded.Domains, opts))
	assert.Empty(t, cmp.Diff(state.Nodes, loaded.Nodes, opts))
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestCRUDNeverDuplicatesIDs(t *testing.T) {
	inv, f := newFixtures()
	h := newHarness(t, inv)
	rng := rand.New(rand.NewSource(7))

	siteIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	domainIDs := []uuid.UUID{f.domain.ID, uuid.New(), uuid.New()}
	nodeIDs := []uuid.UUID{f.node.ID, uuid.New(), uuid.New()}
	pick := func(ids []uuid.UUID) uuid.UUID { return ids[rng.Intn(len(ids))] }

	for step := 0; step < 500; step++ {
		switch rng.Intn(9) {
		case 0:
			site := f.site("s")
			site.ID = pick(siteIDs)
			site.DomainID = pick(domainIDs)
			site.NodeID = pick(nodeIDs)
			h.engine.Apply(CreateSite{Site: site})
		case 1:
			d := models.NewDomain("d.example.com", models.Manual())
			d.ID = pick(domainIDs)
			h.engine.Apply(CreateDomain{Domain: d})
		case 2:
			n := models.NewNode("n", "http://n", "k", "")
			n.ID = pick(nodeIDs)
			h.engine.Apply(AddNode{Node: n})
		case 3:
			h.engine.Apply(UpdateSite{ID: pick(siteIDs), Site: f.site("renamed")})
		case 4:
			h.engine.Apply(UpdateDomain{ID: pick(domainIDs), Domain: models.NewDomain("x.example.com", models.Manual())})
		case 5:
			h.engine.Apply(UpdateNode{ID: pick(nodeIDs), Node: models.NewNode("x", "http://x", "k", "")})
		case 6:
			h.engine.Apply(DeleteDomain{ID: pick(domainIDs)})
		case 7:
			h.engine.Apply(RemoveNode{ID: pick(nodeIDs)})
		case 8:
			h.engine.Apply(DeleteSite{ID: pick(siteIDs)})
		}

		// Resolve everything in flight so deletes can land.
		for _, op := range h.state.Operations.InFlight() {
			var p Payload
			switch op.Kind {
			case OpDeleteSite:
				p = SiteDeleted{SiteID: op.Target}
			case OpUpdateSite:
				p = SiteUpdated{SiteID: op.Target}
			default:
				p = SiteDeployed{SiteID: op.Target}
			}
			h.engine.Apply(OperationCompleted{ID: op.ID, Payload: p})
		}

		assertUnique(t, "sites", len(h.state.Sites), func(i int) uuid.UUID { return h.state.Sites[i].ID })
		assertUnique(t, "domains", len(h.state.Domains), func(i int) uuid.UUID { return h.state.Domains[i].ID })
		assertUnique(t, "nodes", len(h.state.Nodes), func(i int) uuid.UUID { return h.state.Nodes[i].ID })
		assert.LessOrEqual(t, h.state.Notifications.Len(), MaxNotifications)
	}
}

func assertUnique(t *testing.T, what string, n int, id func(int) uuid.UUID) {
	t.Helper()
	seen := make(map[uuid.UUID]bool, n)
	for i := 0; i < n; i++ {
		if seen[id(i)] {
			t.Fatalf("%s: duplicate id %s", what, id(i))
		}
		seen[id(i)] = true
	}
}

// =============================================================================
// METRICS HOOK
// =============================================================================

type countingRecorder struct {
	started, refused, notified int
	outcomes                   map[string]int
}

func (c *countingRecorder) OperationStarted(string) { c.started++ }
func (c *countingRecorder) OperationFinished(_, outcome string, _ time.Duration) {
	c.outcomes[outcome]++
}
func (c *countingRecorder) OperationRefused(string) { c.refused++ }
func (c *countingRecorder) Notified(string)         { c.notified++ }

func TestRecorderSeesOperations(t *testing.T) {
	inv, f := newFixtures()
	state := NewState(inv)
	rec := &countingRecorder{outcomes: map[string]int{}}
	sp := &recordingSpawner{t: t, state: state}
	engine := NewEngine(state, nil, sp, WithRecorder(rec))

	engine.Apply(CheckNodeHealth{ID: f.node.ID})
	engine.Apply(CheckNodeHealth{ID: f.node.ID})
	engine.Apply(OperationCompleted{ID: sp.last().Op.ID, Err: errors.New("down")})

	assert.Equal(t, 1, rec.started)
	assert.Equal(t, 1, rec.refused)
	assert.Equal(t, 1, rec.outcomes["failure"])
	assert.Equal(t, 2, rec.notified)
}
