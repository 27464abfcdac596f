package ui

import (
	"math"
	"testing"
	"time"

	"archon/internal/config"
	"archon/internal/console"
	"archon/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobSpawner struct {
	jobs []console.Job
}

func (s *jobSpawner) Spawn(j console.Job) {
	s.jobs = append(s.jobs, j)
}

type fixture struct {
	engine  *console.Engine
	spawner *jobSpawner
	domain  models.Domain
	node    models.Node
	site    models.Site
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	inv := config.DefaultInventory()
	d := models.NewDomain("example.com", models.Manual())
	n := models.NewNode("edge-1", "http://edge-1:8080", "node-key", "10.0.0.5")
	site := models.NewSite("blog", d.ID, n.ID, "ghcr.io/acme/blog:1", 8080)
	inv.Domains = append(inv.Domains, d)
	inv.Nodes = append(inv.Nodes, n)
	inv.Sites = append(inv.Sites, site)

	sp := &jobSpawner{}
	engine := console.NewEngine(console.NewState(inv), nil, sp)
	return &fixture{engine: engine, spawner: sp, domain: d, node: n, site: site}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func latest(t *testing.T, s *console.State) console.Notification {
	t.Helper()
	n, ok := s.Notifications.Latest()
	require.True(t, ok, "no notification")
	return n
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	m := New(f.engine, nil)
	s := f.engine.State()

	m = press(m, "1")
	assert.Equal(t, console.ScreenSitesList, s.Screen.Kind)

	m = press(m, "enter")
	assert.Equal(t, console.Screen{Kind: console.ScreenSiteDetail, ID: f.site.ID}, s.Screen)
	assert.Contains(t, m.View(), "ghcr.io/acme/blog:1")

	m = press(m, "esc")
	assert.Equal(t, console.ScreenSitesList, s.Screen.Kind)

	press(m, "?")
	assert.Equal(t, console.ScreenHelp, s.Screen.Kind)
}

func TestDeployKeySpawnsOperation(t *testing.T) {
	f := newFixture(t)
	m := press(New(f.engine, nil), "1", "p")

	require.Len(t, f.spawner.jobs, 1)
	assert.Equal(t, console.OpDeploySite, f.spawner.jobs[0].Op.Kind)
	assert.Equal(t, f.site.ID, f.spawner.jobs[0].Op.Target)

	site, ok := f.engine.State().Site(f.site.ID)
	require.True(t, ok)
	assert.Equal(t, models.SiteDeploying, site.Status)
	assert.Contains(t, m.View(), "1 running")
}

func TestAddNodeThroughForm(t *testing.T) {
	f := newFixture(t)
	s := f.engine.State()
	m := press(New(f.engine, nil), "3", "n")
	require.NotNil(t, m.form)
	require.Equal(t, console.ScreenNodeCreate, s.Screen.Kind)

	m = press(m, "edge-2", "tab", "http://edge-2:8080", "enter")

	require.Len(t, s.Nodes, 2)
	assert.Equal(t, "edge-2", s.Nodes[1].Name)
	assert.Equal(t, "http://edge-2:8080", s.Nodes[1].APIEndpoint)
	assert.Equal(t, models.NodeUnknown, s.Nodes[1].Status)
	assert.Equal(t, console.ScreenNodesList, s.Screen.Kind)
	assert.Nil(t, m.form)
	assert.Equal(t, "Node added successfully", latest(t, s).Message)
}

func TestFormFieldCursorFollowsTab(t *testing.T) {
	f := newFixture(t)
	s := f.engine.State()
	m := press(New(f.engine, nil), "3", "n", "tab", "tab")
	assert.Equal(t, 2, s.Selection.FormField)

	m = press(m, "shift+tab", "shift+tab", "shift+tab")
	assert.Equal(t, console.NodeFormFields-1, s.Selection.FormField)
	assert.True(t, m.form.inputs[console.NodeFormFields-1].Focused())
}

func TestInvalidFormWarnsAndStays(t *testing.T) {
	f := newFixture(t)
	s := f.engine.State()
	m := press(New(f.engine, nil), "1", "n", "enter")

	assert.Equal(t, console.ScreenSiteCreate, s.Screen.Kind)
	n := latest(t, s)
	assert.Equal(t, console.LevelWarning, n.Level)
	assert.Equal(t, "name and image are required", n.Message)
	assert.NotNil(t, m.form)
	assert.Len(t, s.Sites, 1)
}

func TestCreateSiteFromFormDeploys(t *testing.T) {
	f := newFixture(t)
	s := f.engine.State()
	// Domain and node are prefilled with the first of each.
	m := press(New(f.engine, nil), "1", "n", "shop", "tab", "ghcr.io/acme/shop:2", "enter")

	require.Len(t, s.Sites, 2)
	shop := s.Sites[1]
	assert.Equal(t, "shop", shop.Name)
	assert.Equal(t, f.domain.ID, shop.DomainID)
	assert.Equal(t, f.node.ID, shop.NodeID)
	assert.Equal(t, uint16(80), shop.Port)
	require.Len(t, f.spawner.jobs, 1)
	assert.Equal(t, console.OpDeploySite, f.spawner.jobs[0].Op.Kind)
	assert.Nil(t, m.form)
}

func TestDNSRecordPrompt(t *testing.T) {
	f := newFixture(t)
	s := f.engine.State()
	m := press(New(f.engine, nil), "2", "enter")
	require.Equal(t, console.Screen{Kind: console.ScreenDNSEditor, ID: f.domain.ID}, s.Screen)

	m = press(m, "a")
	require.True(t, m.typing)
	m = press(m, "A www 203.0.113.7", "enter")
	assert.False(t, m.typing)

	d, ok := s.Domain(f.domain.ID)
	require.True(t, ok)
	require.Len(t, d.DNSRecords, 1)
	assert.Equal(t, models.RecordA, d.DNSRecords[0].Type)
	assert.Equal(t, uint32(300), d.DNSRecords[0].TTL)
	assert.Contains(t, m.View(), "203.0.113.7")

	m = press(m, "a", "bogus", "enter")
	assert.Equal(t, console.LevelWarning, latest(t, s).Level)
	assert.Len(t, d.DNSRecords, 1)

	press(m, "D")
	assert.Empty(t, d.DNSRecords)
}

func TestCompletionsAreReceivedAndRelistened(t *testing.T) {
	f := newFixture(t)
	inbound := make(chan console.Action, 1)
	m := New(f.engine, inbound)

	inbound <- console.InventoryChanged{Path: "/tmp/archon.yaml"}
	msg := m.listen()()
	require.Equal(t, completionMsg{action: console.InventoryChanged{Path: "/tmp/archon.yaml"}}, msg)

	next, cmd := m.Update(msg)
	assert.NotNil(t, cmd)
	assert.True(t, f.engine.State().ExternalChange)
	assert.Contains(t, next.View(), "changed on disk")

	close(inbound)
	assert.Nil(t, m.listen()())
}

func TestTickChecksAllNodes(t *testing.T) {
	f := newFixture(t)
	m := New(f.engine, nil)

	_, cmd := m.Update(tickMsg{gen: m.tickGen})
	assert.NotNil(t, cmd)
	require.Len(t, f.spawner.jobs, 1)
	assert.Equal(t, console.OpNodeHealth, f.spawner.jobs[0].Op.Kind)
}

func TestHealthIntervalIsClamped(t *testing.T) {
	assert.Equal(t, time.Duration(0), healthInterval(0))
	assert.Equal(t, time.Minute, healthInterval(60))
	assert.Equal(t, maxHealthInterval, healthInterval(math.MaxUint64))
	assert.Equal(t, maxHealthInterval, healthInterval(uint64(maxHealthInterval/time.Second)+1))
}

func TestTickRearmsWhenIntervalChanges(t *testing.T) {
	f := newFixture(t)
	f.engine.State().Settings.HealthCheckIntervalSeconds = 0
	m := New(f.engine, nil)
	assert.Nil(t, m.tick())
	stale := m.tickGen

	// As after a reload that turns the health check on.
	f.engine.State().Settings.HealthCheckIntervalSeconds = 60
	next, cmd := m.Update(completionMsg{action: console.DismissNotification{}})
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Equal(t, time.Minute, m.tickEvery)
	assert.NotEqual(t, stale, m.tickGen)
	assert.NotNil(t, m.tick())

	next, cmd = m.Update(tickMsg{gen: stale})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Empty(t, f.spawner.jobs)

	f.engine.State().Settings.HealthCheckIntervalSeconds = 0
	next, _ = m.Update(completionMsg{action: console.DismissNotification{}})
	m = next.(Model)
	assert.Nil(t, m.tick())
}

func TestQuitKeyEndsProgram(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			f := newFixture(t)
			_, cmd := New(f.engine, nil).Update(keyMsg(k))
			require.NotNil(t, cmd)
			assert.Equal(t, tea.QuitMsg{}, cmd())
			assert.True(t, f.engine.State().ShouldQuit)
		})
	}
}

func TestSiteDetailShowsMonitorData(t *testing.T) {
	f := newFixture(t)
	s := f.engine.State()
	m := press(New(f.engine, nil), "1", "enter", "l")
	require.Len(t, f.spawner.jobs, 1)
	op := f.spawner.jobs[0].Op

	next, _ := m.Update(completionMsg{action: console.OperationCompleted{
		ID:      op.ID,
		Payload: console.SiteLogs{SiteID: f.site.ID, Lines: []string{"listening on :8080", "GET / 200"}},
	}})
	m = next.(Model)

	require.NotNil(t, s.Monitor[f.site.ID])
	view := m.View()
	assert.Contains(t, view, "Logs (2 lines)")
	assert.Contains(t, view, "listening on :8080")
}

func TestViewsRenderEveryScreen(t *testing.T) {
	f := newFixture(t)
	s := f.engine.State()
	m := New(f.engine, nil)

	cases := []struct {
		screen console.Screen
		want   string
	}{
		{console.Screen{Kind: console.ScreenDashboard}, "Overview"},
		{console.Screen{Kind: console.ScreenSitesList}, "blog"},
		{console.Screen{Kind: console.ScreenSiteDetail, ID: f.site.ID}, "site-" + f.site.ID.String()},
		{console.Screen{Kind: console.ScreenSiteEdit, ID: f.site.ID}, "Edit Site blog"},
		{console.Screen{Kind: console.ScreenDomainsList}, "example.com"},
		{console.Screen{Kind: console.ScreenDomainCreate, ID: f.domain.ID}, "Edit Domain"},
		{console.Screen{Kind: console.ScreenDNSEditor, ID: f.domain.ID}, "No records"},
		{console.Screen{Kind: console.ScreenNodesList}, "http://edge-1:8080"},
		{console.Screen{Kind: console.ScreenNodeDetail, ID: f.node.ID}, "10.0.0.5"},
		{console.Screen{Kind: console.ScreenNodeCreate}, "Endpoint"},
	}
	for _, tc := range cases {
		t.Run(tc.screen.String(), func(t *testing.T) {
			next, _ := m.Update(completionMsg{action: console.NavigateTo{Screen: tc.screen}})
			m = next.(Model)
			require.Equal(t, tc.screen, s.Screen)
			assert.Contains(t, m.View(), tc.want)
		})
	}
}
