package ui

import (
	"archon/internal/console"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// KeyMap is every key binding the console understands.
type KeyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Help    key.Binding
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Home    key.Binding
	Sites   key.Binding
	Domains key.Binding
	Nodes   key.Binding
	Dismiss key.Binding
	Save    key.Binding
	Reload  key.Binding

	New    key.Binding
	Edit   key.Binding
	Delete key.Binding

	Deploy  key.Binding
	Stop    key.Binding
	Restart key.Binding
	Status  key.Binding
	Logs    key.Binding
	Metrics key.Binding

	SyncDNS   key.Binding
	AddRecord key.Binding

	Health    key.Binding
	HealthAll key.Binding
	Stats     key.Binding

	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Home:    key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "dashboard")),
		Sites:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "sites")),
		Domains: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "domains")),
		Nodes:   key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "nodes")),
		Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Reload:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),

		New:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete")),

		Deploy:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "deploy")),
		Stop:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		Status:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "status")),
		Logs:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "logs")),
		Metrics: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "metrics")),

		SyncDNS:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "sync dns")),
		AddRecord: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add record")),

		Health:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "health")),
		HealthAll: key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "check all")),
		Stats:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "stats")),

		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	}
}

// Bindings returns the bindings shown in the footer for a screen.
func (k KeyMap) Bindings(kind console.ScreenKind) []key.Binding {
	switch kind {
	case console.ScreenDashboard:
		return []key.Binding{k.Sites, k.Domains, k.Nodes, k.HealthAll, k.Help, k.Quit}
	case console.ScreenSitesList:
		return []key.Binding{k.Open, k.New, k.Edit, k.Deploy, k.Delete, k.Back}
	case console.ScreenSiteDetail:
		return []key.Binding{k.Deploy, k.Stop, k.Restart, k.Status, k.Logs, k.Metrics, k.Back}
	case console.ScreenDomainsList:
		return []key.Binding{k.Open, k.New, k.Edit, k.SyncDNS, k.Delete, k.Back}
	case console.ScreenDNSEditor:
		return []key.Binding{k.AddRecord, k.Delete, k.SyncDNS, k.Back}
	case console.ScreenNodesList:
		return []key.Binding{k.Open, k.New, k.Edit, k.Health, k.HealthAll, k.Delete, k.Back}
	case console.ScreenNodeDetail:
		return []key.Binding{k.Health, k.Stats, k.Edit, k.Back}
	case console.ScreenSiteCreate, console.ScreenSiteEdit, console.ScreenDomainCreate,
		console.ScreenNodeCreate, console.ScreenNodeEdit:
		return []key.Binding{k.NextField, k.PrevField, k.Submit, k.Back}
	}
	return []key.Binding{k.Back, k.Quit}
}

// MapKey translates a key press on a non-form screen into an action. It
// returns nil for keys that mean nothing on the current screen. Reading
// state is fine here; changing it is not.
func (k KeyMap) MapKey(s *console.State, msg tea.KeyMsg) console.Action {
	scr := s.Screen

	// Global keys
	switch {
	case key.Matches(msg, k.Quit):
		return console.Quit{}
	case key.Matches(msg, k.Back):
		return console.NavigateBack{}
	case key.Matches(msg, k.Help):
		if scr.Kind == console.ScreenHelp {
			return console.NavigateBack{}
		}
		return console.NavigateTo{Screen: console.Screen{Kind: console.ScreenHelp}}
	case key.Matches(msg, k.Dismiss):
		return console.DismissNotification{}
	case key.Matches(msg, k.Save):
		return console.SaveConfig{}
	case key.Matches(msg, k.Reload):
		return console.LoadConfig{}
	case key.Matches(msg, k.Up):
		return console.SelectPrevious{}
	case key.Matches(msg, k.Down):
		return console.SelectNext{}
	case key.Matches(msg, k.Home):
		return navigate(scr, console.ScreenDashboard)
	case key.Matches(msg, k.Sites):
		return navigate(scr, console.ScreenSitesList)
	case key.Matches(msg, k.Domains):
		return navigate(scr, console.ScreenDomainsList)
	case key.Matches(msg, k.Nodes):
		return navigate(scr, console.ScreenNodesList)
	case key.Matches(msg, k.HealthAll):
		return console.CheckAllNodes{}
	}

	switch scr.Kind {
	case console.ScreenSitesList:
		site, ok := s.SelectedSite()
		if key.Matches(msg, k.New) {
			return to(console.ScreenSiteCreate, uuid.Nil)
		}
		if !ok {
			return nil
		}
		return k.siteKey(msg, site.ID, true)

	case console.ScreenSiteDetail:
		return k.siteKey(msg, scr.ID, false)

	case console.ScreenDomainsList:
		if key.Matches(msg, k.New) {
			return to(console.ScreenDomainCreate, uuid.Nil)
		}
		d, ok := s.SelectedDomain()
		if !ok {
			return nil
		}
		switch {
		case key.Matches(msg, k.Open):
			return to(console.ScreenDNSEditor, d.ID)
		case key.Matches(msg, k.Edit):
			// The domain form doubles as the edit form when it carries an id.
			return to(console.ScreenDomainCreate, d.ID)
		case key.Matches(msg, k.SyncDNS):
			return console.SyncDNSRecords{DomainID: d.ID}
		case key.Matches(msg, k.Delete):
			return console.DeleteDomain{ID: d.ID}
		}

	case console.ScreenDNSEditor:
		switch {
		case key.Matches(msg, k.SyncDNS):
			return console.SyncDNSRecords{DomainID: scr.ID}
		case key.Matches(msg, k.Delete):
			d, ok := s.Domain(scr.ID)
			if !ok || len(d.DNSRecords) == 0 {
				return nil
			}
			return console.DeleteDNSRecord{DomainID: scr.ID, Index: s.Selection.DNSRecords}
		}

	case console.ScreenNodesList:
		if key.Matches(msg, k.New) {
			return to(console.ScreenNodeCreate, uuid.Nil)
		}
		n, ok := s.SelectedNode()
		if !ok {
			return nil
		}
		switch {
		case key.Matches(msg, k.Open):
			return to(console.ScreenNodeDetail, n.ID)
		case key.Matches(msg, k.Delete):
			return console.RemoveNode{ID: n.ID}
		}
		return k.nodeKey(msg, n.ID)

	case console.ScreenNodeDetail:
		return k.nodeKey(msg, scr.ID)
	}
	return nil
}

func (k KeyMap) siteKey(msg tea.KeyMsg, id uuid.UUID, inList bool) console.Action {
	switch {
	case inList && key.Matches(msg, k.Open):
		return to(console.ScreenSiteDetail, id)
	case key.Matches(msg, k.Edit):
		return to(console.ScreenSiteEdit, id)
	case key.Matches(msg, k.Delete):
		return console.DeleteSite{ID: id}
	case key.Matches(msg, k.Deploy):
		return console.DeploySite{ID: id}
	case key.Matches(msg, k.Stop):
		return console.StopSite{ID: id}
	case key.Matches(msg, k.Restart):
		return console.RestartSite{ID: id}
	case key.Matches(msg, k.Status):
		return console.RefreshSiteStatus{ID: id}
	case key.Matches(msg, k.Logs):
		return console.FetchLogs{SiteID: id}
	case key.Matches(msg, k.Metrics):
		return console.FetchMetrics{SiteID: id}
	}
	return nil
}

func (k KeyMap) nodeKey(msg tea.KeyMsg, id uuid.UUID) console.Action {
	switch {
	case key.Matches(msg, k.Health):
		return console.CheckNodeHealth{ID: id}
	case key.Matches(msg, k.Stats):
		return console.FetchNodeStats{ID: id}
	case key.Matches(msg, k.Edit):
		return to(console.ScreenNodeEdit, id)
	}
	return nil
}

// navigate goes to a top-level screen unless it is already showing.
func navigate(cur console.Screen, kind console.ScreenKind) console.Action {
	if cur.Kind == kind && cur.ID == uuid.Nil {
		return nil
	}
	return to(kind, uuid.Nil)
}

func to(kind console.ScreenKind, id uuid.UUID) console.Action {
	return console.NavigateTo{Screen: console.Screen{Kind: kind, ID: id}}
}
