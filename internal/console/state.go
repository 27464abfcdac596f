package console

import (
	"fmt"
	"time"

	"archon/internal/config"
	"archon/internal/models"

	"github.com/google/uuid"
)

// ScreenKind identifies a view of the console.
type ScreenKind int

const (
	ScreenDashboard ScreenKind = iota
	ScreenSitesList
	ScreenSiteCreate
	ScreenSiteEdit
	ScreenSiteDetail
	ScreenDomainsList
	ScreenDomainCreate
	ScreenDNSEditor
	ScreenNodesList
	ScreenNodeCreate
	ScreenNodeEdit
	ScreenNodeDetail
	ScreenHelp
)

// Screen is a view plus the entity it shows, for screens that show one.
type Screen struct {
	Kind ScreenKind
	ID   uuid.UUID
}

func (s Screen) String() string {
	name := screenNames[s.Kind]
	if name == "" {
		name = fmt.Sprintf("screen(%d)", s.Kind)
	}
	if s.ID != uuid.Nil {
		return name + " " + s.ID.String()[:8]
	}
	return name
}

var screenNames = map[ScreenKind]string{
	ScreenDashboard:    "Dashboard",
	ScreenSitesList:    "Sites",
	ScreenSiteCreate:   "New Site",
	ScreenSiteEdit:     "Edit Site",
	ScreenSiteDetail:   "Site",
	ScreenDomainsList:  "Domains",
	ScreenDomainCreate: "New Domain",
	ScreenDNSEditor:    "DNS Records",
	ScreenNodesList:    "Nodes",
	ScreenNodeCreate:   "New Node",
	ScreenNodeEdit:     "Edit Node",
	ScreenNodeDetail:   "Node",
	ScreenHelp:         "Help",
}

// Form field counts per form screen. The field cursor wraps within these.
const (
	SiteFormFields   = 6 // name, image, port, domain, node, ssl
	DomainFormFields = 5 // name, provider, three credential slots
	NodeFormFields   = 4 // name, endpoint, api key, ip
)

// FormFieldCount returns how many fields the form on kind has, or 0 when
// kind is not a form.
func FormFieldCount(kind ScreenKind) int {
	switch kind {
	case ScreenSiteCreate, ScreenSiteEdit:
		return SiteFormFields
	case ScreenDomainCreate:
		return DomainFormFields
	case ScreenNodeCreate, ScreenNodeEdit:
		return NodeFormFields
	}
	return 0
}

// Selection holds the list cursors.
type Selection struct {
	Sites      int
	Domains    int
	Nodes      int
	FormField  int
	DNSRecords int
}

// SiteMonitor is the latest logs and metrics fetched for a site. It lives only
// in memory.
type SiteMonitor struct {
	Logs      []string
	LogsAt    time.Time
	Metrics   *models.ContainerMetrics
	MetricsAt time.Time
}

// State is the console aggregate. It is owned by a single goroutine and has
// no locks; see Engine.
type State struct {
	Version  string
	Sites    []models.Site
	Domains  []models.Domain
	Nodes    []models.Node
	Settings config.Settings

	Screen    Screen
	history   []Screen
	Selection Selection

	Notifications Notifications
	Operations    Registry
	Monitor       map[uuid.UUID]*SiteMonitor

	// ExternalChange is set when the inventory file was edited elsewhere
	// and cleared by a reload.
	ExternalChange bool
	ShouldQuit     bool
}

// NewState builds the console state from a loaded inventory.
func NewState(inv *config.Inventory) *State {
	s := &State{
		Screen:  Screen{Kind: ScreenDashboard},
		Monitor: make(map[uuid.UUID]*SiteMonitor),
	}
	s.setInventory(inv)
	return s
}

func (s *State) setInventory(inv *config.Inventory) {
	if inv == nil {
		inv = config.DefaultInventory()
	}
	s.Version = inv.Version
	s.Sites = append([]models.Site(nil), inv.Sites...)
	s.Domains = append([]models.Domain(nil), inv.Domains...)
	s.Nodes = append([]models.Node(nil), inv.Nodes...)
	s.Settings = inv.Settings
}

// Inventory snapshots the persisted part of the state.
func (s *State) Inventory() *config.Inventory {
	inv := &config.Inventory{
		Version:  s.Version,
		Sites:    make([]models.Site, len(s.Sites)),
		Domains:  make([]models.Domain, len(s.Domains)),
		Nodes:    make([]models.Node, len(s.Nodes)),
		Settings: s.Settings,
	}
	if inv.Version == "" {
		inv.Version = config.Version
	}
	for i, site := range s.Sites {
		inv.Sites[i] = site.Clone()
	}
	for i, d := range s.Domains {
		inv.Domains[i] = d.Clone()
	}
	for i, n := range s.Nodes {
		inv.Nodes[i] = n.Clone()
	}
	return inv
}

// History returns the navigation stack, most recent last.
func (s *State) History() []Screen {
	return append([]Screen(nil), s.history...)
}

// -----------------------------------------------------------------------------
// Lookups. Missing referents return false, never panic.
// -----------------------------------------------------------------------------

func (s *State) Site(id uuid.UUID) (*models.Site, bool) {
	for i := range s.Sites {
		if s.Sites[i].ID == id {
			return &s.Sites[i], true
		}
	}
	return nil, false
}

func (s *State) Domain(id uuid.UUID) (*models.Domain, bool) {
	for i := range s.Domains {
		if s.Domains[i].ID == id {
			return &s.Domains[i], true
		}
	}
	return nil, false
}

func (s *State) Node(id uuid.UUID) (*models.Node, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// DomainForSite resolves a site's domain.
func (s *State) DomainForSite(siteID uuid.UUID) (*models.Domain, bool) {
	site, ok := s.Site(siteID)
	if !ok {
		return nil, false
	}
	return s.Domain(site.DomainID)
}

// NodeForSite resolves a site's node.
func (s *State) NodeForSite(siteID uuid.UUID) (*models.Node, bool) {
	site, ok := s.Site(siteID)
	if !ok {
		return nil, false
	}
	return s.Node(site.NodeID)
}

// SitesOnNode lists the sites deployed to a node.
func (s *State) SitesOnNode(nodeID uuid.UUID) []models.Site {
	var out []models.Site
	for _, site := range s.Sites {
		if site.NodeID == nodeID {
			out = append(out, site)
		}
	}
	return out
}

// SelectedSite returns the site under the sites cursor.
func (s *State) SelectedSite() (*models.Site, bool) {
	if len(s.Sites) == 0 {
		return nil, false
	}
	return &s.Sites[s.Selection.Sites], true
}

func (s *State) SelectedDomain() (*models.Domain, bool) {
	if len(s.Domains) == 0 {
		return nil, false
	}
	return &s.Domains[s.Selection.Domains], true
}

func (s *State) SelectedNode() (*models.Node, bool) {
	if len(s.Nodes) == 0 {
		return nil, false
	}
	return &s.Nodes[s.Selection.Nodes], true
}

func (s *State) removeSite(id uuid.UUID) bool {
	for i := range s.Sites {
		if s.Sites[i].ID == id {
			s.Sites = append(s.Sites[:i], s.Sites[i+1:]...)
			delete(s.Monitor, id)
			s.clampSelection()
			return true
		}
	}
	return false
}

func (s *State) removeDomain(id uuid.UUID) bool {
	for i := range s.Domains {
		if s.Domains[i].ID == id {
			s.Domains = append(s.Domains[:i], s.Domains[i+1:]...)
			s.clampSelection()
			return true
		}
	}
	return false
}

func (s *State) removeNode(id uuid.UUID) bool {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			s.Nodes = append(s.Nodes[:i], s.Nodes[i+1:]...)
			s.clampSelection()
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Navigation & selection
// -----------------------------------------------------------------------------

func (s *State) navigateTo(screen Screen) {
	s.history = append(s.history, s.Screen)
	s.Screen = screen
	s.Selection.FormField = 0
	if screen.Kind == ScreenDNSEditor {
		s.Selection.DNSRecords = 0
	}
}

func (s *State) navigateBack() {
	if len(s.history) == 0 {
		return
	}
	s.Screen = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.Selection.FormField = 0
	s.clampSelection()
}

// cursor returns the cursor the current screen moves and the length of the
// list it indexes. A nil cursor means the screen has no list.
func (s *State) cursor() (*int, int) {
	switch s.Screen.Kind {
	case ScreenSitesList:
		return &s.Selection.Sites, len(s.Sites)
	case ScreenDomainsList:
		return &s.Selection.Domains, len(s.Domains)
	case ScreenNodesList:
		return &s.Selection.Nodes, len(s.Nodes)
	case ScreenDNSEditor:
		if d, ok := s.Domain(s.Screen.ID); ok {
			return &s.Selection.DNSRecords, len(d.DNSRecords)
		}
		return nil, 0
	}
	return nil, 0
}

// step moves the current cursor by delta with wraparound.
func (s *State) step(delta int) {
	cur, n := s.cursor()
	if cur == nil || n == 0 {
		return
	}
	*cur = ((*cur+delta)%n + n) % n
}

func (s *State) stepFormField(delta int) {
	n := FormFieldCount(s.Screen.Kind)
	if n == 0 {
		return
	}
	s.Selection.FormField = ((s.Selection.FormField+delta)%n + n) % n
}

func (s *State) selectItem(i int) bool {
	cur, n := s.cursor()
	if cur == nil || i < 0 || i >= n {
		return false
	}
	*cur = i
	return true
}

// clampSelection keeps every cursor inside its list.
func (s *State) clampSelection() {
	s.Selection.Sites = clamp(s.Selection.Sites, len(s.Sites))
	s.Selection.Domains = clamp(s.Selection.Domains, len(s.Domains))
	s.Selection.Nodes = clamp(s.Selection.Nodes, len(s.Nodes))
	records := 0
	if s.Screen.Kind == ScreenDNSEditor {
		if d, ok := s.Domain(s.Screen.ID); ok {
			records = len(d.DNSRecords)
		}
	}
	s.Selection.DNSRecords = clamp(s.Selection.DNSRecords, records)
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
