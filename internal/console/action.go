package console

import (
	"archon/internal/models"

	"github.com/google/uuid"
)

// Action is one state-transition trigger. The set is closed: only types in
// this package implement it, and Engine.Apply handles every one of them.
type Action interface {
	isAction()
}

// -----------------------------------------------------------------------------
// Navigation
// -----------------------------------------------------------------------------

// NavigateTo pushes the current screen and switches to Screen.
type NavigateTo struct{ Screen Screen }

// NavigateBack returns to the previous screen, if any.
type NavigateBack struct{}

// -----------------------------------------------------------------------------
// Site CRUD
// -----------------------------------------------------------------------------

// CreateSite adds a site and deploys it.
type CreateSite struct{ Site models.Site }

// UpdateSite replaces a site's definition and redeploys it.
type UpdateSite struct {
	ID   uuid.UUID
	Site models.Site
}

// DeleteSite removes the site from its node; the site leaves the inventory
// once the node confirms.
type DeleteSite struct{ ID uuid.UUID }

// -----------------------------------------------------------------------------
// Domain CRUD
// -----------------------------------------------------------------------------

type CreateDomain struct{ Domain models.Domain }

type UpdateDomain struct {
	ID     uuid.UUID
	Domain models.Domain
}

type DeleteDomain struct{ ID uuid.UUID }

// -----------------------------------------------------------------------------
// Node CRUD
// -----------------------------------------------------------------------------

type AddNode struct{ Node models.Node }

type UpdateNode struct {
	ID   uuid.UUID
	Node models.Node
}

type RemoveNode struct{ ID uuid.UUID }

// -----------------------------------------------------------------------------
// DNS record CRUD (local, by position in the domain's record list)
// -----------------------------------------------------------------------------

type AddDNSRecord struct {
	DomainID uuid.UUID
	Record   models.DNSRecord
}

type UpdateDNSRecord struct {
	DomainID uuid.UUID
	Index    int
	Record   models.DNSRecord
}

type DeleteDNSRecord struct {
	DomainID uuid.UUID
	Index    int
}

// -----------------------------------------------------------------------------
// Cursor
// -----------------------------------------------------------------------------

type SelectNext struct{}

type SelectPrevious struct{}

// SelectItem jumps the cursor of the current list to Index.
type SelectItem struct{ Index int }

type NextFormField struct{}

type PreviousFormField struct{}

// -----------------------------------------------------------------------------
// Background operations
// -----------------------------------------------------------------------------

type DeploySite struct{ ID uuid.UUID }

type StopSite struct{ ID uuid.UUID }

type RestartSite struct{ ID uuid.UUID }

type RefreshSiteStatus struct{ ID uuid.UUID }

type SyncDNSRecords struct{ DomainID uuid.UUID }

type CheckNodeHealth struct{ ID uuid.UUID }

// CheckAllNodes spawns one health check per node.
type CheckAllNodes struct{}

type FetchNodeStats struct{ ID uuid.UUID }

type FetchLogs struct{ SiteID uuid.UUID }

type FetchMetrics struct{ SiteID uuid.UUID }

// OperationCompleted is the only action produced by background work. Exactly
// one of Payload and Err is set.
type OperationCompleted struct {
	ID      uuid.UUID
	Payload Payload
	Err     error
}

// -----------------------------------------------------------------------------
// Notifications & system
// -----------------------------------------------------------------------------

type ShowNotification struct{ Notification Notification }

// DismissNotification drops the oldest notification.
type DismissNotification struct{}

type SaveConfig struct{}

// LoadConfig replaces the inventory with the file on disk.
type LoadConfig struct{}

// InventoryChanged reports an edit to the inventory file made by another process.
type InventoryChanged struct{ Path string }

// Tick fires on the health check interval.
type Tick struct{}

type Quit struct{}

func (NavigateTo) isAction()          {}
func (NavigateBack) isAction()        {}
func (CreateSite) isAction()          {}
func (UpdateSite) isAction()          {}
func (DeleteSite) isAction()          {}
func (CreateDomain) isAction()        {}
func (UpdateDomain) isAction()        {}
func (DeleteDomain) isAction()        {}
func (AddNode) isAction()             {}
func (UpdateNode) isAction()          {}
func (RemoveNode) isAction()          {}
func (AddDNSRecord) isAction()        {}
func (UpdateDNSRecord) isAction()     {}
func (DeleteDNSRecord) isAction()     {}
func (SelectNext) isAction()          {}
func (SelectPrevious) isAction()      {}
func (SelectItem) isAction()          {}
func (NextFormField) isAction()       {}
func (PreviousFormField) isAction()   {}
func (DeploySite) isAction()          {}
func (StopSite) isAction()            {}
func (RestartSite) isAction()         {}
func (RefreshSiteStatus) isAction()   {}
func (SyncDNSRecords) isAction()      {}
func (CheckNodeHealth) isAction()     {}
func (CheckAllNodes) isAction()       {}
func (FetchNodeStats) isAction()      {}
func (FetchLogs) isAction()           {}
func (FetchMetrics) isAction()        {}
func (OperationCompleted) isAction()  {}
func (ShowNotification) isAction()    {}
func (DismissNotification) isAction() {}
func (SaveConfig) isAction()          {}
func (LoadConfig) isAction()          {}
func (InventoryChanged) isAction()    {}
func (Tick) isAction()                {}
func (Quit) isAction()                {}

// Payload is the typed result of a successful operation.
type Payload interface {
	isPayload()
}

type SiteDeployed struct{ SiteID uuid.UUID }

type SiteUpdated struct{ SiteID uuid.UUID }

type SiteDeleted struct{ SiteID uuid.UUID }

type SiteStopped struct{ SiteID uuid.UUID }

type SiteRestarted struct{ SiteID uuid.UUID }

// SiteStatusFetched carries the status reported by the node.
type SiteStatusFetched struct {
	SiteID uuid.UUID
	Status models.SiteStatus
}

// DNSSynced replaces a domain's records with the provider's view.
type DNSSynced struct {
	DomainID uuid.UUID
	Records  []models.DNSRecord
}

type NodeHealth struct {
	NodeID  uuid.UUID
	Status  models.NodeStatus
	Docker  *models.DockerInfo
	Traefik *models.TraefikInfo
}

type NodeStats struct {
	NodeID  uuid.UUID
	Docker  models.DockerInfo
	Traefik models.TraefikInfo
}

type SiteLogs struct {
	SiteID uuid.UUID
	Lines  []string
}

type SiteMetrics struct {
	SiteID uuid.UUID
	Data   models.ContainerMetrics
}

func (SiteDeployed) isPayload()      {}
func (SiteUpdated) isPayload()       {}
func (SiteDeleted) isPayload()       {}
func (SiteStopped) isPayload()       {}
func (SiteRestarted) isPayload()     {}
func (SiteStatusFetched) isPayload() {}
func (DNSSynced) isPayload()         {}
func (NodeHealth) isPayload()        {}
func (NodeStats) isPayload()         {}
func (SiteLogs) isPayload()          {}
func (SiteMetrics) isPayload()       {}
