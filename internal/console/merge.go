package console

import (
	"strconv"

	"archon/internal/logging"
	"archon/internal/models"

	"github.com/google/uuid"
)

// complete drives an operation to its terminal state. Completions for
// unknown or already finished operations are logged and dropped.
func (e *Engine) complete(done OperationCompleted) {
	reason := ""
	switch {
	case done.Err != nil:
		reason = done.Err.Error()
		if reason == "" {
			reason = "unknown error"
		}
	case done.Payload == nil:
		reason = "operation returned no result"
	default:
		reason = invalidPayload(done.Payload)
	}

	op, ok := e.state.Operations.Finish(done.ID, reason, e.now())
	if !ok {
		logging.Get(logging.CategoryUpdate).Warn("ignoring completion for unknown or finished operation %s", done.ID)
		return
	}

	outcome := "success"
	if reason != "" {
		outcome = "failure"
	}
	e.metrics.OperationFinished(string(op.Kind), outcome, op.FinishedAt.Sub(op.StartedAt))

	if reason != "" {
		logging.Get(logging.CategoryUpdate).Warn("op %s: %s failed: %s", op.ID, op.Kind, reason)
		e.compensate(op)
		e.notify(LevelError, "%s of %s failed: %s", op.Kind.Label(), e.targetName(op), reason)
		return
	}

	logging.Update("op %s: %s completed", op.ID, op.Kind)
	if e.merge(done.Payload) {
		e.autoSave()
	}
}

// invalidPayload returns a failure reason for payloads carrying a status
// outside the known set, or "" when p can be merged.
func invalidPayload(p Payload) string {
	switch p := p.(type) {
	case SiteStatusFetched:
		if !p.Status.Valid() {
			return "invalid response: unknown site status " + strconv.Quote(string(p.Status))
		}
	case NodeHealth:
		if !p.Status.Valid() {
			return "invalid response: unknown node status " + strconv.Quote(string(p.Status))
		}
	}
	return ""
}

// compensate undoes the optimistic Deploying status of a failed deploy.
func (e *Engine) compensate(op Operation) {
	if op.Kind != OpDeploySite && op.Kind != OpUpdateSite {
		return
	}
	if site, ok := e.state.Site(op.Target); ok && site.Status == models.SiteDeploying {
		site.Status = models.SiteFailed
		site.UpdatedAt = e.now()
	}
}

// merge folds a successful payload into State. It reports whether the
// persisted inventory changed.
func (e *Engine) merge(p Payload) bool {
	s := e.state
	switch p := p.(type) {
	case SiteDeployed:
		if !e.setSiteStatus(p.SiteID, models.SiteRunning) {
			return false
		}
		e.notify(LevelSuccess, "Site deployed successfully")
		return true

	case SiteUpdated:
		if !e.setSiteStatus(p.SiteID, models.SiteRunning) {
			return false
		}
		e.notify(LevelSuccess, "Site redeployed successfully")
		return true

	case SiteDeleted:
		if !s.removeSite(p.SiteID) {
			logging.UpdateDebug("deleted site %s already gone", p.SiteID)
			return false
		}
		e.leaveScreenFor(p.SiteID)
		e.notify(LevelSuccess, "Site deleted successfully")
		return true

	case SiteStopped:
		if !e.setSiteStatus(p.SiteID, models.SiteStopped) {
			return false
		}
		e.notify(LevelSuccess, "Site stopped")
		return true

	case SiteRestarted:
		if !e.setSiteStatus(p.SiteID, models.SiteRunning) {
			return false
		}
		e.notify(LevelSuccess, "Site restarted")
		return true

	case SiteStatusFetched:
		return e.setSiteStatus(p.SiteID, p.Status)

	case DNSSynced:
		d, ok := s.Domain(p.DomainID)
		if !ok {
			return false
		}
		d.DNSRecords = append([]models.DNSRecord(nil), p.Records...)
		s.clampSelection()
		e.notify(LevelSuccess, "DNS records synced successfully")
		return true

	case NodeHealth:
		n, ok := s.Node(p.NodeID)
		if !ok {
			return false
		}
		n.UpdateHealth(p.Status, p.Docker, p.Traefik, e.now())
		return true

	case NodeStats:
		n, ok := s.Node(p.NodeID)
		if !ok {
			return false
		}
		docker, traefik := p.Docker, p.Traefik
		n.DockerInfo = &docker
		n.TraefikInfo = &traefik
		return true

	case SiteLogs:
		if _, ok := s.Site(p.SiteID); !ok {
			return false
		}
		m := e.monitor(p.SiteID)
		m.Logs = append([]string(nil), p.Lines...)
		m.LogsAt = e.now()
		return false

	case SiteMetrics:
		if _, ok := s.Site(p.SiteID); !ok {
			return false
		}
		m := e.monitor(p.SiteID)
		data := p.Data
		m.Metrics = &data
		m.MetricsAt = e.now()
		return false
	}

	logging.Get(logging.CategoryUpdate).Warn("no merge rule for %T", p)
	return false
}

func (e *Engine) setSiteStatus(id uuid.UUID, status models.SiteStatus) bool {
	site, ok := e.state.Site(id)
	if !ok {
		logging.UpdateDebug("site %s gone before status %s could be applied", id, status)
		return false
	}
	site.Status = status
	site.UpdatedAt = e.now()
	return true
}

func (e *Engine) monitor(siteID uuid.UUID) *SiteMonitor {
	if e.state.Monitor == nil {
		e.state.Monitor = make(map[uuid.UUID]*SiteMonitor)
	}
	m, ok := e.state.Monitor[siteID]
	if !ok {
		m = &SiteMonitor{}
		e.state.Monitor[siteID] = m
	}
	return m
}
