package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"archon/internal/console"
	"archon/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// View renders the console. It reads state and never changes it.
func (m Model) View() string {
	s := m.engine.State()
	if s.ShouldQuit {
		return ""
	}

	var body string
	switch s.Screen.Kind {
	case console.ScreenDashboard:
		body = m.dashboardView(s)
	case console.ScreenSitesList:
		body = m.sitesView(s)
	case console.ScreenSiteDetail:
		body = m.siteDetailView(s)
	case console.ScreenDomainsList:
		body = m.domainsView(s)
	case console.ScreenDNSEditor:
		body = m.dnsView(s)
	case console.ScreenNodesList:
		body = m.nodesView(s)
	case console.ScreenNodeDetail:
		body = m.nodeDetailView(s)
	case console.ScreenHelp:
		body = m.helpText
	default:
		body = m.formView(s)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(s),
		m.styles.Content.Render(body),
		m.notificationView(s),
		m.styles.Footer.Render(m.help.ShortHelpView(m.keys.Bindings(s.Screen.Kind))),
	)
}

func (m Model) headerView(s *console.State) string {
	title := fmt.Sprintf("archon %s", s.Version)
	crumb := console.Screen{Kind: s.Screen.Kind}.String()
	if name := m.entityName(s, s.Screen.ID); name != "" {
		crumb += " " + name
	}
	line := m.styles.Header.Render(title) + " " + m.styles.Subtitle.Render(crumb)
	if n := len(s.Operations.InFlight()); n > 0 {
		line += "  " + m.spinner.View() + m.styles.Muted.Render(fmt.Sprintf(" %d running", n))
	}
	if s.ExternalChange {
		line += "  " + m.styles.Warning.Render("changed on disk (ctrl+r)")
	}
	return line
}

func (m Model) notificationView(s *console.State) string {
	n := s.Notifications.Items()
	if len(n) == 0 {
		return ""
	}
	front := n[0]
	line := m.styles.Level(front.Level).Render(front.Message)
	if more := len(n) - 1; more > 0 {
		line += m.styles.Muted.Render(fmt.Sprintf("  (+%d more, x to dismiss)", more))
	}
	return "  " + line
}

// -----------------------------------------------------------------------------
// Screens
// -----------------------------------------------------------------------------

func (m Model) dashboardView(s *console.State) string {
	var sb strings.Builder

	counts := map[models.SiteStatus]int{}
	for _, site := range s.Sites {
		counts[site.Status]++
	}
	online := 0
	for _, n := range s.Nodes {
		if n.Status == models.NodeOnline {
			online++
		}
	}

	sb.WriteString(m.styles.Title.Render("Overview"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s %d  (%s %d, %s %d, %s %d)\n",
		m.styles.Bold.Render("Sites"), len(s.Sites),
		m.styles.SiteStatus(models.SiteRunning), counts[models.SiteRunning],
		m.styles.SiteStatus(models.SiteDeploying), counts[models.SiteDeploying],
		m.styles.SiteStatus(models.SiteFailed), counts[models.SiteFailed])
	fmt.Fprintf(&sb, "%s %d\n", m.styles.Bold.Render("Domains"), len(s.Domains))
	fmt.Fprintf(&sb, "%s %d  (%d online)\n\n", m.styles.Bold.Render("Nodes"), len(s.Nodes), online)

	ops := s.Operations.All()
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].StartedAt.After(ops[j].StartedAt) })
	t := NewTable("Recent operations", "Operation", "Target", "Status", "Started")
	t.Empty = "No operations yet."
	for i, op := range ops {
		if i == 8 {
			break
		}
		status := string(op.Status)
		if op.Status == console.OpInProgress {
			status = m.spinner.View() + " " + status
		} else if op.Status == console.OpFailed {
			status = m.styles.Error.Render(status)
		}
		t.AddRow(op.Kind.Label(), m.entityName(s, op.Target), status, op.StartedAt.Local().Format("15:04:05"))
	}
	sb.WriteString(t.View(m.styles))
	return sb.String()
}

func (m Model) sitesView(s *console.State) string {
	t := NewTable("Sites", "Name", "Domain", "Node", "Image", "Port", "Status")
	t.Empty = "No sites yet. Press n to create one."
	t.Selected = s.Selection.Sites
	for _, site := range s.Sites {
		domain, node := "-", "-"
		if d, ok := s.Domain(site.DomainID); ok {
			domain = d.Name
		}
		if n, ok := s.Node(site.NodeID); ok {
			node = n.Name
		}
		t.AddRow(site.Name, domain, node, site.DockerImage, fmt.Sprint(site.Port), m.siteStatus(s, site))
	}
	return t.View(m.styles)
}

func (m Model) siteDetailView(s *console.State) string {
	site, ok := s.Site(s.Screen.ID)
	if !ok {
		return m.styles.Muted.Render("Site not found.")
	}
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(site.Name))
	sb.WriteString("\n")

	domain, node := "-", "-"
	if d, ok := s.DomainForSite(site.ID); ok {
		domain = d.Name
	}
	if n, ok := s.NodeForSite(site.ID); ok {
		node = n.Name
	}
	m.field(&sb, "Status", m.siteStatus(s, *site))
	m.field(&sb, "Domain", domain)
	m.field(&sb, "Node", node)
	m.field(&sb, "Image", site.DockerImage)
	m.field(&sb, "Port", fmt.Sprint(site.Port))
	m.field(&sb, "SSL", yesNo(site.SSLEnabled))
	m.field(&sb, "Router", site.RouterName())
	m.field(&sb, "Updated", since(site.UpdatedAt))
	if len(site.EnvironmentVars) > 0 {
		keys := make([]string, 0, len(site.EnvironmentVars))
		for k := range site.EnvironmentVars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m.field(&sb, "Env", strings.Join(keys, ", "))
	}

	if mon := s.Monitor[site.ID]; mon != nil {
		if mt := mon.Metrics; mt != nil {
			sb.WriteString("\n")
			sb.WriteString(m.styles.Bold.Render("Metrics"))
			sb.WriteString(m.styles.Muted.Render("  " + since(mon.MetricsAt)))
			sb.WriteString("\n")
			fmt.Fprintf(&sb, "cpu %.1f%%  mem %d/%d MB  rx %s  tx %s\n",
				mt.CPUUsagePercent, mt.MemoryUsageMB, mt.MemoryLimitMB,
				bytesLabel(mt.NetworkRxBytes), bytesLabel(mt.NetworkTxBytes))
		}
		if len(mon.Logs) > 0 {
			sb.WriteString("\n")
			sb.WriteString(m.styles.Bold.Render(fmt.Sprintf("Logs (%d lines)", len(mon.Logs))))
			sb.WriteString(m.styles.Muted.Render("  " + since(mon.LogsAt)))
			sb.WriteString("\n")
			sb.WriteString(m.styles.Panel.Render(m.logs.View()))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m Model) domainsView(s *console.State) string {
	t := NewTable("Domains", "Name", "DNS", "Records", "Sites")
	t.Empty = "No domains yet. Press n to add one."
	t.Selected = s.Selection.Domains
	for _, d := range s.Domains {
		sites := 0
		for _, site := range s.Sites {
			if site.DomainID == d.ID {
				sites++
			}
		}
		provider := d.DNSProvider.Name()
		if s.Operations.InFlightFor(d.ID) {
			provider += " " + m.spinner.View()
		}
		t.AddRow(d.Name, provider, fmt.Sprint(len(d.DNSRecords)), fmt.Sprint(sites))
	}
	return t.View(m.styles)
}

func (m Model) dnsView(s *console.State) string {
	d, ok := s.Domain(s.Screen.ID)
	if !ok {
		return m.styles.Muted.Render("Domain not found.")
	}
	t := NewTable(fmt.Sprintf("%s (%s)", d.Name, d.DNSProvider.Name()), "Type", "Name", "Value", "TTL", "Proxied")
	t.Empty = "No records. Press a to add one."
	t.Selected = s.Selection.DNSRecords
	for _, r := range d.DNSRecords {
		t.AddRow(string(r.Type), r.Name, r.Value, fmt.Sprint(r.TTL), yesNo(r.Proxied))
	}
	out := t.View(m.styles)
	if m.typing {
		out += "\n" + m.styles.Prompt.Render("New record ") + m.record.View() + "\n"
	}
	return out
}

func (m Model) nodesView(s *console.State) string {
	t := NewTable("Nodes", "Name", "Endpoint", "IP", "Status", "Sites", "Checked")
	t.Empty = "No nodes yet. Press n to add one."
	t.Selected = s.Selection.Nodes
	for _, n := range s.Nodes {
		checked := "never"
		if n.LastHealthCheck != nil {
			checked = since(*n.LastHealthCheck)
		}
		t.AddRow(n.Name, n.APIEndpoint, n.IPAddress, m.nodeStatus(s, n),
			fmt.Sprint(len(s.SitesOnNode(n.ID))), checked)
	}
	return t.View(m.styles)
}

func (m Model) nodeDetailView(s *console.State) string {
	n, ok := s.Node(s.Screen.ID)
	if !ok {
		return m.styles.Muted.Render("Node not found.")
	}
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(n.Name))
	sb.WriteString("\n")
	m.field(&sb, "Status", m.nodeStatus(s, *n))
	m.field(&sb, "Endpoint", n.APIEndpoint)
	m.field(&sb, "IP", n.IPAddress)
	if n.LastHealthCheck != nil {
		m.field(&sb, "Checked", since(*n.LastHealthCheck))
	}
	if d := n.DockerInfo; d != nil {
		m.field(&sb, "Docker", fmt.Sprintf("%s, %d running, %d images", d.Version, d.ContainersRunning, d.ImagesCount))
	}
	if t := n.TraefikInfo; t != nil {
		m.field(&sb, "Traefik", fmt.Sprintf("%s, %d routers, %d services", t.Version, t.RoutersCount, t.ServicesCount))
	}

	t := NewTable("Sites", "Name", "Image", "Status")
	t.Empty = "No sites on this node."
	for _, site := range s.SitesOnNode(n.ID) {
		t.AddRow(site.Name, site.DockerImage, m.siteStatus(s, site))
	}
	sb.WriteString("\n")
	sb.WriteString(t.View(m.styles))
	return sb.String()
}

func (m Model) formView(s *console.State) string {
	if m.form == nil {
		return ""
	}
	title := console.Screen{Kind: s.Screen.Kind}.String()
	if s.Screen.Kind == console.ScreenDomainCreate && s.Screen.ID != uuid.Nil {
		title = "Edit Domain"
	}
	if name := m.entityName(s, s.Screen.ID); name != "" {
		title += " " + name
	}
	return m.styles.Title.Render(title) + "\n" + m.form.View(m.styles, s.Selection.FormField)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (m Model) field(sb *strings.Builder, label, value string) {
	sb.WriteString(m.styles.FieldLabel.Render(label))
	sb.WriteString(value)
	sb.WriteString("\n")
}

func (m Model) siteStatus(s *console.State, site models.Site) string {
	out := m.styles.SiteStatus(site.Status)
	if s.Operations.InFlightFor(site.ID) {
		out += " " + m.spinner.View()
	}
	return out
}

func (m Model) nodeStatus(s *console.State, n models.Node) string {
	out := m.styles.NodeStatus(n.Status)
	if s.Operations.InFlightFor(n.ID) {
		out += " " + m.spinner.View()
	}
	return out
}

// entityName resolves id against every collection.
func (m Model) entityName(s *console.State, id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	if site, ok := s.Site(id); ok {
		return site.Name
	}
	if d, ok := s.Domain(id); ok {
		return d.Name
	}
	if n, ok := s.Node(id); ok {
		return n.Name
	}
	return id.String()[:8]
}

func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Local().Format("2006-01-02")
}

func bytesLabel(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
