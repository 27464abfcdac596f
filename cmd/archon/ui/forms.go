package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"archon/internal/console"
	"archon/internal/models"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

var errInvalidInput = errors.New("invalid input")

// Form is the text inputs behind a create or edit screen. The focused field
// is the console's form field cursor; the form only mirrors it.
type Form struct {
	Screen console.Screen
	labels []string
	inputs []textinput.Model
}

// NewForm builds the form for scr, prefilled from the entity it edits. It
// returns nil for screens that are not forms.
func NewForm(s *console.State, scr console.Screen) *Form {
	switch scr.Kind {
	case console.ScreenSiteCreate, console.ScreenSiteEdit:
		return siteForm(s, scr)
	case console.ScreenDomainCreate:
		return domainForm(s, scr)
	case console.ScreenNodeCreate, console.ScreenNodeEdit:
		return nodeForm(s, scr)
	}
	return nil
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "│ "
	ti.CharLimit = 256
	ti.Width = 48
	ti.SetValue(value)
	return ti
}

func (f *Form) add(label, placeholder, value string) {
	f.labels = append(f.labels, label)
	f.inputs = append(f.inputs, newInput(placeholder, value))
}

func siteForm(s *console.State, scr console.Screen) *Form {
	f := &Form{Screen: scr}
	site := models.Site{Port: 80, SSLEnabled: true}
	domain, node := "", ""
	if len(s.Domains) > 0 {
		domain = s.Domains[0].Name
	}
	if len(s.Nodes) > 0 {
		node = s.Nodes[0].Name
	}
	if cur, ok := s.Site(scr.ID); ok && scr.Kind == console.ScreenSiteEdit {
		site = cur.Clone()
		if d, ok := s.Domain(site.DomainID); ok {
			domain = d.Name
		}
		if n, ok := s.Node(site.NodeID); ok {
			node = n.Name
		}
	}
	f.add("Name", "blog", site.Name)
	f.add("Image", "ghcr.io/acme/blog:latest", site.DockerImage)
	f.add("Port", "80", strconv.Itoa(int(site.Port)))
	f.add("Domain", "example.com", domain)
	f.add("Node", "edge-1", node)
	f.add("SSL", "yes/no", yesNo(site.SSLEnabled))
	return f
}

func domainForm(s *console.State, scr console.Screen) *Form {
	f := &Form{Screen: scr}
	var d models.Domain
	if cur, ok := s.Domain(scr.ID); ok {
		d = cur.Clone()
	}
	var c1, c2, c3 string
	switch p := d.DNSProvider; {
	case p.Cloudflare != nil:
		c1, c2 = p.Cloudflare.APIToken, p.Cloudflare.ZoneID
	case p.Route53 != nil:
		c1, c2, c3 = p.Route53.AccessKey, p.Route53.SecretKey, p.Route53.HostedZoneID
	}
	kind := string(d.DNSProvider.Kind)
	if kind == "" {
		kind = string(models.ProviderManual)
	}
	f.add("Name", "example.com", d.Name)
	f.add("Provider", "cloudflare/route53/manual", kind)
	f.add("Token/Key", "API token or access key", c1)
	f.add("Zone/Secret", "zone id or secret key", c2)
	f.add("Hosted zone", "route53 hosted zone id", c3)
	f.inputs[2].EchoMode = textinput.EchoPassword
	return f
}

func nodeForm(s *console.State, scr console.Screen) *Form {
	f := &Form{Screen: scr}
	var n models.Node
	if cur, ok := s.Node(scr.ID); ok && scr.Kind == console.ScreenNodeEdit {
		n = cur.Clone()
	}
	f.add("Name", "edge-1", n.Name)
	f.add("Endpoint", "http://10.0.0.5:8080", n.APIEndpoint)
	f.add("API key", "node agent token", n.APIKey)
	f.add("IP address", "10.0.0.5", n.IPAddress)
	f.inputs[2].EchoMode = textinput.EchoPassword
	return f
}

// Focus moves keyboard focus to field i.
func (f *Form) Focus(i int) tea.Cmd {
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == i {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

// Update forwards msg to the focused input.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	for i := range f.inputs {
		if f.inputs[i].Focused() {
			var cmd tea.Cmd
			f.inputs[i], cmd = f.inputs[i].Update(msg)
			return cmd
		}
	}
	return nil
}

// Value returns the trimmed text of field i.
func (f *Form) Value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// SetValue replaces the text of field i.
func (f *Form) SetValue(i int, v string) {
	f.inputs[i].SetValue(v)
}

// Len is the number of fields.
func (f *Form) Len() int {
	return len(f.inputs)
}

// View renders the fields with the focused one highlighted.
func (f *Form) View(styles Styles, focus int) string {
	var sb strings.Builder
	for i, in := range f.inputs {
		label := styles.FieldLabel
		if i == focus {
			label = styles.FieldFocus
		}
		sb.WriteString(label.Render(f.labels[i]))
		sb.WriteString(in.View())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Submit validates the fields and returns the action that saves them.
func (f *Form) Submit(s *console.State) (console.Action, error) {
	switch f.Screen.Kind {
	case console.ScreenSiteCreate, console.ScreenSiteEdit:
		return f.submitSite(s)
	case console.ScreenDomainCreate:
		return f.submitDomain(s)
	case console.ScreenNodeCreate, console.ScreenNodeEdit:
		return f.submitNode(s)
	}
	return nil, fmt.Errorf("%w: not a form", errInvalidInput)
}

func (f *Form) submitSite(s *console.State) (console.Action, error) {
	name, image := f.Value(0), f.Value(1)
	if name == "" || image == "" {
		return nil, fmt.Errorf("%w: name and image are required", errInvalidInput)
	}
	port, err := strconv.ParseUint(f.Value(2), 10, 16)
	if err != nil || port == 0 {
		return nil, fmt.Errorf("%w: port must be 1-65535", errInvalidInput)
	}
	domain, ok := domainByName(s, f.Value(3))
	if !ok {
		return nil, fmt.Errorf("%w: unknown domain %q", errInvalidInput, f.Value(3))
	}
	node, ok := nodeByName(s, f.Value(4))
	if !ok {
		return nil, fmt.Errorf("%w: unknown node %q", errInvalidInput, f.Value(4))
	}
	ssl, err := parseYesNo(f.Value(5))
	if err != nil {
		return nil, err
	}

	if f.Screen.Kind == console.ScreenSiteEdit {
		cur, ok := s.Site(f.Screen.ID)
		if !ok {
			return nil, fmt.Errorf("%w: site no longer exists", errInvalidInput)
		}
		next := cur.Clone()
		next.Name, next.DockerImage, next.Port, next.SSLEnabled = name, image, uint16(port), ssl
		next.DomainID, next.NodeID = domain.ID, node.ID
		return console.UpdateSite{ID: cur.ID, Site: next}, nil
	}

	site := models.NewSite(name, domain.ID, node.ID, image, uint16(port))
	site.SSLEnabled = ssl
	return console.CreateSite{Site: site}, nil
}

func (f *Form) submitDomain(s *console.State) (console.Action, error) {
	name := f.Value(0)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", errInvalidInput)
	}
	var provider models.DNSProvider
	switch models.DNSProviderKind(strings.ToLower(f.Value(1))) {
	case models.ProviderCloudflare:
		if f.Value(2) == "" || f.Value(3) == "" {
			return nil, fmt.Errorf("%w: cloudflare needs an API token and a zone id", errInvalidInput)
		}
		provider = models.Cloudflare(f.Value(2), f.Value(3))
	case models.ProviderRoute53:
		provider = models.Route53(f.Value(2), f.Value(3), f.Value(4))
	case models.ProviderManual, "":
		provider = models.Manual()
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", errInvalidInput, f.Value(1))
	}

	if f.Screen.ID != uuid.Nil {
		cur, ok := s.Domain(f.Screen.ID)
		if !ok {
			return nil, fmt.Errorf("%w: domain no longer exists", errInvalidInput)
		}
		next := cur.Clone()
		next.Name, next.DNSProvider = name, provider
		return console.UpdateDomain{ID: cur.ID, Domain: next}, nil
	}
	return console.CreateDomain{Domain: models.NewDomain(name, provider)}, nil
}

func (f *Form) submitNode(s *console.State) (console.Action, error) {
	name, endpoint := f.Value(0), f.Value(1)
	if name == "" || endpoint == "" {
		return nil, fmt.Errorf("%w: name and endpoint are required", errInvalidInput)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("%w: endpoint must be an http(s) URL", errInvalidInput)
	}

	if f.Screen.Kind == console.ScreenNodeEdit {
		cur, ok := s.Node(f.Screen.ID)
		if !ok {
			return nil, fmt.Errorf("%w: node no longer exists", errInvalidInput)
		}
		next := cur.Clone()
		next.Name, next.APIEndpoint, next.APIKey, next.IPAddress = name, endpoint, f.Value(2), f.Value(3)
		return console.UpdateNode{ID: cur.ID, Node: next}, nil
	}
	return console.AddNode{Node: models.NewNode(name, endpoint, f.Value(2), f.Value(3))}, nil
}

// ParseRecord reads "TYPE NAME VALUE [TTL]" as typed into the DNS editor.
// A missing TTL is left zero so the console applies its default.
func ParseRecord(line string) (models.DNSRecord, error) {
	parts := strings.Fields(line)
	if len(parts) < 3 || len(parts) > 4 {
		return models.DNSRecord{}, fmt.Errorf("%w: expected TYPE NAME VALUE [TTL]", errInvalidInput)
	}
	t, err := models.ParseRecordType(parts[0])
	if err != nil {
		return models.DNSRecord{}, fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	var ttl uint64
	if len(parts) == 4 {
		ttl, err = strconv.ParseUint(parts[3], 10, 32)
		if err != nil {
			return models.DNSRecord{}, fmt.Errorf("%w: bad ttl %q", errInvalidInput, parts[3])
		}
	}
	return models.NewDNSRecord(t, parts[1], parts[2], uint32(ttl)), nil
}

func domainByName(s *console.State, name string) (models.Domain, bool) {
	for _, d := range s.Domains {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return models.Domain{}, false
}

func nodeByName(s *console.State, name string) (models.Node, bool) {
	for _, n := range s.Nodes {
		if strings.EqualFold(n.Name, name) {
			return n, true
		}
	}
	return models.Node{}, false
}

func parseYesNo(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "y", "yes", "true", "on", "1":
		return true, nil
	case "n", "no", "false", "off", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected yes or no, got %q", errInvalidInput, v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
