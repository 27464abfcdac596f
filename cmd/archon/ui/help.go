package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
)

// HelpMarkdown documents the key bindings as markdown.
func HelpMarkdown(k KeyMap) string {
	var sb strings.Builder
	sb.WriteString("# archon\n\n")
	sb.WriteString("Manage sites, domains and nodes. Remote work runs in the background; ")
	sb.WriteString("results show up as notifications.\n\n")

	section := func(title string, bindings ...key.Binding) {
		sb.WriteString("## " + title + "\n\n")
		sb.WriteString("| Key | Action |\n|---|---|\n")
		for _, b := range bindings {
			h := b.Help()
			fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
		}
		sb.WriteString("\n")
	}

	section("Navigation", k.Home, k.Sites, k.Domains, k.Nodes, k.Up, k.Down, k.Open, k.Back, k.Help, k.Quit)
	section("Inventory", k.New, k.Edit, k.Delete, k.Save, k.Reload, k.Dismiss)
	section("Sites", k.Deploy, k.Stop, k.Restart, k.Status, k.Logs, k.Metrics)
	section("Domains", k.SyncDNS, k.AddRecord)
	section("Nodes", k.Health, k.HealthAll, k.Stats)
	section("Forms", k.NextField, k.PrevField, k.Submit)

	sb.WriteString("DNS records are added as `TYPE NAME VALUE [TTL]`, for example `A www 203.0.113.7 300`.\n")
	return sb.String()
}

// RenderMarkdown renders md for the terminal, falling back to the raw text
// when glamour cannot.
func RenderMarkdown(md string, width int, dark bool) string {
	style := "light"
	if dark {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
