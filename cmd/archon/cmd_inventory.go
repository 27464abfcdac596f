package main

import (
	"fmt"

	"archon/cmd/archon/ui"
	"archon/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func loadInventory() (*config.Inventory, error) {
	inv, err := config.NewStore(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	logger.Debug("inventory loaded", zap.String("path", configPath),
		zap.Int("sites", len(inv.Sites)), zap.Int("nodes", len(inv.Nodes)))
	return inv, nil
}

// listNodes prints the nodes as last recorded; it does not contact them.
func listNodes(cmd *cobra.Command, args []string) error {
	inv, err := loadInventory()
	if err != nil {
		return err
	}

	tbl := ui.NewTable("Nodes", "Name", "Endpoint", "IP", "Status", "Last check")
	tbl.Empty = "No nodes in the inventory."
	for _, n := range inv.Nodes {
		checked := "never"
		if n.LastHealthCheck != nil {
			checked = n.LastHealthCheck.Local().Format("2006-01-02 15:04")
		}
		tbl.AddRow(n.Name, n.APIEndpoint, n.IPAddress, string(n.Status), checked)
	}
	fmt.Fprint(cmd.OutOrStdout(), tbl.View(ui.NewStyles(ui.LightTheme())))
	return nil
}

// listSites prints every site with its domain and node resolved by id.
func listSites(cmd *cobra.Command, args []string) error {
	inv, err := loadInventory()
	if err != nil {
		return err
	}

	domains := make(map[uuid.UUID]string, len(inv.Domains))
	for _, d := range inv.Domains {
		domains[d.ID] = d.Name
	}
	nodes := make(map[uuid.UUID]string, len(inv.Nodes))
	for _, n := range inv.Nodes {
		nodes[n.ID] = n.Name
	}
	name := func(m map[uuid.UUID]string, id uuid.UUID) string {
		if v, ok := m[id]; ok {
			return v
		}
		return "?"
	}

	tbl := ui.NewTable("Sites", "Name", "Domain", "Node", "Image", "Port", "Status")
	tbl.Empty = "No sites in the inventory."
	for _, s := range inv.Sites {
		tbl.AddRow(s.Name, name(domains, s.DomainID), name(nodes, s.NodeID),
			s.DockerImage, fmt.Sprint(s.Port), string(s.Status))
	}
	fmt.Fprint(cmd.OutOrStdout(), tbl.View(ui.NewStyles(ui.LightTheme())))
	return nil
}
