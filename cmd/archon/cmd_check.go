package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"archon/cmd/archon/ui"
	"archon/internal/console"
	"archon/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runCheck health-checks every node through the headless event loop.
func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	sess, err := openSession(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	state, err := checkNodes(ctx, sess.engine, sess.inbound)
	if err != nil {
		return fmt.Errorf("health check did not finish: %w", err)
	}

	logger.Debug("health check finished", zap.Int("nodes", len(state.Nodes)))
	return reportNodes(cmd.OutOrStdout(), state)
}

// checkNodes dispatches CheckAllNodes and quits once every operation it
// started has completed.
func checkNodes(ctx context.Context, engine *console.Engine, inbound <-chan console.Action) (*console.State, error) {
	input := make(chan console.Action, 2)
	input <- console.CheckAllNodes{}

	renders, quitting := 0, false
	render := func(s *console.State) {
		// The first render happens before CheckAllNodes is applied.
		renders++
		if renders < 2 || quitting || !s.Idle() {
			return
		}
		quitting = true
		input <- console.Quit{}
	}

	if err := console.Run(ctx, engine, inbound, input, render); err != nil {
		return nil, err
	}
	return engine.State(), nil
}

// reportNodes prints node health and any failures. It returns an error when
// a node is not online.
func reportNodes(w io.Writer, s *console.State) error {
	styles := ui.NewStyles(ui.LightTheme())

	tbl := ui.NewTable("Node health", "Name", "Endpoint", "Status", "Docker", "Traefik")
	tbl.Empty = "No nodes in the inventory."
	// A failed check leaves the stored status alone, so read failures from
	// the operation registry.
	failed := make(map[uuid.UUID]bool)
	for _, op := range s.Operations.All() {
		if op.Kind == console.OpNodeHealth && op.Status == console.OpFailed {
			failed[op.Target] = true
		}
	}

	down := 0
	for _, n := range s.Nodes {
		status := string(n.Status)
		if failed[n.ID] {
			status = "Unreachable"
		}
		docker, traefik := "-", "-"
		if n.DockerInfo != nil {
			docker = fmt.Sprintf("%s (%d running)", n.DockerInfo.Version, n.DockerInfo.ContainersRunning)
		}
		if n.TraefikInfo != nil {
			traefik = fmt.Sprintf("%s (%d routers)", n.TraefikInfo.Version, n.TraefikInfo.RoutersCount)
		}
		if failed[n.ID] || n.Status != models.NodeOnline {
			down++
		}
		tbl.AddRow(n.Name, n.APIEndpoint, status, docker, traefik)
	}
	fmt.Fprint(w, tbl.View(styles))

	for _, n := range s.Notifications.Items() {
		if n.Level == console.LevelError || n.Level == console.LevelWarning {
			fmt.Fprintf(w, "%s: %s\n", n.Level, n.Message)
		}
	}

	if down > 0 {
		return fmt.Errorf("%d of %d nodes not online", down, len(s.Nodes))
	}
	return nil
}
