package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"archon/cmd/archon/ui"
	"archon/internal/config"
	"archon/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	metricsAddr string

	// check flags
	checkTimeout time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "archon",
	Short: "archon - terminal console for self-hosted sites",
	Long: `archon manages containerised sites, their domains and DNS records, and the
nodes that run them. Nodes run the archon agent; archon talks to them over HTTP.

Run without arguments to start the interactive console.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = config.DefaultPath()
		}

		logCfg := config.LoggingFromEnv(configPath)
		if verbose {
			logCfg.DebugMode = true
			logCfg.Level = "debug"
		}
		if err := logging.Initialize(logCfg); err != nil {
			return fmt.Errorf("failed to initialize file logging: %w", err)
		}
		logging.Boot("archon %s starting (%s), config %s", config.Version, cmd.CalledAs(), configPath)

		// The interactive console owns the terminal
		if cmd == cmd.Root() {
			logger = zap.NewNop()
			return nil
		}

		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runConsole,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Health-check every node and print the result",
	Long: `Runs a health check against every node in the inventory, records the
results in the inventory and prints a summary. Exits non-zero when any node
is not online.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List nodes in the inventory",
	Args:  cobra.NoArgs,
	RunE:  listNodes,
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List sites in the inventory",
	Args:  cobra.NoArgs,
	RunE:  listSites,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the archon version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "archon %s\n", config.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Inventory file (default: $ARCHON_CONFIG or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")

	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 45*time.Second, "Give up after this long")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runConsole starts the interactive console
func runConsole(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sess, err := openSession(ctx, configPath, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	p := tea.NewProgram(
		ui.New(sess.engine, sess.inbound),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err = p.Run()
	return err
}
