package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexcodex/reagent/agents"
)

var (
	cfgFile   string
	workspace string
	debug     bool

	globalCfg *agents.GlobalConfig
	logger    = slog.Default()
)

// Execute is the entry point for the CLI. Interrupts cancel the command
// context so a running task stops cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reagent",
		Short:         "ReAct coding agent for your workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ws, err := resolveWorkspace(workspace)
			if err != nil {
				return err
			}
			workspace = ws
			if cfgFile == "" {
				cfgFile = agents.DefaultConfigPath(workspace)
			}
			cfg, err := agents.LoadGlobalConfig(cfgFile, workspace)
			if err != nil {
				return err
			}
			if debug {
				cfg.Logging.Level = "debug"
				cfg.Logging.Agent = true
			}
			globalCfg = cfg
			l, err := newLogger(cmd.ErrOrStderr(), cfg.Logging)
			if err != nil {
				return err
			}
			logger = l
			slog.SetDefault(l)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLogFile()
		},
	}
	root.PersistentFlags().StringVar(&workspace, "workspace", "", "Workspace directory (default: current directory)")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default: <workspace>/.reagent/config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newRunCmd(),
		newPlanCmd(),
		newChatCmd(),
		newServeCmd(),
		newToolsCmd(),
		newConfigCmd(),
		newHistoryCmd(),
	)
	return root
}
