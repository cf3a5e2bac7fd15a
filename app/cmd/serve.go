package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lexcodex/reagent/agents"
	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/server"
	"github.com/lexcodex/reagent/tools"
)

func newServeCmd() *cobra.Command {
	var addr string
	var stdio bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over HTTP or JSON-RPC on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelOverride == nil {
				if err := globalCfg.Validate(); err != nil {
					return err
				}
			}
			telemetry, closeTrace := withTrace(globalCfg, framework.LoggerTelemetry{Logger: logger})
			defer closeTrace()
			shared, err := tools.NewShared(globalCfg.Workspace)
			if err != nil {
				return err
			}
			factory := func(planFirst bool) (*agents.Session, error) {
				return buildSession(globalCfg, planFirst, telemetry, shared)
			}
			ctx := cmd.Context()
			if stdio {
				rpc := &server.RPCServer{NewSession: factory, Logger: logger.With("component", "rpc")}
				return rpc.ServeStdio(ctx)
			}
			api := &server.APIServer{NewSession: factory, Logger: logger.With("component", "api")}
			if err := api.ServeContext(ctx, addr); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Speak JSON-RPC on stdin/stdout instead of HTTP")
	return cmd
}
