package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/reagent/persistence"
)

func newRunCmd() *cobra.Command {
	var plan bool
	var model string
	var planningModel string

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run one task to completion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")
			cfg := *globalCfg
			if model != "" {
				cfg.Model.Name = model
			}
			if planningModel != "" {
				cfg.Model.PlanningModel = planningModel
			}

			printer := transcriptPrinter{out: cmd.OutOrStdout()}
			sink, closeTrace := withTrace(&cfg, printer)
			defer closeTrace()
			session, err := buildSession(&cfg, plan, sink, nil)
			if err != nil {
				return err
			}
			session.Agent.OnProgress = printer.progress

			ctx := cmd.Context()
			result, runErr := session.Agent.Run(ctx, task)

			store, err := openStore(&cfg)
			if err != nil {
				logger.Warn("session not saved", "error", err)
				return runErr
			}
			defer store.Close()
			id := ""
			if result != nil {
				id = result.TaskID
			}
			record := &persistence.Session{
				ID:       id,
				Title:    sessionTitle(task),
				Messages: session.Agent.Window().GetMessages(),
			}
			saveCtx := context.WithoutCancel(ctx)
			if err := store.SaveSession(saveCtx, record); err != nil {
				logger.Warn("session not saved", "error", err)
			} else if p := session.State.Plan(); p != nil {
				if err := store.SavePlan(saveCtx, record.ID, p); err != nil {
					logger.Warn("plan not saved", "error", err)
				}
			}
			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					printer.progress("Interrupted.")
				}
				return runErr
			}
			logger.Debug("session saved", "id", record.ID, "turns", result.Turns)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plan, "plan", false, "Create a step plan before acting")
	cmd.Flags().StringVar(&model, "model", "", "Override the execution model")
	cmd.Flags().StringVar(&planningModel, "planning-model", "", "Override the planning model")
	return cmd
}
