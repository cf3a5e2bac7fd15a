package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPlanCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "plan [task]",
		Short: "Print a step plan for a task without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")
			session, err := buildSession(globalCfg, true, nil, nil)
			if err != nil {
				return err
			}
			progress := func(msg string) {
				logger.Debug("planner progress", "msg", msg)
			}
			plan := session.Planner.CreatePlan(cmd.Context(), task, progress)
			if asYAML {
				data, err := yaml.Marshal(plan)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), plan.Format())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the plan as YAML")
	return cmd
}
