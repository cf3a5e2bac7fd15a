package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			fcfg := globalCfg.ToFramework()
			registry, err := tools.NewRegistry(tools.Options{
				Workspace:      fcfg.Workspace,
				CommandTimeout: fcfg.CommandTimeout,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tool := range registry.All() {
				fmt.Fprintf(out, "%s (%s)\n  %s\n", framework.ClassName(tool.Name()), tool.Name(), tool.Description())
				var params []string
				for _, p := range tool.Parameters() {
					name := p.Name
					if !p.Required {
						name += "?"
					}
					params = append(params, name)
				}
				if len(params) > 0 {
					fmt.Fprintf(out, "  params: %s\n", strings.Join(params, ", "))
				}
			}
			return nil
		},
	}
}
