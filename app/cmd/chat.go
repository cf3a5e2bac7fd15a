package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lexcodex/reagent/app/tui"
)

func newChatCmd() *cobra.Command {
	var plan bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if globalCfg.Logging.File == "" {
				// stderr output would tear the alt screen
				globalCfg.Logging.File = defaultLogPath()
				l, err := newLogger(cmd.ErrOrStderr(), globalCfg.Logging)
				if err != nil {
					return err
				}
				logger = l
			}
			session, err := buildSession(globalCfg, plan, nil, nil)
			if err != nil {
				return err
			}
			store, err := openStore(globalCfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return tui.Run(cmd.Context(), tui.Options{
				Controller: &tui.SessionController{Session: session, Store: store, Logger: logger},
				Workspace:  workspace,
				ModelName:  globalCfg.Model.Name,
			})
		},
	}
	cmd.Flags().BoolVar(&plan, "plan", false, "Plan before acting on each task")
	return cmd
}
