package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexcodex/reagent/framework"
)

// newHistoryCmd manages saved sessions in the sqlite store.
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved sessions",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryDeleteCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(globalCfg)
			if err != nil {
				return err
			}
			defer store.Close()
			sessions, err := store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved sessions.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPDATED\tMESSAGES\tTITLE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.UpdatedAt.Local().Format(time.RFC822), s.MessageCount, s.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list (0 for all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var withSystem bool
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a saved transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(globalCfg)
			if err != nil {
				return err
			}
			defer store.Close()
			session, err := store.LoadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %s · %s · updated %s\n", session.ID, session.Title, session.UpdatedAt.Local().Format(time.RFC822))
			for _, msg := range session.Messages {
				if msg.Role == framework.RoleSystem && !withSystem {
					continue
				}
				fmt.Fprintf(out, "\n[%s]\n%s\n", msg.Role, msg.Content)
			}
			plan, err := store.LatestPlan(cmd.Context(), session.ID)
			if err != nil {
				return err
			}
			if plan != nil {
				fmt.Fprintf(out, "\nPlan:\n%s", plan.Markdown())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSystem, "system", false, "Include the system prompt")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(globalCfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", args[0])
			return nil
		},
	}
}
