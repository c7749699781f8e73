package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"streamchat/internal/api"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		client := api.NewClient(cfg.ServerURL)

		sessions, err := client.ListSessions(context.Background())
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, headerStyle.Render("ID")+"\t"+headerStyle.Render("NAME")+"\t"+headerStyle.Render("MESSAGES")+"\t"+headerStyle.Render("CREATED"))
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				idStyle.Render(s.ID), s.Name, s.MessageCount, s.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <name>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		client := api.NewClient(cfg.ServerURL)

		sess, err := client.RenameSession(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %q\n", sess.ID, sess.Name)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		client := api.NewClient(cfg.ServerURL)

		if err := client.DeleteSession(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var sessionsDuplicateCmd = &cobra.Command{
	Use:   "duplicate <session-id>",
	Short: "Copy a session including its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		client := api.NewClient(cfg.ServerURL)

		sess, err := client.DuplicateSession(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created %s (%q)\n", sess.ID, sess.Name)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		client := api.NewClient(cfg.ServerURL)

		msgs, err := client.GetMessages(context.Background(), args[0])
		if err != nil {
			return err
		}
		for _, m := range msgs {
			label := m.Role
			if m.ModelUsed != "" {
				label += " (" + m.ModelUsed + ")"
			}
			fmt.Printf("%s\n%s\n\n", headerStyle.Render(label), m.Content)
		}
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsRenameCmd, sessionsDeleteCmd, sessionsDuplicateCmd)
	rootCmd.AddCommand(sessionsCmd)
}
