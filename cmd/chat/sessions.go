package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-pdfchat-client/internal/service"

	"github.com/spf13/cobra"
)

var (
	errSignedOut      = errors.New("not signed in, run `pdfchat login` first")
	errUnknownSession = errors.New("unknown session")
)

// switchTo loads id and fails when it is not one of the user's sessions.
// LoadSession itself ignores unknown ids.
func switchTo(ctx context.Context, chat service.IChatService, id string) error {
	if err := chat.LoadSession(ctx, id); err != nil {
		return err
	}
	if chat.View().CurrentSession.Id != id {
		return fmt.Errorf("%w %s", errUnknownSession, id)
	}
	return nil
}

// openSignedIn is openApp for commands that need an access token.
func openSignedIn(cmd *cobra.Command) (*app, error) {
	a, err := openApp(cmd)
	if err != nil {
		return nil, err
	}
	if !a.chat.IsAuthenticated() {
		a.Close()
		return nil, errSignedOut
	}
	return a, nil
}

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "List conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		printSessions(cmd.OutOrStdout(), a.chat.View())
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := a.chat.CreateSession(cmd.Context())
		if err != nil {
			return err
		}
		noticeLine.Fprintf(cmd.OutOrStdout(), "✓ Created %s (%s)\n", created.Name, created.Id)
		return nil
	},
}

var sessionsUseCmd = &cobra.Command{
	Use:   "use <session-id>",
	Short: "Switch to a conversation and show its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := switchTo(cmd.Context(), a.chat, args[0]); err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), a.chat.View().Messages)
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <name>",
	Short: "Rename a conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.chat.RenameSession(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		printSessions(cmd.OutOrStdout(), a.chat.View())
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.chat.DeleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		noticeLine.Fprintln(cmd.OutOrStdout(), "✓ Deleted "+args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsNewCmd, sessionsUseCmd, sessionsRenameCmd, sessionsDeleteCmd)
}
