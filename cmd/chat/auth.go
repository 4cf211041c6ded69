package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginEmail == "" || loginPassword == "" {
			if err := promptCredentials(cmd); err != nil {
				return err
			}
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.chat.Login(cmd.Context(), loginEmail, loginPassword); err != nil {
			return err
		}
		noticeLine.Fprintf(cmd.OutOrStdout(), "✓ Signed in as %s\n", strings.ToLower(strings.TrimSpace(loginEmail)))
		printSessions(cmd.OutOrStdout(), a.chat.View())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the access token and the last conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.chat.Logout(cmd.Context()); err != nil {
			return err
		}
		noticeLine.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
		return nil
	},
}

// promptCredentials reads missing credentials from stdin.
func promptCredentials(cmd *cobra.Command) error {
	in := bufio.NewReader(cmd.InOrStdin())
	read := func(label string) (string, error) {
		fmt.Fprint(cmd.OutOrStdout(), label)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", errors.New("no input")
		}
		return strings.TrimSpace(line), nil
	}

	var err error
	if loginEmail == "" {
		if loginEmail, err = read("Email: "); err != nil {
			return err
		}
	}
	if loginPassword == "" {
		if loginPassword, err = read("Password: "); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when empty)")
}
