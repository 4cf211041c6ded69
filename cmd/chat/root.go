package main

import (
	"ai-pdfchat-client/internal/config"

	"github.com/spf13/cobra"
)

var (
	apiURL       string
	stateBackend string
	cfg          *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pdfchat",
	Short: "Chat with your PDF documents from the terminal",
	Long: `A terminal client for the PDF chat service.

Quick Start:
  pdfchat login --email you@example.com    # Sign in
  pdfchat send --file report.pdf           # Upload and summarize a document
  pdfchat send "What are the key risks?"   # Ask about it
  pdfchat repl                             # Interactive conversation`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if apiURL != "" {
			cfg.App.APIBaseURL = apiURL
		}
		if stateBackend != "" {
			cfg.State.Backend = stateBackend
		}
		return cfg.Validate()
	},
}

// openApp wires the client for commands that talk to the service.
func openApp(cmd *cobra.Command) (*app, error) {
	return newApp(cmd.Context(), cfg)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Chat service base URL (overrides CHAT_API_URL)")
	rootCmd.PersistentFlags().StringVar(&stateBackend, "state", "", "Client state backend: file, redis or memory (overrides STATE_BACKEND)")

	rootCmd.AddCommand(loginCmd, logoutCmd, sessionsCmd, sendCmd, replCmd, logsCmd, watchCmd)
}
