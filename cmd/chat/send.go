package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var (
	sendFiles   []string
	sendSession string
	sendNew     bool
)

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Ask a question, optionally with PDF attachments",
	Long: `Send one message and stream the answer.

With --file and no message the documents are uploaded and summarized.
Ctrl-C stops the answer and keeps what was received so far.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		stop, err := a.render(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer stop()

		ctx := cmd.Context()
		switch {
		case sendNew:
			if _, err := a.chat.CreateSession(ctx); err != nil {
				return err
			}
		case sendSession != "":
			if err := switchTo(ctx, a.chat, sendSession); err != nil {
				return err
			}
		}

		if len(sendFiles) > 0 && a.chat.AddFiles(ctx, sendFiles) == 0 && len(args) == 0 {
			return errors.New("no PDF to send")
		}
		a.chat.SetInput(strings.Join(args, " "))

		interrupt, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		go func() {
			<-interrupt.Done()
			a.chat.Stop(ctx)
		}()

		return a.chat.Send(ctx)
	},
}

func init() {
	sendCmd.Flags().StringArrayVarP(&sendFiles, "file", "f", nil, "PDF to attach (repeatable)")
	sendCmd.Flags().StringVar(&sendSession, "session", "", "Send in this conversation instead of the last one")
	sendCmd.Flags().BoolVar(&sendNew, "new", false, "Start a new conversation")
}
