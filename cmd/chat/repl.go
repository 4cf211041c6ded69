package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"ai-pdfchat-client/pkg/chat/generation"

	"github.com/spf13/cobra"
)

const replHelp = `Commands:
  /file <path>...     attach PDFs to the next message
  /remove <n>         drop the n-th pending attachment
  /send               send pending attachments without a question
  /stop               stop the answer being generated
  /regen              answer the last question again
  /new                start a new conversation
  /load <id>          switch conversation
  /sessions           list conversations
  /rename <name>      rename the current conversation
  /delete <id>        delete a conversation
  /quit               leave`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		stop, err := a.render(out)
		if err != nil {
			return err
		}
		defer stop()

		view := a.chat.View()
		fmt.Fprintln(out, sessionStyle.Render("Session: "+view.CurrentSession.Name))
		printHistory(out, view.Messages)
		fmt.Fprintln(out, phaseStyle.Render("Type a question, or /help."))

		r := &repl{app: a, out: out}
		return r.run(cmd.Context(), cmd.InOrStdin())
	},
}

type repl struct {
	app  *app
	out  io.Writer
	turn chan error
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				r.wait()
				return nil
			}
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				r.app.chat.Stop(ctx)
				r.wait()
				return nil
			}
		case err := <-r.turn:
			r.turn = nil
			r.turnEnded(err)
		case <-interrupts:
			if r.turn == nil {
				return nil
			}
			r.app.chat.Stop(ctx)
		}
	}
}

// handle runs one input line and reports whether the loop should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if r.busy() {
			return false
		}
		r.app.chat.SetInput(line)
		r.start(ctx, r.app.chat.Send)
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	chat := r.app.chat

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, replHelp)
	case "/stop":
		if !chat.Stop(ctx) {
			fmt.Fprintln(r.out, phaseStyle.Render("Nothing to stop."))
		}
	case "/file":
		chat.AddFiles(ctx, strings.Fields(arg))
	case "/remove":
		n, err := strconv.Atoi(arg)
		if err != nil || !chat.RemoveFile(ctx, n-1) {
			fmt.Fprintln(r.out, phaseStyle.Render("No such attachment."))
		}
	case "/send":
		if !r.busy() {
			chat.SetInput("")
			r.start(ctx, chat.Send)
		}
	case "/regen":
		if !r.busy() {
			r.start(ctx, chat.Regenerate)
		}
	case "/new":
		if _, err := chat.CreateSession(ctx); err == nil {
			fmt.Fprintln(r.out, phaseStyle.Render("Started a new conversation."))
		}
	case "/load":
		err := switchTo(ctx, chat, arg)
		switch {
		case err == nil:
			printHistory(r.out, chat.View().Messages)
		case errors.Is(err, errUnknownSession):
			fmt.Fprintln(r.out, phaseStyle.Render("Unknown conversation."))
		}
	case "/sessions":
		if err := chat.RefreshSessions(ctx); err == nil {
			printSessions(r.out, chat.View())
		}
	case "/rename":
		current := chat.View().CurrentSession.Id
		if err := chat.RenameSession(ctx, current, arg); err != nil {
			fmt.Fprintln(r.out, phaseStyle.Render(err.Error()))
		}
	case "/delete":
		_ = chat.DeleteSession(ctx, arg)
	default:
		fmt.Fprintln(r.out, phaseStyle.Render("Unknown command, try /help."))
	}
	return false
}

func (r *repl) start(ctx context.Context, turn func(context.Context) error) {
	done := make(chan error, 1)
	r.turn = done
	go func() { done <- turn(ctx) }()
}

// turnEnded reports rejected turns; other failures were already shown as
// notifications.
func (r *repl) turnEnded(err error) {
	switch {
	case err == nil:
	case errors.Is(err, generation.ErrEmptyTurn), errors.Is(err, generation.ErrNothingToRegenerate):
		fmt.Fprintln(r.out, phaseStyle.Render(err.Error()+"."))
	default:
		r.app.log.Debug(logModule, "Turn ended with error", map[string]interface{}{"error": err.Error()})
	}
}

func (r *repl) busy() bool {
	if r.turn != nil {
		fmt.Fprintln(r.out, phaseStyle.Render("Still answering, /stop to interrupt."))
		return true
	}
	return false
}

func (r *repl) wait() {
	if r.turn != nil {
		r.turnEnded(<-r.turn)
		r.turn = nil
	}
}
