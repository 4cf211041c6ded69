package main

import (
	"fmt"
	"io"
	"strings"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/pkg/events"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	aiStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212"))

	referenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	sessionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorLine  = color.New(color.FgRed, color.Bold)
	noticeLine = color.New(color.FgGreen)
)

// renderer turns chat events into terminal output. Streaming answers are
// written as deltas so the text appears token by token.
type renderer struct {
	out io.Writer

	activeId string
	shown    string
	closed   bool

	sessionId   string
	sessionName string
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) Handle(event events.Event) {
	switch event.EventType() {
	case constant.EventMessageUpdated:
		var msg dto.MessageView
		if err := events.DecodePayload(event, "message", &msg); err == nil {
			r.message(msg)
		}
	case constant.EventNotification:
		var n dto.Notification
		if err := events.DecodePayload(event, "notification", &n); err == nil {
			r.notification(n)
		}
	case constant.EventPhaseChanged:
		var phase string
		if err := events.DecodePayload(event, "phase", &phase); err == nil && phase == "ingesting" {
			fmt.Fprintln(r.out, phaseStyle.Render("Processing files..."))
		}
	case constant.EventSessionChanged:
		var s dto.SessionView
		if err := events.DecodePayload(event, "session", &s); err == nil {
			r.session(s)
		}
	}
}

func (r *renderer) message(m dto.MessageView) {
	if m.Sender != constant.ChatMessageSenderAI {
		return
	}

	restart := false
	switch {
	case r.activeId == "":
		restart = true
	case r.closed:
		if !m.IsStreaming && m.Id == r.activeId && m.Content == r.shown {
			return
		}
		restart = true
	case m.Id != r.activeId:
		restart = true
	}
	if restart {
		fmt.Fprint(r.out, aiStyle.Render("Assistant")+" ")
		r.activeId = m.Id
		r.shown = ""
		r.closed = false
	}

	switch {
	case m.Content == constant.ErrorMessageMarker:
		if r.shown != "" {
			fmt.Fprintln(r.out)
		}
		fmt.Fprint(r.out, errorLine.Sprint(m.Content))
	case strings.HasPrefix(m.Content, r.shown):
		fmt.Fprint(r.out, m.Content[len(r.shown):])
	default:
		fmt.Fprint(r.out, "\n"+m.Content)
	}
	r.shown = m.Content

	if !m.IsStreaming {
		fmt.Fprintln(r.out)
		r.references(m.References)
		r.closed = true
	}
}

func (r *renderer) references(refs []dto.ReferenceDTO) {
	for _, ref := range refs {
		fmt.Fprintln(r.out, referenceStyle.Render(fmt.Sprintf("  [%s, p.%d] %s", ref.Source, ref.Page, ref.Text)))
	}
}

func (r *renderer) notification(n dto.Notification) {
	line := n.Title
	if n.Description != "" {
		line += ": " + n.Description
	}
	if n.Destructive {
		errorLine.Fprintln(r.out, "✗ "+line)
		return
	}
	noticeLine.Fprintln(r.out, "✓ "+line)
}

func (r *renderer) session(s dto.SessionView) {
	if s.Id == "" || s.Id == constant.NewSessionID {
		return
	}
	if s.Id == r.sessionId && s.Name == r.sessionName {
		return
	}
	r.sessionId, r.sessionName = s.Id, s.Name
	fmt.Fprintln(r.out, sessionStyle.Render("Session: "+s.Name))
}

// printHistory writes a whole conversation, e.g. after switching sessions.
func printHistory(out io.Writer, messages []dto.MessageView) {
	for _, m := range messages {
		label := aiStyle.Render("Assistant")
		if m.Sender == constant.ChatMessageSenderUser {
			label = userStyle.Render("You")
		}
		content := m.Content
		if content == "" && len(m.Attachments) > 0 {
			names := make([]string, 0, len(m.Attachments))
			for _, a := range m.Attachments {
				names = append(names, a.Name)
			}
			content = "[" + strings.Join(names, ", ") + "]"
		}
		fmt.Fprintf(out, "%s %s\n", label, content)
		for _, ref := range m.References {
			fmt.Fprintln(out, referenceStyle.Render(fmt.Sprintf("  [%s, p.%d] %s", ref.Source, ref.Page, ref.Text)))
		}
	}
}

// printSessions lists sessions newest first, marking the active one.
func printSessions(out io.Writer, view dto.ChatView) {
	if len(view.Sessions) == 0 {
		fmt.Fprintln(out, "No conversations yet.")
		return
	}
	for _, s := range view.Sessions {
		marker := "  "
		if s.Id == view.CurrentSession.Id {
			marker = "* "
		}
		fmt.Fprintf(out, "%s%s  %s  %s\n",
			marker,
			sessionStyle.Render(s.Id),
			s.Name,
			phaseStyle.Render(s.LastActive.Local().Format("2006-01-02 15:04")),
		)
	}
}
