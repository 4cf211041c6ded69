// Package generation sequences one conversational turn: session creation,
// file ingestion, the answer stream, finalization and persistence.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/entity"
	"ai-pdfchat-client/internal/mapper"
	"ai-pdfchat-client/internal/pkg/apperr"
	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/pkg/chat/ledger"
	"ai-pdfchat-client/pkg/chat/naming"
	"ai-pdfchat-client/pkg/chat/stream"
	"ai-pdfchat-client/pkg/events"
)

const logModule = "GenerationController"

var (
	ErrBusy                = errors.New("a turn is already in flight")
	ErrEmptyTurn           = errors.New("nothing to send")
	ErrNothingToRegenerate = errors.New("no answer to regenerate")
)

// Sessions is the part of the session store the controller drives.
type Sessions interface {
	Active() entity.ChatSession
	Lookup(id string) (entity.ChatSession, bool)
	CreateRemote(ctx context.Context) (entity.ChatSession, error)
	Activate(ctx context.Context, id string) (entity.ChatSession, bool)
	Rename(ctx context.Context, id, name string) (entity.ChatSession, bool)
	Touch(id string, t time.Time)
}

// Backend is the remote answering service.
type Backend interface {
	SaveMessage(ctx context.Context, req *dto.SaveMessageRequest) error
	Upload(ctx context.Context, sessionId string, file entity.PendingUpload) error
	OpenStream(ctx context.Context, req *dto.StreamRequest) (io.ReadCloser, error)
}

// Composer is what the user is typing. It is cleared once a turn has been
// committed to the ledger.
type Composer interface {
	Snapshot() (string, []entity.PendingUpload)
	Clear()
}

// Turn is one user submission.
type Turn struct {
	Text    string
	Uploads []entity.PendingUpload
}

type Controller struct {
	sessions  Sessions
	ledger    *ledger.Ledger
	backend   Backend
	composer  Composer
	publisher events.Publisher
	log       logger.ILogger
	mapper    *mapper.ChatMapper

	mu        sync.Mutex
	phase     Phase
	run       uint64
	discarded uint64
	cancel    context.CancelFunc
}

func NewController(
	sessions Sessions,
	ledger *ledger.Ledger,
	backend Backend,
	composer Composer,
	publisher events.Publisher,
	log logger.ILogger,
) *Controller {
	return &Controller{
		sessions:  sessions,
		ledger:    ledger,
		backend:   backend,
		composer:  composer,
		publisher: publisher,
		log:       log,
		mapper:    mapper.NewChatMapper(),
	}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Send runs a whole turn and returns when it has settled. A rejected turn
// (ErrEmptyTurn, ErrBusy) has no side effects. Other errors have already
// been surfaced as a notification.
func (c *Controller) Send(ctx context.Context, turn Turn) error {
	text := strings.TrimSpace(turn.Text)
	if text == "" && len(turn.Uploads) == 0 {
		return ErrEmptyTurn
	}

	runCtx, run, err := c.begin(ctx, EnsuringSession)
	if err != nil {
		return err
	}
	defer c.finish(run)

	return c.submit(ctx, runCtx, run, text, turn.Uploads)
}

// submit commits the user message and answers it. The run is in
// EnsuringSession.
func (c *Controller) submit(ctx, runCtx context.Context, run uint64, text string, uploads []entity.PendingUpload) error {
	session := c.sessions.Active()
	if session.IsPlaceholder() {
		created, err := c.sessions.CreateRemote(runCtx)
		if err != nil {
			if c.isCurrent(run) {
				c.notify(ctx, "Failed to create session", err)
			}
			return err
		}
		adopted, ok := c.adopt(ctx, run, created.Id)
		if !ok {
			c.log.Info(logModule, "Created session left inactive, turn was cancelled", map[string]interface{}{
				"session_id": created.Id,
			})
			return nil
		}
		c.publish(ctx, constant.EventSessionChanged, map[string]interface{}{
			"session": c.mapper.SessionToView(adopted),
		})
		session = adopted
	}
	if !c.isCurrent(run) {
		return nil
	}

	userMsg := c.ledger.AppendUser(text, attachmentsOf(uploads))
	c.publishMessage(ctx, session.Id, userMsg)
	if c.composer != nil {
		c.composer.Clear()
	}
	c.persist(runCtx, session.Id, userMsg)

	files := fileNames(uploads)
	if len(uploads) > 0 {
		if !c.advance(ctx, run, Ingesting) {
			return nil
		}
		c.nameBeforeSummary(runCtx, ctx, session.Id, files)

		if err := c.ingest(runCtx, session.Id, uploads); err != nil {
			if c.isCurrent(run) {
				c.notify(ctx, "Failed to upload files", err)
			}
			return err
		}
	}

	prompt := text
	if prompt == "" {
		prompt = constant.SummaryPrompt
	}
	return c.answer(ctx, runCtx, run, session.Id, prompt, files)
}

// Regenerate drops the trailing answer and runs the question flow again.
// Whatever the composer holds is sent as a new turn; with an empty composer
// the latest user question is asked again.
func (c *Controller) Regenerate(ctx context.Context) error {
	session := c.sessions.Active()
	if session.IsPlaceholder() || !c.ledger.HasAI() {
		return ErrNothingToRegenerate
	}

	var text string
	var uploads []entity.PendingUpload
	if c.composer != nil {
		text, uploads = c.composer.Snapshot()
		text = strings.TrimSpace(text)
	}
	fromComposer := text != "" || len(uploads) > 0

	first := Streaming
	if fromComposer {
		first = EnsuringSession
	}
	runCtx, run, err := c.begin(ctx, first)
	if err != nil {
		return err
	}
	defer c.finish(run)

	if last, ok := c.ledger.Last(); ok && last.IsAI() {
		c.ledger.RollbackLast()
		c.publish(ctx, constant.EventLedgerReplaced, map[string]interface{}{
			"session_id": session.Id,
			"messages":   c.views(),
		})
	}

	c.log.Info(logModule, "Regenerating answer", map[string]interface{}{
		"session_id":    session.Id,
		"from_composer": fromComposer,
	})
	if fromComposer {
		return c.submit(ctx, runCtx, run, text, uploads)
	}

	prompt := constant.SummaryPrompt
	if question, ok := c.ledger.LastUser(); ok && strings.TrimSpace(question.Content) != "" {
		prompt = strings.TrimSpace(question.Content)
	}
	return c.answer(ctx, runCtx, run, session.Id, prompt, nil)
}

// Stop ends the current turn at once. The open stream is cancelled and the
// answer keeps the text received so far.
func (c *Controller) Stop(ctx context.Context) bool {
	if !c.halt(false) {
		return false
	}
	c.publish(ctx, constant.EventNotification, map[string]interface{}{
		"notification": dto.Notification{
			Title:       "Generation stopped",
			Description: "The response generation has been stopped.",
		},
	})
	return true
}

// Abandon cancels the current turn without a notification and drops its
// answer. Used when the ledger is about to be replaced.
func (c *Controller) Abandon() bool {
	return c.halt(true)
}

func (c *Controller) answer(ctx, runCtx context.Context, run uint64, sessionId, prompt string, files []string) error {
	if !c.advance(ctx, run, Streaming) {
		return nil
	}

	placeholder := c.ledger.AppendStreamingPlaceholder()
	if msg, ok := c.ledger.Get(placeholder); ok {
		c.publishMessage(ctx, sessionId, msg)
	}

	content, streamErr := c.consume(ctx, runCtx, run, sessionId, placeholder, prompt)

	if !c.isCurrent(run) {
		if c.isDiscarded(run) {
			c.log.Debug(logModule, "Discarding answer of an abandoned turn", map[string]interface{}{
				"session_id": sessionId,
			})
			return nil
		}
		// Stopped: the answer keeps its partial text.
		final, err := c.ledger.Finalize(placeholder, content, nil)
		if err != nil {
			c.log.Debug(logModule, "Discarding answer of a cancelled turn", map[string]interface{}{
				"session_id": sessionId,
				"reason":     err.Error(),
			})
			return nil
		}
		c.publishMessage(ctx, sessionId, final)
		c.persist(ctx, sessionId, final)
		return nil
	}

	if streamErr != nil {
		if final, err := c.ledger.FinalizeError(placeholder); err == nil {
			c.publishMessage(ctx, sessionId, final)
		}
		c.notify(ctx, apperr.Title(streamErr), streamErr)
		return streamErr
	}

	if !c.advance(ctx, run, Finalizing) {
		return nil
	}
	final, err := c.ledger.Finalize(placeholder, content, nil)
	if err != nil {
		return nil
	}
	c.publishMessage(ctx, sessionId, final)

	if c.persist(ctx, sessionId, final) {
		c.sessions.Touch(sessionId, time.Now())
	}
	c.nameAfterSummary(ctx, sessionId, files, final.Content)

	c.log.Info(logModule, "Answer finalized", map[string]interface{}{
		"session_id": sessionId,
		"length":     len(final.Content),
		"references": len(final.References),
	})
	return nil
}

// consume reads the stream into the placeholder, one ledger update and one
// event per fragment. It returns the raw accumulated text.
func (c *Controller) consume(ctx, runCtx context.Context, run uint64, sessionId, placeholder, prompt string) (string, error) {
	body, err := c.backend.OpenStream(runCtx, &dto.StreamRequest{
		Input: dto.StreamInput{
			Question:    prompt,
			ChatHistory: [][]string{},
		},
		Config: dto.StreamConfig{
			Configurable: dto.StreamConfigurable{SessionId: sessionId},
		},
	})
	if err != nil {
		return "", fmt.Errorf("open stream: %w", err)
	}
	defer body.Close()

	var acc strings.Builder
	decoder := stream.NewDecoder(body, c.log)
	for decoder.Next() {
		if !c.isCurrent(run) {
			break
		}
		frag := decoder.Fragment()
		msg, err := c.ledger.ApplyFragment(placeholder, frag)
		if err != nil {
			c.log.Debug(logModule, "Dropping fragment of a stale stream", map[string]interface{}{
				"session_id": sessionId,
				"reason":     err.Error(),
			})
			break
		}
		acc.WriteString(frag.Answer)
		c.publishMessage(ctx, sessionId, msg)
	}
	return acc.String(), decoder.Err()
}

func (c *Controller) ingest(ctx context.Context, sessionId string, uploads []entity.PendingUpload) error {
	c.notifyInfo(ctx, "Uploading PDFs", "Sending to server...")
	for i, file := range uploads {
		if err := c.backend.Upload(ctx, sessionId, file); err != nil {
			c.log.Error(logModule, "Upload failed", map[string]interface{}{
				"session_id": sessionId,
				"file":       file.Name,
				"position":   i,
				"error":      err.Error(),
			})
			return fmt.Errorf("upload %s: %w", file.Name, err)
		}
		c.log.Info(logModule, "File uploaded", map[string]interface{}{
			"session_id": sessionId,
			"file":       file.Name,
		})
	}
	c.notifyInfo(ctx, "PDFs uploaded", "Generating answer...")
	return nil
}

func (c *Controller) nameBeforeSummary(runCtx, ctx context.Context, sessionId string, files []string) {
	current, ok := c.sessions.Lookup(sessionId)
	if !ok || !naming.IsUnnamed(current.Name, len(files)) {
		return
	}
	name, ok := naming.PreSummary(files)
	if !ok {
		return
	}
	c.rename(runCtx, ctx, sessionId, name)
}

func (c *Controller) nameAfterSummary(ctx context.Context, sessionId string, files []string, content string) {
	current, ok := c.sessions.Lookup(sessionId)
	if !ok || !naming.IsUnnamed(current.Name, len(files)) {
		return
	}
	c.rename(ctx, ctx, sessionId, naming.PostSummary(files, content))
}

func (c *Controller) rename(callCtx, ctx context.Context, sessionId, name string) {
	renamed, ok := c.sessions.Rename(callCtx, sessionId, name)
	if !ok {
		return
	}
	c.publish(ctx, constant.EventSessionChanged, map[string]interface{}{
		"session": c.mapper.SessionToView(renamed),
	})
}

// persist saves a message best effort and reports whether it succeeded.
func (c *Controller) persist(ctx context.Context, sessionId string, msg entity.ChatMessage) bool {
	if err := c.backend.SaveMessage(ctx, c.mapper.MessageToSaveRequest(sessionId, msg)); err != nil {
		c.log.Warn(logModule, "Failed to persist message", map[string]interface{}{
			"session_id": sessionId,
			"sender":     msg.Sender,
			"error":      err.Error(),
		})
		return false
	}
	return true
}

// begin claims the controller for a new run.
func (c *Controller) begin(ctx context.Context, first Phase) (context.Context, uint64, error) {
	c.mu.Lock()
	if c.phase != Idle {
		phase := c.phase
		c.mu.Unlock()
		c.log.Debug(logModule, "Turn rejected, controller busy", map[string]interface{}{"phase": phase.String()})
		return nil, 0, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.run++
	run := c.run
	c.cancel = cancel
	c.phase = first
	c.mu.Unlock()

	c.publishPhase(ctx, first)
	return runCtx, run, nil
}

// finish returns the controller to Idle unless the run was already halted.
func (c *Controller) finish(run uint64) {
	c.mu.Lock()
	current := c.run == run
	var cancel context.CancelFunc
	if current {
		cancel = c.cancel
		c.cancel = nil
		c.phase = Idle
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if current {
		c.publishPhase(context.Background(), Idle)
	}
}

func (c *Controller) halt(discard bool) bool {
	c.mu.Lock()
	if c.phase == Idle {
		c.mu.Unlock()
		return false
	}
	if discard {
		c.discarded = c.run
	}
	cancel := c.cancel
	c.cancel = nil
	c.run++
	c.phase = Idle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.publishPhase(context.Background(), Idle)
	return true
}

func (c *Controller) advance(ctx context.Context, run uint64, to Phase) bool {
	c.mu.Lock()
	if c.run != run {
		c.mu.Unlock()
		return false
	}
	if c.phase == to {
		c.mu.Unlock()
		return true
	}
	if !canTransition(c.phase, to) {
		from := c.phase
		c.mu.Unlock()
		c.log.Error(logModule, "Illegal phase transition", map[string]interface{}{
			"from": from.String(),
			"to":   to.String(),
		})
		return false
	}
	c.phase = to
	c.mu.Unlock()

	c.publishPhase(ctx, to)
	return true
}

// adopt activates a session created for run. The run check and the
// activation happen under one lock so an abandoned run cannot take over the
// session the user switched to.
func (c *Controller) adopt(ctx context.Context, run uint64, id string) (entity.ChatSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		return entity.ChatSession{}, false
	}
	return c.sessions.Activate(ctx, id)
}

func (c *Controller) isCurrent(run uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run == run
}

func (c *Controller) isDiscarded(run uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded == run
}

func (c *Controller) publishPhase(ctx context.Context, p Phase) {
	c.publish(ctx, constant.EventPhaseChanged, map[string]interface{}{
		"phase":               p.String(),
		"is_generating":       p.IsGenerating(),
		"is_processing_files": p.IsProcessingFiles(),
	})
}

func (c *Controller) publishMessage(ctx context.Context, sessionId string, msg entity.ChatMessage) {
	c.publish(ctx, constant.EventMessageUpdated, map[string]interface{}{
		"session_id": sessionId,
		"message":    c.mapper.MessageToView(msg),
	})
}

func (c *Controller) notify(ctx context.Context, title string, err error) {
	c.publish(ctx, constant.EventNotification, map[string]interface{}{
		"notification": dto.Notification{
			Title:       title,
			Description: err.Error(),
			Destructive: true,
		},
	})
}

func (c *Controller) notifyInfo(ctx context.Context, title, description string) {
	c.publish(ctx, constant.EventNotification, map[string]interface{}{
		"notification": dto.Notification{Title: title, Description: description},
	})
}

func (c *Controller) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(context.WithoutCancel(ctx), events.New(eventType, data)); err != nil {
		c.log.Warn(logModule, "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func (c *Controller) views() []dto.MessageView {
	snapshot := c.ledger.Snapshot()
	out := make([]dto.MessageView, 0, len(snapshot))
	for _, m := range snapshot {
		out = append(out, c.mapper.MessageToView(m))
	}
	return out
}

func attachmentsOf(uploads []entity.PendingUpload) []entity.ChatAttachment {
	out := make([]entity.ChatAttachment, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, entity.ChatAttachment{Name: u.Name, Type: u.MimeType})
	}
	return out
}

func fileNames(uploads []entity.PendingUpload) []string {
	out := make([]string, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, u.Name)
	}
	return out
}
