package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/entity"
	"ai-pdfchat-client/internal/mapper"
	"ai-pdfchat-client/internal/pkg/apperr"
	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/pkg/chat/generation"
	"ai-pdfchat-client/pkg/chat/ledger"
	"ai-pdfchat-client/pkg/chat/session"
	"ai-pdfchat-client/pkg/events"

	"github.com/gabriel-vasile/mimetype"
)

const logModule = "ChatService"

var ErrUnknownSession = errors.New("session is not in the known set")

// ChatAPI is the remote surface the chat client needs.
type ChatAPI interface {
	session.Remote
	generation.Backend
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	ListMessages(ctx context.Context, sessionId string) ([]dto.MessageResponse, error)
}

// IChatService is the single entry point for presentation code.
type IChatService interface {
	Boot(ctx context.Context) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	IsAuthenticated() bool

	SetInput(text string)
	AddFiles(ctx context.Context, paths []string) int
	RemoveFile(ctx context.Context, index int) bool

	Send(ctx context.Context) error
	Stop(ctx context.Context) bool
	Regenerate(ctx context.Context) error

	RefreshSessions(ctx context.Context) error
	LoadSession(ctx context.Context, id string) error
	CreateSession(ctx context.Context) (dto.SessionView, error)
	RenameSession(ctx context.Context, id, name string) error
	DeleteSession(ctx context.Context, id string) error
	ResetAll(ctx context.Context)

	View() dto.ChatView
}

type chatService struct {
	api       ChatAPI
	sc        *session.Context
	store     *session.Store
	ledger    *ledger.Ledger
	ctrl      *generation.Controller
	composer  *composer
	publisher events.Publisher
	log       logger.ILogger
	mapper    *mapper.ChatMapper
}

// NewChatService wires the chat core around api. sc must share its token
// source with api so that Login takes effect on the next request.
func NewChatService(api ChatAPI, sc *session.Context, publisher events.Publisher, log logger.ILogger) IChatService {
	store := session.NewStore(api, sc, log)
	l := ledger.New()
	comp := &composer{}

	return &chatService{
		api:       api,
		sc:        sc,
		store:     store,
		ledger:    l,
		ctrl:      generation.NewController(store, l, api, comp, publisher, log),
		composer:  comp,
		publisher: publisher,
		log:       log,
		mapper:    mapper.NewChatMapper(),
	}
}

// Boot loads durable state, the session list and the last active session's
// history. Without a stored token it leaves the placeholder session active.
func (s *chatService) Boot(ctx context.Context) error {
	if err := s.sc.Init(ctx); err != nil {
		return fmt.Errorf("load client state: %w", err)
	}
	if s.sc.AccessToken() == "" {
		s.log.Info(logModule, "No stored credential, starting signed out", nil)
		return nil
	}

	if _, err := s.store.Refresh(ctx); err != nil {
		s.notify(ctx, "Failed to load sessions", err)
		return err
	}
	s.publishSessions(ctx)

	restored, ok := s.store.RestoreLastActive(ctx)
	if !ok {
		return nil
	}
	s.log.Info(logModule, "Restoring previous session", map[string]interface{}{"session_id": restored.Id})
	return s.LoadSession(ctx, restored.Id)
}

// Login exchanges credentials for a token and starts from a clean slate.
// The first send creates the session.
func (s *chatService) Login(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, &dto.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.log.Warn(logModule, "Login failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	if err := s.sc.SetAccessToken(ctx, resp.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}

	s.ResetAll(ctx)
	if err := s.sc.ForgetSession(ctx); err != nil {
		s.log.Warn(logModule, "Failed to forget last session", map[string]interface{}{"error": err.Error()})
	}

	if _, err := s.store.Refresh(ctx); err != nil {
		s.notify(ctx, "Failed to load sessions", err)
	}
	s.publishSessions(ctx)

	s.log.Info(logModule, "Logged in", map[string]interface{}{"email": resp.Email})
	return nil
}

func (s *chatService) Logout(ctx context.Context) error {
	s.ResetAll(ctx)
	if err := s.sc.Clear(ctx); err != nil {
		return fmt.Errorf("clear client state: %w", err)
	}
	s.log.Info(logModule, "Logged out", nil)
	return nil
}

func (s *chatService) IsAuthenticated() bool {
	return s.sc.AccessToken() != ""
}

// --- Composer ---

func (s *chatService) SetInput(text string) {
	s.composer.SetInput(text)
}

// AddFiles queues the PDFs among paths and returns how many were queued.
// Anything else is rejected with a notification.
func (s *chatService) AddFiles(ctx context.Context, paths []string) int {
	var accepted []entity.PendingUpload
	rejected := 0
	for _, path := range paths {
		upload, err := pendingPDF(path)
		if err != nil {
			rejected++
			s.log.Info(logModule, "File rejected", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		accepted = append(accepted, upload)
	}

	if rejected > 0 {
		s.publishNotification(ctx, dto.Notification{
			Title:       "Only PDF files are supported",
			Description: "Please upload PDF files only for analysis.",
			Destructive: true,
		})
	}
	if len(accepted) > 0 {
		s.composer.Add(accepted...)
		title := fmt.Sprintf("%d PDF added", len(accepted))
		if len(accepted) > 1 {
			title = fmt.Sprintf("%d PDFs added", len(accepted))
		}
		s.publishNotification(ctx, dto.Notification{
			Title:       title,
			Description: "Your PDFs are ready to be analyzed.",
		})
	}
	return len(accepted)
}

func (s *chatService) RemoveFile(ctx context.Context, index int) bool {
	removed, ok := s.composer.Remove(index)
	if ok {
		s.log.Debug(logModule, "Pending upload removed", map[string]interface{}{"file": removed.Name})
	}
	return ok
}

// --- Generation ---

// Send submits the composer content as one turn.
func (s *chatService) Send(ctx context.Context) error {
	text, uploads := s.composer.Snapshot()
	return s.ctrl.Send(ctx, generation.Turn{Text: text, Uploads: uploads})
}

func (s *chatService) Stop(ctx context.Context) bool {
	return s.ctrl.Stop(ctx)
}

func (s *chatService) Regenerate(ctx context.Context) error {
	return s.ctrl.Regenerate(ctx)
}

// --- Sessions ---

func (s *chatService) RefreshSessions(ctx context.Context) error {
	if _, err := s.store.Refresh(ctx); err != nil {
		return err
	}
	s.publishSessions(ctx)
	return nil
}

// LoadSession switches to a known session. The history is fetched first so
// the ledger is replaced in one step; a running turn is abandoned.
func (s *chatService) LoadSession(ctx context.Context, id string) error {
	target, ok := s.store.Lookup(id)
	if !ok {
		s.log.Warn(logModule, "Session not found in known set", map[string]interface{}{"session_id": id})
		return nil
	}

	history, err := s.api.ListMessages(ctx, id)
	if err != nil {
		s.notify(ctx, "Error loading session", err)
		return err
	}
	messages := s.mapper.MessageResponsesToEntities(history)

	if s.ctrl.Abandon() {
		s.log.Info(logModule, "Abandoned running turn on session switch", map[string]interface{}{"session_id": id})
	}
	s.ledger.ReplaceAll(messages)
	if _, ok := s.store.Activate(ctx, target.Id); !ok {
		// Deleted while the history was in flight.
		s.ledger.ReplaceAll(nil)
		return fmt.Errorf("load session %s: %w", id, ErrUnknownSession)
	}

	s.publishLedger(ctx, target.Id)
	s.publishSessions(ctx)
	s.log.Info(logModule, "Session loaded", map[string]interface{}{
		"session_id": target.Id,
		"messages":   len(messages),
	})
	return nil
}

// CreateSession starts an empty conversation on a new remote session.
func (s *chatService) CreateSession(ctx context.Context) (dto.SessionView, error) {
	s.ctrl.Abandon()

	created, err := s.store.CreateRemote(ctx)
	if err != nil {
		s.notify(ctx, "Failed to create session", err)
		return dto.SessionView{}, err
	}
	if _, ok := s.store.Activate(ctx, created.Id); !ok {
		return dto.SessionView{}, fmt.Errorf("activate %s: %w", created.Id, ErrUnknownSession)
	}
	s.ledger.ReplaceAll(nil)

	s.publishLedger(ctx, created.Id)
	s.publishSessions(ctx)
	return s.mapper.SessionToView(created), nil
}

func (s *chatService) RenameSession(ctx context.Context, id, name string) error {
	if id == constant.NewSessionID {
		return nil
	}
	if _, ok := s.store.Lookup(id); !ok {
		return fmt.Errorf("rename %s: %w", id, ErrUnknownSession)
	}
	if _, ok := s.store.Rename(ctx, id, name); ok {
		s.publishSessions(ctx)
	}
	return nil
}

// DeleteSession removes a session remotely. Deleting the active session
// abandons its turn and falls back to the placeholder.
func (s *chatService) DeleteSession(ctx context.Context, id string) error {
	if id == constant.NewSessionID {
		return nil
	}
	wasActive, err := s.store.Delete(ctx, id)
	if err != nil {
		s.notify(ctx, "Failed to delete session", err)
		return err
	}
	if wasActive {
		s.ctrl.Abandon()
		s.ledger.ReplaceAll(nil)
		s.publishLedger(ctx, constant.NewSessionID)
	}
	s.publishSessions(ctx)
	return nil
}

// ResetAll drops every piece of conversation state and activates the
// placeholder session.
func (s *chatService) ResetAll(ctx context.Context) {
	s.ctrl.Abandon()
	s.ledger.ReplaceAll(nil)
	s.store.Reset()
	s.composer.Clear()

	s.publishLedger(ctx, constant.NewSessionID)
	s.publishSessions(ctx)
}

// View returns a serializable snapshot of the whole chat state.
func (s *chatService) View() dto.ChatView {
	phase := s.ctrl.Phase()
	input, uploads := s.composer.Snapshot()

	return dto.ChatView{
		Messages:          s.messageViews(),
		CurrentSession:    s.mapper.SessionToView(s.store.Active()),
		Sessions:          s.sessionViews(),
		Phase:             phase.String(),
		IsGenerating:      phase.IsGenerating(),
		IsProcessingFiles: phase.IsProcessingFiles(),
		Input:             input,
		PendingUploads:    s.mapper.PendingUploadsToView(uploads),
	}
}

// --- helpers ---

func pendingPDF(path string) (entity.PendingUpload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entity.PendingUpload{}, err
	}
	if info.IsDir() {
		return entity.PendingUpload{}, fmt.Errorf("%s is a directory", path)
	}
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return entity.PendingUpload{}, err
	}
	if !mime.Is(constant.PDFMimeType) {
		return entity.PendingUpload{}, fmt.Errorf("%s is %s", filepath.Base(path), mime.String())
	}
	return entity.PendingUpload{
		Name:     filepath.Base(path),
		Path:     path,
		MimeType: constant.PDFMimeType,
		Size:     info.Size(),
	}, nil
}

func (s *chatService) messageViews() []dto.MessageView {
	snapshot := s.ledger.Snapshot()
	out := make([]dto.MessageView, 0, len(snapshot))
	for _, m := range snapshot {
		out = append(out, s.mapper.MessageToView(m))
	}
	return out
}

func (s *chatService) sessionViews() []dto.SessionView {
	sessions := s.store.Sessions()
	out := make([]dto.SessionView, 0, len(sessions))
	for _, known := range sessions {
		out = append(out, s.mapper.SessionToView(known))
	}
	return out
}

func (s *chatService) publishLedger(ctx context.Context, sessionId string) {
	s.publish(ctx, constant.EventLedgerReplaced, map[string]interface{}{
		"session_id": sessionId,
		"messages":   s.messageViews(),
	})
}

func (s *chatService) publishSessions(ctx context.Context) {
	s.publish(ctx, constant.EventSessionChanged, map[string]interface{}{
		"session":  s.mapper.SessionToView(s.store.Active()),
		"sessions": s.sessionViews(),
	})
}

func (s *chatService) notify(ctx context.Context, title string, err error) {
	s.log.Error(logModule, title, map[string]interface{}{
		"error": err.Error(),
		"class": apperr.Title(err),
	})
	s.publishNotification(ctx, dto.Notification{
		Title:       title,
		Description: err.Error(),
		Destructive: true,
	})
}

func (s *chatService) publishNotification(ctx context.Context, n dto.Notification) {
	s.publish(ctx, constant.EventNotification, map[string]interface{}{"notification": n})
}

func (s *chatService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), events.New(eventType, data)); err != nil {
		s.log.Warn(logModule, "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
