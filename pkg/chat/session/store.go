// Package session owns the known conversation sessions and the active one.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/entity"
	"ai-pdfchat-client/internal/mapper"
	"ai-pdfchat-client/internal/pkg/apperr"
	"ai-pdfchat-client/internal/pkg/logger"
)

const logModule = "SessionStore"

// Remote is the session directory on the server.
type Remote interface {
	ListSessions(ctx context.Context) ([]dto.SessionResponse, error)
	CreateSession(ctx context.Context) (*dto.SessionResponse, error)
	RenameSession(ctx context.Context, id, name string) error
	DeleteSession(ctx context.Context, id string) error
}

// Store keeps sessions most recently active first.
type Store struct {
	remote Remote
	sc     *Context
	log    logger.ILogger
	mapper *mapper.ChatMapper
	now    func() time.Time

	mu       sync.RWMutex
	sessions []entity.ChatSession
	active   entity.ChatSession
}

func NewStore(remote Remote, sc *Context, log logger.ILogger) *Store {
	s := &Store{
		remote: remote,
		sc:     sc,
		log:    log,
		mapper: mapper.NewChatMapper(),
		now:    time.Now,
	}
	s.active = entity.NewPlaceholderSession(s.now())
	return s
}

// ListRemote fetches the sessions of the authenticated user.
func (s *Store) ListRemote(ctx context.Context) ([]entity.ChatSession, error) {
	list, err := s.remote.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return s.mapper.SessionResponsesToEntities(list), nil
}

// Refresh replaces the known set with the remote list.
func (s *Store) Refresh(ctx context.Context) ([]entity.ChatSession, error) {
	list, err := s.ListRemote(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions = dedupe(list)
	if i := s.indexLocked(s.active.Id); i >= 0 {
		s.active = s.sessions[i]
	}
	out := s.copyLocked()
	s.mu.Unlock()

	s.log.Debug(logModule, "Sessions refreshed", map[string]interface{}{"count": len(out)})
	return out, nil
}

// CreateRemote mints a session and trusts it only once a fresh listing
// contains its id. The validated session joins the known set but is not
// activated; the caller decides whether it still wants it.
func (s *Store) CreateRemote(ctx context.Context) (entity.ChatSession, error) {
	created, err := s.remote.CreateSession(ctx)
	if err != nil {
		return entity.ChatSession{}, fmt.Errorf("create session: %w", err)
	}
	if created == nil || created.SessionId == "" || created.SessionId == constant.NewSessionID {
		return entity.ChatSession{}, fmt.Errorf("%w: create session returned no id", apperr.ErrConsistency)
	}

	list, err := s.ListRemote(ctx)
	if err != nil {
		return entity.ChatSession{}, fmt.Errorf("validate session: %w", err)
	}

	var validated *entity.ChatSession
	for i := range list {
		if list[i].Id == created.SessionId {
			validated = &list[i]
			break
		}
	}
	if validated == nil {
		s.log.Warn(logModule, "Created session missing from listing", map[string]interface{}{
			"session_id": created.SessionId,
		})
		return entity.ChatSession{}, fmt.Errorf("%w: session %s not found after create", apperr.ErrConsistency, created.SessionId)
	}

	session := *validated
	s.mu.Lock()
	s.putFrontLocked(session)
	s.mu.Unlock()

	s.log.Info(logModule, "Session created", map[string]interface{}{"session_id": session.Id})
	return session, nil
}

// Rename updates the local name first and moves the session to the front.
// The remote update is best effort. The placeholder is never renamed.
func (s *Store) Rename(ctx context.Context, id, name string) (entity.ChatSession, bool) {
	name = strings.TrimSpace(name)
	if id == constant.NewSessionID || name == "" {
		return entity.ChatSession{}, false
	}

	s.mu.Lock()
	session, found := s.lookupLocked(id)
	if !found {
		s.mu.Unlock()
		return entity.ChatSession{}, false
	}
	session.Name = name
	s.putFrontLocked(session)
	if s.active.Id == id {
		s.active = session
	}
	s.mu.Unlock()

	if err := s.remote.RenameSession(ctx, id, name); err != nil {
		s.log.Warn(logModule, "Remote rename failed, keeping local name", map[string]interface{}{
			"session_id": id,
			"name":       name,
			"error":      err.Error(),
		})
	}
	return session, true
}

// RestoreLastActive activates the remembered session when it is in the
// known set; otherwise the placeholder stays active.
func (s *Store) RestoreLastActive(ctx context.Context) (entity.ChatSession, bool) {
	last := s.sc.LastSessionID()
	if last == "" {
		return s.Active(), false
	}

	s.mu.Lock()
	session, found := s.lookupLocked(last)
	if found {
		s.active = session
	}
	s.mu.Unlock()

	if !found {
		s.log.Info(logModule, "Remembered session no longer exists", map[string]interface{}{"session_id": last})
		return s.Active(), false
	}
	s.log.Info(logModule, "Restored previous session", map[string]interface{}{"session_id": last})
	return session, true
}

// Delete removes a session remotely and locally. When it was active the
// placeholder takes its place and true is returned.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if id == constant.NewSessionID {
		return false, nil
	}
	if err := s.remote.DeleteSession(ctx, id); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	}
	wasActive := s.active.Id == id
	if wasActive {
		s.active = entity.NewPlaceholderSession(s.now())
	}
	s.mu.Unlock()

	if wasActive && s.sc.LastSessionID() == id {
		if err := s.sc.ForgetSession(ctx); err != nil {
			s.log.Warn(logModule, "Failed to forget deleted session", map[string]interface{}{"error": err.Error()})
		}
	}
	return wasActive, nil
}

// Activate makes a known session active.
func (s *Store) Activate(ctx context.Context, id string) (entity.ChatSession, bool) {
	s.mu.Lock()
	session, found := s.lookupLocked(id)
	if found {
		s.active = session
	}
	s.mu.Unlock()

	if found {
		s.remember(ctx, id)
	}
	return session, found
}

func (s *Store) Lookup(id string) (entity.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(id)
}

func (s *Store) Active() entity.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) Sessions() []entity.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Reset forgets every known session and activates a fresh placeholder.
func (s *Store) Reset() {
	s.mu.Lock()
	s.sessions = nil
	s.active = entity.NewPlaceholderSession(s.now())
	s.mu.Unlock()
}

// Touch records server confirmed activity. lastActive never moves back.
func (s *Store) Touch(id string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, found := s.lookupLocked(id)
	if !found {
		return
	}
	if t.After(session.LastActive) {
		session.LastActive = t
	}
	s.putFrontLocked(session)
	if s.active.Id == id {
		s.active = session
	}
}

func (s *Store) remember(ctx context.Context, id string) {
	if err := s.sc.RememberSession(ctx, id); err != nil {
		s.log.Warn(logModule, "Failed to persist last session", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
	}
}

func (s *Store) putFrontLocked(session entity.ChatSession) {
	next := make([]entity.ChatSession, 0, len(s.sessions)+1)
	next = append(next, session)
	for _, existing := range s.sessions {
		if existing.Id != session.Id {
			next = append(next, existing)
		}
	}
	s.sessions = next
}

func (s *Store) lookupLocked(id string) (entity.ChatSession, bool) {
	if i := s.indexLocked(id); i >= 0 {
		return s.sessions[i], true
	}
	return entity.ChatSession{}, false
}

func (s *Store) indexLocked(id string) int {
	for i := range s.sessions {
		if s.sessions[i].Id == id {
			return i
		}
	}
	return -1
}

func (s *Store) copyLocked() []entity.ChatSession {
	return append([]entity.ChatSession(nil), s.sessions...)
}

func dedupe(list []entity.ChatSession) []entity.ChatSession {
	seen := make(map[string]struct{}, len(list))
	out := make([]entity.ChatSession, 0, len(list))
	for _, s := range list {
		if _, ok := seen[s.Id]; ok {
			continue
		}
		seen[s.Id] = struct{}{}
		out = append(out, s)
	}
	return out
}
