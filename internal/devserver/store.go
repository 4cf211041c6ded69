// Package devserver holds the in-memory state of the reference chat backend
// used for local development and end-to-end tests.
package devserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAccessDenied    = errors.New("invalid session or access denied")
)

const (
	maxServerName = 30
	// NaiveLayout is the zone-less timestamp form the service emits.
	NaiveLayout = "2006-01-02T15:04:05.999999"
)

// NaiveTime marshals as a UTC timestamp without zone designator.
type NaiveTime time.Time

func (t NaiveTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(NaiveLayout) + `"`), nil
}

type SessionOut struct {
	SessionId  string    `json:"session_id"`
	Name       string    `json:"name"`
	LastActive NaiveTime `json:"last_active"`
}

type MessageOut struct {
	Id          int                 `json:"id"`
	SessionId   string              `json:"session_id"`
	Sender      string              `json:"sender"`
	Content     string              `json:"content"`
	Timestamp   NaiveTime           `json:"timestamp"`
	Attachments []dto.AttachmentDTO `json:"attachments"`
	References  []dto.ReferenceDTO  `json:"references,omitempty"`
}

type sessionRecord struct {
	id         string
	owner      string
	name       string
	lastActive time.Time
	messages   []MessageOut
	documents  []string
}

// Store keeps every user's sessions, messages and uploaded documents.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*sessionRecord
	messageId int
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*sessionRecord),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) ListSessions(owner string) []SessionOut {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []SessionOut
	for _, rec := range s.sessions {
		if rec.owner == owner {
			out = append(out, rec.out())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := time.Time(out[i].LastActive), time.Time(out[j].LastActive)
		if ti.Equal(tj) {
			return out[i].SessionId < out[j].SessionId
		}
		return ti.After(tj)
	})
	if out == nil {
		out = []SessionOut{}
	}
	return out
}

func (s *Store) CreateSession(owner string) SessionOut {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &sessionRecord{
		id:         uuid.NewString(),
		owner:      owner,
		name:       "Chat " + now.Format("02/01/2006 15:04:05"),
		lastActive: now,
	}
	s.sessions[rec.id] = rec
	return rec.out()
}

// Rename stores name cut to the server bound and refreshes last activity.
func (s *Store) Rename(owner, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ownedLocked(owner, id, ErrSessionNotFound)
	if err != nil {
		return err
	}
	rec.name = clip(name)
	rec.lastActive = s.now()
	return nil
}

func (s *Store) Delete(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedLocked(owner, id, ErrSessionNotFound); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) Messages(owner, id string) ([]MessageOut, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ownedLocked(owner, id, ErrSessionNotFound)
	if err != nil {
		return nil, err
	}
	out := append([]MessageOut{}, rec.messages...)
	return out, nil
}

// SaveMessage appends a message. The first user message of a session
// names it.
func (s *Store) SaveMessage(owner string, req *dto.SaveMessageRequest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ownedLocked(owner, req.SessionId, ErrAccessDenied)
	if err != nil {
		return 0, err
	}

	if req.Sender == constant.ChatMessageSenderUser && !rec.hasUserMessage() {
		switch {
		case len(req.Attachments) > 0:
			rec.name = "Analysis " + req.Attachments[0].Name
		case strings.TrimSpace(req.Content) != "":
			rec.name = clip(strings.TrimSpace(req.Content))
		}
	}

	attachments := req.Attachments
	if attachments == nil {
		attachments = []dto.AttachmentDTO{}
	}
	s.messageId++
	now := s.now()
	rec.messages = append(rec.messages, MessageOut{
		Id:          s.messageId,
		SessionId:   rec.id,
		Sender:      req.Sender,
		Content:     req.Content,
		Timestamp:   NaiveTime(now),
		Attachments: attachments,
		References:  req.References,
	})
	rec.lastActive = now
	return s.messageId, nil
}

// AddDocument records an uploaded file name against the session.
func (s *Store) AddDocument(owner, id, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ownedLocked(owner, id, ErrAccessDenied)
	if err != nil {
		return err
	}
	rec.documents = append(rec.documents, filename)
	return nil
}

// Documents returns the files uploaded to a session, whoever owns it.
func (s *Store) Documents(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return append([]string(nil), rec.documents...)
}

func (s *Store) ownedLocked(owner, id string, notFound error) (*sessionRecord, error) {
	rec, ok := s.sessions[id]
	if !ok || rec.owner != owner {
		return nil, fmt.Errorf("%w: %s", notFound, id)
	}
	return rec, nil
}

func (r *sessionRecord) out() SessionOut {
	return SessionOut{SessionId: r.id, Name: r.name, LastActive: NaiveTime(r.lastActive)}
}

func (r *sessionRecord) hasUserMessage() bool {
	for _, m := range r.messages {
		if m.Sender == constant.ChatMessageSenderUser {
			return true
		}
	}
	return false
}

func clip(name string) string {
	runes := []rune(name)
	if len(runes) > maxServerName {
		return string(runes[:maxServerName]) + "..."
	}
	return name
}
