// Package ledger holds the ordered message list of the active session.
package ledger

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/entity"
	"ai-pdfchat-client/pkg/chat/stream"

	"github.com/google/uuid"
)

var (
	ErrUnknownMessage = errors.New("message not in ledger")
	ErrFinalized      = errors.New("message already finalized")
)

// Ledger is safe for concurrent use. Returned messages are copies.
type Ledger struct {
	mu       sync.RWMutex
	messages []entity.ChatMessage
	now      func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// NewWithClock is used by tests that need stable timestamps.
func NewWithClock(now func() time.Time) *Ledger {
	return &Ledger{now: now}
}

// AppendUser adds a user message. Attachments are fixed from here on.
func (l *Ledger) AppendUser(content string, attachments []entity.ChatAttachment) entity.ChatMessage {
	msg := entity.ChatMessage{
		Id:        uuid.New().String(),
		Sender:    constant.ChatMessageSenderUser,
		Content:   content,
		Timestamp: l.now(),
	}
	if len(attachments) > 0 {
		msg.Attachments = append([]entity.ChatAttachment(nil), attachments...)
	}

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	return msg.Clone()
}

// AppendStreamingPlaceholder adds an empty AI message in streaming state.
func (l *Ledger) AppendStreamingPlaceholder() string {
	msg := entity.ChatMessage{
		Id:          uuid.New().String(),
		Sender:      constant.ChatMessageSenderAI,
		Timestamp:   l.now(),
		IsStreaming: true,
	}

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	return msg.Id
}

// ApplyFragment appends the fragment text. When the fragment carries a
// references field the list is replaced, even by an empty one.
func (l *Ledger) ApplyFragment(id string, frag stream.Fragment) (entity.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg, err := l.streamingLocked(id)
	if err != nil {
		return entity.ChatMessage{}, err
	}
	msg.Content += frag.Answer
	if frag.HasReferences {
		msg.References = append([]entity.ChatReference{}, frag.References...)
	}
	return msg.Clone(), nil
}

// Finalize trims trailing whitespace once and closes the message.
// A nil references slice keeps what the fragments set.
func (l *Ledger) Finalize(id, content string, references []entity.ChatReference) (entity.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg, err := l.streamingLocked(id)
	if err != nil {
		return entity.ChatMessage{}, err
	}
	msg.Content = strings.TrimRightFunc(content, unicode.IsSpace)
	if references != nil {
		msg.References = append([]entity.ChatReference{}, references...)
	}
	msg.IsStreaming = false
	return msg.Clone(), nil
}

// FinalizeError replaces the content with the error marker.
func (l *Ledger) FinalizeError(id string) (entity.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg, err := l.streamingLocked(id)
	if err != nil {
		return entity.ChatMessage{}, err
	}
	msg.Content = constant.ErrorMessageMarker
	msg.IsStreaming = false
	return msg.Clone(), nil
}

// ReplaceAll swaps the whole list, dropping any streaming placeholder.
func (l *Ledger) ReplaceAll(messages []entity.ChatMessage) {
	next := make([]entity.ChatMessage, 0, len(messages))
	for _, m := range messages {
		c := m.Clone()
		c.IsStreaming = false
		next = append(next, c)
	}

	l.mu.Lock()
	l.messages = next
	l.mu.Unlock()
}

// RollbackLast removes the most recent message.
func (l *Ledger) RollbackLast() (entity.ChatMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.messages) == 0 {
		return entity.ChatMessage{}, false
	}
	last := l.messages[len(l.messages)-1]
	l.messages = l.messages[:len(l.messages)-1]
	return last, true
}

// Get returns a copy of one message.
func (l *Ledger) Get(id string) (entity.ChatMessage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.indexLocked(id); i >= 0 {
		return l.messages[i].Clone(), true
	}
	return entity.ChatMessage{}, false
}

// Last returns the most recent message.
func (l *Ledger) Last() (entity.ChatMessage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.messages) == 0 {
		return entity.ChatMessage{}, false
	}
	return l.messages[len(l.messages)-1].Clone(), true
}

// LastUser returns the most recent user message.
func (l *Ledger) LastUser() (entity.ChatMessage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].IsUser() {
			return l.messages[i].Clone(), true
		}
	}
	return entity.ChatMessage{}, false
}

// HasAI reports whether any AI message exists.
func (l *Ledger) HasAI() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, m := range l.messages {
		if m.IsAI() {
			return true
		}
	}
	return false
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Snapshot returns a deep copy of the list.
func (l *Ledger) Snapshot() []entity.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]entity.ChatMessage, 0, len(l.messages))
	for _, m := range l.messages {
		out = append(out, m.Clone())
	}
	return out
}

func (l *Ledger) streamingLocked(id string) (*entity.ChatMessage, error) {
	i := l.indexLocked(id)
	if i < 0 {
		return nil, ErrUnknownMessage
	}
	if !l.messages[i].IsStreaming {
		return nil, ErrFinalized
	}
	return &l.messages[i], nil
}

func (l *Ledger) indexLocked(id string) int {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Id == id {
			return i
		}
	}
	return -1
}
