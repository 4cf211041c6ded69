package entity

import (
	"time"

	"ai-pdfchat-client/internal/constant"
)

type ChatSession struct {
	Id         string
	Name       string
	LastActive time.Time
}

// IsPlaceholder reports whether the session has not been created remotely yet.
func (s ChatSession) IsPlaceholder() bool {
	return s.Id == constant.NewSessionID
}

// NewPlaceholderSession returns the local-only session used at boot and after a reset.
func NewPlaceholderSession(now time.Time) ChatSession {
	return ChatSession{
		Id:         constant.NewSessionID,
		Name:       constant.NewSessionName,
		LastActive: now,
	}
}
