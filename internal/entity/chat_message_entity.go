package entity

import (
	"time"

	"ai-pdfchat-client/internal/constant"
)

type ChatMessage struct {
	Id          string
	Sender      string
	Content     string
	Timestamp   time.Time
	IsStreaming bool
	References  []ChatReference
	Attachments []ChatAttachment
}

func (m ChatMessage) IsAI() bool {
	return m.Sender == constant.ChatMessageSenderAI
}

func (m ChatMessage) IsUser() bool {
	return m.Sender == constant.ChatMessageSenderUser
}

// Clone returns a copy that shares no slices with m.
func (m ChatMessage) Clone() ChatMessage {
	c := m
	if m.References != nil {
		c.References = append([]ChatReference(nil), m.References...)
	}
	if m.Attachments != nil {
		c.Attachments = append([]ChatAttachment(nil), m.Attachments...)
	}
	return c
}

type ChatAttachment struct {
	Name string
	Url  string
	Type string
}
