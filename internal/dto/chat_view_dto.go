package dto

import "time"

// ChatView is the serializable snapshot handed to presentation code.
type ChatView struct {
	Messages          []MessageView       `json:"messages"`
	CurrentSession    SessionView         `json:"current_session"`
	Sessions          []SessionView       `json:"sessions"`
	Phase             string              `json:"phase"`
	IsGenerating      bool                `json:"is_generating"`
	IsProcessingFiles bool                `json:"is_processing_files"`
	Input             string              `json:"input"`
	PendingUploads    []PendingUploadView `json:"pending_uploads"`
}

type SessionView struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	LastActive time.Time `json:"last_active"`
}

type MessageView struct {
	Id          string          `json:"id"`
	Sender      string          `json:"sender"`
	Content     string          `json:"content"`
	Timestamp   time.Time       `json:"timestamp"`
	IsStreaming bool            `json:"is_streaming"`
	References  []ReferenceDTO  `json:"references,omitempty"`
	Attachments []AttachmentDTO `json:"attachments,omitempty"`
}

type PendingUploadView struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Notification is a user-visible message raised by the chat core.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive"`
}
