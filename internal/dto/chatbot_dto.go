package dto

type SessionResponse struct {
	SessionId  string       `json:"session_id" validate:"required"`
	Name       string       `json:"name"`
	LastActive FlexibleTime `json:"last_active"`
}

type RenameSessionRequest struct {
	NewName string `json:"new_name" validate:"required"`
}

type MessageResponse struct {
	Id          FlexibleId      `json:"id"`
	SessionId   string          `json:"session_id,omitempty"`
	Sender      string          `json:"sender"`
	Content     string          `json:"content"`
	Timestamp   FlexibleTime    `json:"timestamp"`
	Attachments []AttachmentDTO `json:"attachments"`
	References  []ReferenceDTO  `json:"references,omitempty"`
}

type SaveMessageRequest struct {
	SessionId   string          `json:"session_id" validate:"required,ne=new"`
	Sender      string          `json:"sender" validate:"required,oneof=user ai"`
	Content     string          `json:"content"`
	Attachments []AttachmentDTO `json:"attachments,omitempty" validate:"dive"`
	References  []ReferenceDTO  `json:"references,omitempty"`
}

type AttachmentDTO struct {
	Name string `json:"name" validate:"required"`
	Url  string `json:"url"`
	Type string `json:"type,omitempty"`
}

type ReferenceDTO struct {
	Text   string `json:"text"`
	Page   int    `json:"page"`
	Source string `json:"source"`
}

type SaveMessageResponse struct {
	Id FlexibleId `json:"id"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// StreamRequest is the body of the streaming question endpoint.
type StreamRequest struct {
	Input  StreamInput  `json:"input"`
	Config StreamConfig `json:"config"`
}

type StreamInput struct {
	Question    string     `json:"question" validate:"required"`
	ChatHistory [][]string `json:"chat_history"`
}

type StreamConfig struct {
	Configurable StreamConfigurable `json:"configurable"`
}

type StreamConfigurable struct {
	SessionId string `json:"session_id" validate:"required,ne=new"`
}

// StreamFrame is the JSON payload carried by one "data:" line.
type StreamFrame struct {
	Answer     string          `json:"answer,omitempty"`
	References *[]ReferenceDTO `json:"references,omitempty"`
}
