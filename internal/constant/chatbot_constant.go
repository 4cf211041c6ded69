package constant

const (
	ChatMessageSenderUser = "user"
	ChatMessageSenderAI   = "ai"

	// NewSessionID marks a session that only exists locally.
	NewSessionID       = "new"
	NewSessionName     = "New Conversation"
	ErrorMessageMarker = "[Error]"

	SummaryPrompt = "Give me a summary of the PDF document I just uploaded."

	PDFMimeType = "application/pdf"

	// Durable client storage keys
	StorageKeyAccessToken   = "access_token"
	StorageKeyLastSessionID = "last_session_id"
)

// Remote endpoints (relative to the API base URL)
const (
	EndpointLogin          = "/auth/login"
	EndpointSessions       = "/auth/chat/sessions"
	EndpointSessionName    = "/auth/chat/sessions/%s/name"
	EndpointSession        = "/auth/chat/sessions/%s"
	EndpointSessionHistory = "/auth/chat/sessions/%s/messages"
	EndpointMessages       = "/auth/chat/messages"
	EndpointUpload         = "/upload"
	EndpointStream         = "/rag/stream"
)

// Event topics published on the client event bus
const (
	TopicChatEvents = "chat.events"

	EventMessageUpdated = "MESSAGE_UPDATED"
	EventLedgerReplaced = "LEDGER_REPLACED"
	EventSessionChanged = "SESSION_CHANGED"
	EventPhaseChanged   = "PHASE_CHANGED"
	EventNotification   = "NOTIFICATION"
)
