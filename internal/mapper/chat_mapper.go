package mapper

import (
	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/entity"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) SessionResponseToEntity(s dto.SessionResponse) entity.ChatSession {
	return entity.ChatSession{
		Id:         s.SessionId,
		Name:       s.Name,
		LastActive: s.LastActive.Time,
	}
}

func (m *ChatMapper) SessionResponsesToEntities(list []dto.SessionResponse) []entity.ChatSession {
	out := make([]entity.ChatSession, 0, len(list))
	for _, s := range list {
		out = append(out, m.SessionResponseToEntity(s))
	}
	return out
}

func (m *ChatMapper) SessionToView(s entity.ChatSession) dto.SessionView {
	return dto.SessionView{
		Id:         s.Id,
		Name:       s.Name,
		LastActive: s.LastActive,
	}
}

// Message Mappers

// MessageResponseToEntity maps a persisted message. Unknown senders are shown as AI.
func (m *ChatMapper) MessageResponseToEntity(msg dto.MessageResponse) entity.ChatMessage {
	sender := msg.Sender
	if sender != constant.ChatMessageSenderUser && sender != constant.ChatMessageSenderAI {
		sender = constant.ChatMessageSenderAI
	}

	attachments := make([]entity.ChatAttachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, m.AttachmentToEntity(a))
	}

	return entity.ChatMessage{
		Id:          msg.Id.String(),
		Sender:      sender,
		Content:     msg.Content,
		Timestamp:   msg.Timestamp.Time,
		References:  m.ReferencesToEntities(msg.References),
		Attachments: attachments,
	}
}

func (m *ChatMapper) MessageResponsesToEntities(list []dto.MessageResponse) []entity.ChatMessage {
	out := make([]entity.ChatMessage, 0, len(list))
	for _, msg := range list {
		out = append(out, m.MessageResponseToEntity(msg))
	}
	return out
}

func (m *ChatMapper) MessageToSaveRequest(sessionId string, msg entity.ChatMessage) *dto.SaveMessageRequest {
	req := &dto.SaveMessageRequest{
		SessionId: sessionId,
		Sender:    msg.Sender,
		Content:   msg.Content,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, m.AttachmentToDTO(a))
	}
	if len(msg.References) > 0 {
		req.References = m.ReferencesToDTOs(msg.References)
	}
	return req
}

func (m *ChatMapper) MessageToView(msg entity.ChatMessage) dto.MessageView {
	view := dto.MessageView{
		Id:          msg.Id,
		Sender:      msg.Sender,
		Content:     msg.Content,
		Timestamp:   msg.Timestamp,
		IsStreaming: msg.IsStreaming,
		References:  m.ReferencesToDTOs(msg.References),
	}
	for _, a := range msg.Attachments {
		view.Attachments = append(view.Attachments, m.AttachmentToDTO(a))
	}
	return view
}

// Reference & Attachment Mappers

func (m *ChatMapper) ReferencesToEntities(list []dto.ReferenceDTO) []entity.ChatReference {
	if list == nil {
		return nil
	}
	out := make([]entity.ChatReference, 0, len(list))
	for _, r := range list {
		out = append(out, entity.ChatReference{Text: r.Text, Page: r.Page, Source: r.Source})
	}
	return out
}

func (m *ChatMapper) ReferencesToDTOs(list []entity.ChatReference) []dto.ReferenceDTO {
	if list == nil {
		return nil
	}
	out := make([]dto.ReferenceDTO, 0, len(list))
	for _, r := range list {
		out = append(out, dto.ReferenceDTO{Text: r.Text, Page: r.Page, Source: r.Source})
	}
	return out
}

func (m *ChatMapper) AttachmentToEntity(a dto.AttachmentDTO) entity.ChatAttachment {
	return entity.ChatAttachment{Name: a.Name, Url: a.Url, Type: a.Type}
}

func (m *ChatMapper) AttachmentToDTO(a entity.ChatAttachment) dto.AttachmentDTO {
	return dto.AttachmentDTO{Name: a.Name, Url: a.Url, Type: a.Type}
}

func (m *ChatMapper) PendingUploadsToView(list []entity.PendingUpload) []dto.PendingUploadView {
	out := make([]dto.PendingUploadView, 0, len(list))
	for i, u := range list {
		out = append(out, dto.PendingUploadView{
			Index:    i,
			Name:     u.Name,
			MimeType: u.MimeType,
			Size:     u.Size,
		})
	}
	return out
}
