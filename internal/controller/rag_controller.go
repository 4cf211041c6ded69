package controller

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/devserver"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/internal/pkg/serverutils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const ragLogModule = "RagController"

type IRagController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Upload(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type ragController struct {
	store    *devserver.Store
	delay    time.Duration
	validate *validator.Validate
	log      logger.ILogger
}

func NewRagController(store *devserver.Store, delay time.Duration, log logger.ILogger) IRagController {
	return &ragController{store: store, delay: delay, validate: validator.New(), log: log}
}

func (c *ragController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Post("/upload", auth, c.Upload)
	// The answer stream is not authenticated.
	r.Post("/rag/stream", c.Stream)
}

func (c *ragController) Upload(ctx *fiber.Ctx) error {
	sessionId := ctx.FormValue("session_id")
	if _, err := uuid.Parse(sessionId); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "session_id must be a UUID")
	}
	header, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "file is required")
	}

	f, err := header.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return err
	}
	if !mime.Is(constant.PDFMimeType) {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "Only PDF files are supported")
	}

	if err := c.store.AddDocument(serverutils.Subject(ctx), sessionId, header.Filename); err != nil {
		return storeError(err)
	}
	c.log.Info(ragLogModule, "Document indexed", map[string]interface{}{
		"session_id": sessionId,
		"filename":   header.Filename,
		"size":       header.Size,
	})
	return ctx.JSON(dto.UploadResponse{Message: "File uploaded and processed", Filename: header.Filename})
}

// Stream answers with one event per token. References travel with the
// first frame.
func (c *ragController) Stream(ctx *fiber.Ctx) error {
	var req dto.StreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	if err := c.validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	sessionId := req.Config.Configurable.SessionId
	answer, refs := devserver.Answer(req.Input.Question, c.store.Documents(sessionId))
	tokens := devserver.Tokens(answer)
	delay := c.delay

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for i, token := range tokens {
			frame := dto.StreamFrame{Answer: token}
			if i == 0 && len(refs) > 0 {
				frame.References = &refs
			}
			data, err := json.Marshal(frame)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "event: data\ndata: %s\n\n", data)
			if err := w.Flush(); err != nil {
				// Client went away.
				return
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
		fmt.Fprint(w, "event: end\n\n")
		_ = w.Flush()
	})
	return nil
}
