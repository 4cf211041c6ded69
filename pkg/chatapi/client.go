// Package chatapi is the HTTP client of the remote answering service.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/entity"
	"ai-pdfchat-client/internal/pkg/apperr"
	"ai-pdfchat-client/internal/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	logModule    = "ChatAPI"
	tracerName   = "ai-pdfchat-client/chatapi"
	maxErrorBody = 4 << 10
)

type Client struct {
	BaseURL string

	// auth carries the bearer token; plain is used for login and the
	// stream, which the service does not authenticate.
	auth  *http.Client
	plain *http.Client

	validate *validator.Validate
	log      logger.ILogger
	tracer   trace.Tracer
}

// NewClient builds a client whose authenticated calls take their token from
// tokens on every request. Stream reads have no deadline.
func NewClient(baseURL string, tokens oauth2.TokenSource, log logger.ILogger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		auth: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &oauth2.Transport{
				Source: tokens,
				Base:   http.DefaultTransport,
			},
		},
		plain:    &http.Client{},
		validate: validator.New(),
		log:      log,
		tracer:   otel.Tracer(tracerName),
	}
}

// --- Auth ---

func (c *Client) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid login request: %w", err)
	}

	var resp dto.LoginResponse
	if err := c.doJSON(ctx, c.plain, "login", http.MethodPost, constant.EndpointLogin, req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: login returned no access token", apperr.ErrAuth)
	}
	return &resp, nil
}

// --- Sessions ---

func (c *Client) ListSessions(ctx context.Context) ([]dto.SessionResponse, error) {
	var list []dto.SessionResponse
	if err := c.doJSON(ctx, c.auth, "list sessions", http.MethodGet, constant.EndpointSessions, nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []dto.SessionResponse{}
	}
	return list, nil
}

func (c *Client) CreateSession(ctx context.Context) (*dto.SessionResponse, error) {
	var created dto.SessionResponse
	if err := c.doJSON(ctx, c.auth, "create session", http.MethodPost, constant.EndpointSessions, nil, &created); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(created); err != nil {
		return nil, fmt.Errorf("%w: create session: %w", apperr.ErrConsistency, err)
	}
	return &created, nil
}

// RenameSession sends the name both as query parameter and JSON body; the
// service accepts either.
func (c *Client) RenameSession(ctx context.Context, id, name string) error {
	body := &dto.RenameSessionRequest{NewName: name}
	if err := c.validate.Struct(body); err != nil {
		return fmt.Errorf("invalid rename request: %w", err)
	}
	path := fmt.Sprintf(constant.EndpointSessionName, url.PathEscape(id)) + "?new_name=" + url.QueryEscape(name)
	return c.doJSON(ctx, c.auth, "rename session", http.MethodPut, path, body, nil)
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	path := fmt.Sprintf(constant.EndpointSession, url.PathEscape(id))
	return c.doJSON(ctx, c.auth, "delete session", http.MethodDelete, path, nil, nil)
}

// --- Messages ---

func (c *Client) ListMessages(ctx context.Context, sessionId string) ([]dto.MessageResponse, error) {
	path := fmt.Sprintf(constant.EndpointSessionHistory, url.PathEscape(sessionId))
	var list []dto.MessageResponse
	if err := c.doJSON(ctx, c.auth, "list messages", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []dto.MessageResponse{}
	}
	return list, nil
}

func (c *Client) SaveMessage(ctx context.Context, req *dto.SaveMessageRequest) error {
	if err := c.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	var resp dto.SaveMessageResponse
	return c.doJSON(ctx, c.auth, "save message", http.MethodPost, constant.EndpointMessages, req, &resp)
}

// --- Upload ---

// Upload sends one file as multipart {session_id, file}.
func (c *Client) Upload(ctx context.Context, sessionId string, file entity.PendingUpload) error {
	if sessionId == "" || sessionId == constant.NewSessionID {
		return fmt.Errorf("upload %s: session has not been created", file.Name)
	}

	ctx, span := c.tracer.Start(ctx, "chatapi.upload", trace.WithAttributes(
		attribute.String("session.id", sessionId),
		attribute.String("file.name", file.Name),
		attribute.Int64("file.size", file.Size),
	))
	defer span.End()

	f, err := os.Open(file.Path)
	if err != nil {
		return c.fail(span, fmt.Errorf("open %s: %w", file.Name, err))
	}
	defer f.Close()

	contentType := file.MimeType
	if contentType == "" {
		mtype, err := mimetype.DetectReader(f)
		if err != nil {
			return c.fail(span, fmt.Errorf("detect type of %s: %w", file.Name, err))
		}
		contentType = mtype.String()
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return c.fail(span, err)
		}
	}

	name := file.Name
	if name == "" {
		name = filepath.Base(file.Path)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeUpload(mw, sessionId, name, contentType, f)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+constant.EndpointUpload, pr)
	if err != nil {
		pr.Close()
		return c.fail(span, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	resp, err := c.auth.Do(req)
	if err != nil {
		pr.Close()
		return c.fail(span, transportError("upload", err))
	}
	defer resp.Body.Close()

	if err := checkStatus("upload", resp); err != nil {
		return c.fail(span, err)
	}
	var out dto.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// The status already confirmed the upload.
		c.log.Debug(logModule, "Upload response not decoded", map[string]interface{}{
			"file":  name,
			"error": err.Error(),
		})
	}

	c.log.Debug(logModule, "Upload accepted", map[string]interface{}{
		"session_id": sessionId,
		"file":       name,
		"message":    out.Message,
	})
	return nil
}

func writeUpload(mw *multipart.Writer, sessionId, name, contentType string, r io.Reader) error {
	if err := mw.WriteField("session_id", sessionId); err != nil {
		return err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// --- Stream ---

// OpenStream posts the question and returns the chunked answer body. The
// caller owns the body; cancelling ctx ends the read.
func (c *Client) OpenStream(ctx context.Context, req *dto.StreamRequest) (io.ReadCloser, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid stream request: %w", err)
	}
	if req.Input.ChatHistory == nil {
		req.Input.ChatHistory = [][]string{}
	}

	ctx, span := c.tracer.Start(ctx, "chatapi.open_stream", trace.WithAttributes(
		attribute.String("session.id", req.Config.Configurable.SessionId),
		attribute.Int("question.length", len(req.Input.Question)),
	))
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, c.fail(span, fmt.Errorf("marshal request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+constant.EndpointStream, bytes.NewReader(payload))
	if err != nil {
		return nil, c.fail(span, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	resp, err := c.plain.Do(httpReq)
	if err != nil {
		return nil, c.fail(span, transportError("open stream", err))
	}
	if err := checkStatus("open stream", resp); err != nil {
		resp.Body.Close()
		return nil, c.fail(span, err)
	}
	return resp.Body, nil
}

// --- plumbing ---

func (c *Client) doJSON(ctx context.Context, client *http.Client, op, method, path string, body, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "chatapi."+strings.ReplaceAll(op, " ", "_"), trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	))
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(span, fmt.Errorf("%s: marshal request: %w", op, err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return c.fail(span, fmt.Errorf("%s: create request: %w", op, err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	resp, err := client.Do(req)
	if err != nil {
		return c.fail(span, transportError(op, err))
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if err := checkStatus(op, resp); err != nil {
		c.log.Warn(logModule, "Request failed", map[string]interface{}{
			"op":     op,
			"status": resp.StatusCode,
			"error":  err.Error(),
		})
		return c.fail(span, err)
	}

	c.log.Debug(logModule, "Request done", map[string]interface{}{
		"op":          op,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(span, fmt.Errorf("%s: %w: %w", op, apperr.ErrDecode, err))
	}
	return nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// transportError keeps credential failures from the token source as ErrAuth
// and classifies everything else as a network failure.
func transportError(op string, err error) error {
	if errors.Is(err, apperr.ErrAuth) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrNetwork, err)
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return apperr.NewRemoteError(op, resp.StatusCode, errorDetail(raw))
}

func errorDetail(raw []byte) string {
	var body dto.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
