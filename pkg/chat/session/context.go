package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/pkg/apperr"
	"ai-pdfchat-client/internal/repository/contract"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Context is the client state shared by every component: the access token
// and the last active session id. Values are read from the repository once
// by Init and written through on every change.
type Context struct {
	repo contract.ClientStateRepository

	mu            sync.RWMutex
	accessToken   string
	lastSessionID string
	now           func() time.Time
}

var _ oauth2.TokenSource = (*Context)(nil)

func NewContext(repo contract.ClientStateRepository) *Context {
	return &Context{repo: repo, now: time.Now}
}

// Init loads the persisted values.
func (c *Context) Init(ctx context.Context) error {
	token, _, err := c.repo.Get(ctx, constant.StorageKeyAccessToken)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	last, _, err := c.repo.Get(ctx, constant.StorageKeyLastSessionID)
	if err != nil {
		return fmt.Errorf("load last session: %w", err)
	}

	c.mu.Lock()
	c.accessToken = token
	c.lastSessionID = last
	c.mu.Unlock()
	return nil
}

// Clear forgets the credential and the remembered session.
func (c *Context) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.accessToken = ""
	c.lastSessionID = ""
	c.mu.Unlock()

	if err := c.repo.Delete(ctx, constant.StorageKeyAccessToken); err != nil {
		return err
	}
	return c.repo.Delete(ctx, constant.StorageKeyLastSessionID)
}

func (c *Context) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Context) SetAccessToken(ctx context.Context, token string) error {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
	return c.repo.Set(ctx, constant.StorageKeyAccessToken, token)
}

func (c *Context) LastSessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSessionID
}

// RememberSession persists id so the next boot can restore it. The local
// placeholder is never remembered.
func (c *Context) RememberSession(ctx context.Context, id string) error {
	if id == "" || id == constant.NewSessionID {
		return nil
	}
	c.mu.Lock()
	c.lastSessionID = id
	c.mu.Unlock()
	return c.repo.Set(ctx, constant.StorageKeyLastSessionID, id)
}

func (c *Context) ForgetSession(ctx context.Context) error {
	c.mu.Lock()
	c.lastSessionID = ""
	c.mu.Unlock()
	return c.repo.Delete(ctx, constant.StorageKeyLastSessionID)
}

// Token implements oauth2.TokenSource. Opaque tokens are passed through;
// a JWT whose exp has passed is rejected without a round trip.
func (c *Context) Token() (*oauth2.Token, error) {
	raw := c.AccessToken()
	if raw == "" {
		return nil, fmt.Errorf("%w: no access token, run login first", apperr.ErrAuth)
	}

	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return tok, nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return tok, nil
	}
	if !exp.After(c.now()) {
		return nil, fmt.Errorf("%w: access token expired at %s", apperr.ErrAuth, exp.Format(time.RFC3339))
	}
	tok.Expiry = exp.Time
	return tok, nil
}
