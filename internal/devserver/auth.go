package devserver

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	accessTokenTTL  = 30 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type user struct {
	email          string
	fullName       string
	hashedPassword []byte
}

// LoginTokens is the result of a successful login.
type LoginTokens struct {
	AccessToken  string
	RefreshToken string
	Email        string
	FullName     string
}

// Auth verifies passwords and issues HS256 tokens whose subject is the email.
type Auth struct {
	mu     sync.RWMutex
	users  map[string]user
	secret []byte
	now    func() time.Time
}

func NewAuth(secret string) *Auth {
	return &Auth{
		users:  make(map[string]user),
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (a *Auth) Secret() []byte {
	return a.secret
}

// AddUser registers an account with a bcrypt-hashed password.
func (a *Auth) AddUser(email, password, fullName string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	key := strings.ToLower(email)
	a.users[key] = user{email: key, fullName: fullName, hashedPassword: hashed}
	return nil
}

func (a *Auth) Login(email, password string) (*LoginTokens, error) {
	a.mu.RLock()
	u, ok := a.users[strings.ToLower(email)]
	a.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.hashedPassword, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, err := a.issue(u.email, accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := a.issue(u.email, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginTokens{AccessToken: access, RefreshToken: refresh, Email: u.email, FullName: u.fullName}, nil
}

func (a *Auth) issue(email string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
