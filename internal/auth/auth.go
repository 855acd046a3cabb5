// Package auth implements email OTP login and opaque session tokens.
// Sessions live in memory; a restart logs everyone out.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/logging"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/store"
)

const (
	// DefaultOTPTTL is how long a one-time code stays valid.
	DefaultOTPTTL = 10 * time.Minute
	// DefaultSessionTTL is how long a login survives without re-auth.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidOTP      = errors.New("invalid OTP")
	ErrExpiredOTP      = errors.New("OTP expired")
	ErrRevoked         = errors.New("account revoked")
	ErrUnauthenticated = errors.New("not authenticated")
)

// Sender delivers a one-time code to an email address.
type Sender interface {
	SendOTP(email, code string) error
}

// LogSender "delivers" codes to the auth log. Used in pilot deployments
// without an outbound mailer.
type LogSender struct{}

func (LogSender) SendOTP(email, code string) error {
	logging.Auth("OTP for %s: %s", email, code)
	return nil
}

type otpEntry struct {
	code    string
	expires time.Time
}

type sessionEntry struct {
	email   string
	expires time.Time
}

// Service issues OTPs and session tokens backed by the user store.
type Service struct {
	store  *store.Store
	sender Sender

	// DirectLogin skips the OTP round-trip for already-registered users.
	// Pilot behavior; disable once the mailer is trusted.
	DirectLogin bool

	otpTTL     time.Duration
	sessionTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	otps     map[string]otpEntry
	sessions map[string]sessionEntry
}

// New creates an auth service. sender may be nil, defaulting to LogSender.
func New(st *store.Store, sender Sender) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{
		store:      st,
		sender:     sender,
		otpTTL:     DefaultOTPTTL,
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
		otps:       make(map[string]otpEntry),
		sessions:   make(map[string]sessionEntry),
	}
}

// StartResult is the outcome of StartLogin: either an OTP was sent, or (in
// direct-login mode) the user is already signed in.
type StartResult struct {
	User  *store.User // non-nil only on direct login
	Token string      // session token on direct login
}

// StartLogin begins a login for email. Known users log straight in when
// DirectLogin is on; otherwise an OTP is generated and sent.
func (s *Service) StartLogin(email string) (*StartResult, error) {
	if s.DirectLogin {
		if u, err := s.store.GetUser(email); err == nil {
			if u.IsRevoked {
				return nil, ErrRevoked
			}
			token := s.createSession(email)
			logging.Auth("direct login for %s", email)
			return &StartResult{User: u, Token: token}, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate OTP: %w", err)
	}
	s.mu.Lock()
	s.otps[email] = otpEntry{code: code, expires: s.now().Add(s.otpTTL)}
	s.mu.Unlock()

	if err := s.sender.SendOTP(email, code); err != nil {
		return nil, fmt.Errorf("send OTP: %w", err)
	}
	logging.Auth("OTP issued for %s", email)
	return &StartResult{}, nil
}

// VerifyOTP completes a login. On success the user is registered (first
// login creates the account) and a session token returned.
func (s *Service) VerifyOTP(email, code string) (*store.User, string, error) {
	s.mu.Lock()
	entry, ok := s.otps[email]
	s.mu.Unlock()

	if !ok || entry.code != code {
		return nil, "", ErrInvalidOTP
	}
	if s.now().After(entry.expires) {
		s.mu.Lock()
		delete(s.otps, email)
		s.mu.Unlock()
		return nil, "", ErrExpiredOTP
	}

	u, err := s.store.RegisterUser(email)
	if err != nil {
		return nil, "", err
	}
	if u.IsRevoked {
		return nil, "", ErrRevoked
	}

	s.mu.Lock()
	delete(s.otps, email) // single use
	s.mu.Unlock()

	token := s.createSession(email)
	logging.Auth("login completed for %s", email)
	return u, token, nil
}

func (s *Service) createSession(email string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = sessionEntry{email: email, expires: s.now().Add(s.sessionTTL)}
	s.mu.Unlock()
	return token
}

// Authenticate resolves a session token to its user. Expired tokens and
// revoked accounts fail with ErrUnauthenticated / ErrRevoked.
func (s *Service) Authenticate(token string) (*store.User, error) {
	s.mu.Lock()
	entry, ok := s.sessions[token]
	if ok && s.now().After(entry.expires) {
		delete(s.sessions, token)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrUnauthenticated
	}
	u, err := s.store.GetUser(entry.email)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if u.IsRevoked {
		return nil, ErrRevoked
	}
	return u, nil
}

// Logout drops the session. Unknown tokens are a no-op.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// generateCode returns a 6-digit numeric one-time code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
