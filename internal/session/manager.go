package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ProfileFetcher는 액세스 토큰으로 사용자 이메일을 조회합니다
type ProfileFetcher interface {
	FetchEmail(ctx context.Context, accessToken string) (string, error)
}

type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	profiles ProfileFetcher
	config   Config
	secret   []byte
	now      func() time.Time
}

func NewManager(profiles ProfileFetcher, config Config) *Manager {
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}

	secret := []byte(config.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(fmt.Sprintf("failed to generate session secret: %v", err))
		}
		log.Warn().Msg("session secret is not configured, sessions will not survive a restart")
	}

	return &Manager{
		sessions: make(map[string]*Session),
		profiles: profiles,
		config:   config,
		secret:   secret,
		now:      time.Now,
	}
}

// Login은 액세스 토큰을 검증해 새 세션을 만들고 서명된 쿠키 값을 반환합니다
func (m *Manager) Login(ctx context.Context, accessToken string) (*Session, string, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, "", fmt.Errorf("%w: access token is required", ErrLoginFailed)
	}

	email := ""
	if m.profiles != nil {
		fetched, err := m.profiles.FetchEmail(ctx, accessToken)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrLoginFailed, err)
		}
		email = fetched
	}

	sess := &Session{
		ID:          uuid.NewString(),
		AccessToken: accessToken,
		Email:       email,
		IssuedAt:    m.now(),
		TTL:         m.config.TTL,
	}
	token, err := m.sign(sess)
	if err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	log.Info().Str("session_id", sess.ID).Str("email", sess.Email).Msg("session started")
	return sess, token, nil
}

// Logout은 세션을 제거합니다. 없는 세션이면 ErrNoSession을 반환합니다.
func (m *Manager) Logout(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNoSession
	}
	delete(m.sessions, id)
	log.Info().Str("session_id", id).Msg("session ended")
	return nil
}

// SwitchAccount는 현재 세션을 끝내고 다른 계정의 토큰으로 새 세션을 시작합니다
func (m *Manager) SwitchAccount(ctx context.Context, currentID, accessToken string) (*Session, string, error) {
	sess, token, err := m.Login(ctx, accessToken)
	if err != nil {
		return nil, "", err
	}
	if currentID != "" {
		if err := m.Logout(currentID); err != nil && !errors.Is(err, ErrNoSession) {
			return nil, "", err
		}
	}
	return sess, token, nil
}

// Resolve는 쿠키 값을 검증하고 살아 있는 세션을 반환합니다. 만료된 세션은 제거됩니다.
func (m *Manager) Resolve(token string) (*Session, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[claims.SessionID]
	if !ok {
		return nil, ErrNoSession
	}
	if sess.Expired(m.now()) {
		delete(m.sessions, sess.ID)
		return nil, ErrExpired
	}
	return sess, nil
}

// ReapExpired는 만료된 세션을 모두 제거하고 제거한 수를 반환합니다
func (m *Manager) ReapExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run은 ctx가 끝날 때까지 주기적으로 만료 세션을 정리합니다
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.ReapExpired(); removed > 0 {
				log.Info().Int("count", removed).Msg("expired sessions logged out")
			}
		}
	}
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

func (m *Manager) sign(sess *Session) (string, error) {
	claims := Claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   sess.Email,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			NotBefore: jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.New("failed to sign session token")
	}
	return signed, nil
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
