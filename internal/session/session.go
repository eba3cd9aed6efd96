package session

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

const CookieName = "invoicedesk_session"

var (
	ErrNoSession    = errors.New("no active session")
	ErrExpired      = errors.New("session expired")
	ErrInvalidToken = errors.New("invalid session token")
	ErrLoginFailed  = errors.New("failed to verify access token")
)

type Config struct {
	Secret        string
	Issuer        string
	TTL           time.Duration
	CheckInterval time.Duration
}

// Session은 Google 액세스 토큰과 사용자 이메일을 가진 로그인 세션입니다
type Session struct {
	ID          string        `json:"id"`
	AccessToken string        `json:"-"`
	Email       string        `json:"email"`
	IssuedAt    time.Time     `json:"issuedAt"`
	TTL         time.Duration `json:"-"`
}

func (s *Session) ExpiresAt() time.Time {
	return s.IssuedAt.Add(s.TTL)
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt())
}

// TokenSource는 Google API 호출용 고정 토큰 소스를 반환합니다
func (s *Session) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: s.AccessToken,
		TokenType:   "Bearer",
		Expiry:      s.ExpiresAt(),
	})
}
