package google

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

const (
	mimeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	mimePresentation = "application/vnd.google-apps.presentation"
)

var (
	ErrNotConvertible = errors.New("file type cannot be converted to a Google document")
	ErrEmptySheet     = errors.New("spreadsheet has no values")
)

// Client는 Google API 서비스 생성에 쓰이는 공통 옵션입니다
type Client struct {
	// 비어 있으면 Google 기본 엔드포인트를 사용
	endpoint string
}

func NewClient(endpoint string) *Client {
	return &Client{endpoint: strings.TrimRight(endpoint, "/")}
}

// options는 서비스별 base path를 붙여 클라이언트 옵션을 만듭니다
func (c *Client) options(ts oauth2.TokenSource, basePath string) []option.ClientOption {
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint+basePath))
	}
	return opts
}

func tokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

func withContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
