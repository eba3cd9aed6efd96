package google

import (
	"context"
	"errors"
	"fmt"

	oauth2api "google.golang.org/api/oauth2/v2"
)

// FetchEmail은 userinfo API로 토큰 소유자의 이메일을 조회합니다
func (c *Client) FetchEmail(ctx context.Context, accessToken string) (string, error) {
	ctx = withContext(ctx)
	svc, err := oauth2api.NewService(ctx, c.options(tokenSource(accessToken), "/")...)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return "", errors.New("userinfo has no email")
	}
	return info.Email, nil
}
