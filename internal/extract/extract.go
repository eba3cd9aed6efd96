package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	openai "github.com/meguminnnnnnnnn/go-openai"
	"github.com/rs/zerolog/log"
	"taeu.kr/invoicedesk/internal/config"
	"taeu.kr/invoicedesk/internal/library"
)

const systemPrompt = "請求書から合計金額のみを数値で抽出してください。カンマや円マークは除いて数値のみを返してください。例：「123456」"

const (
	defaultModel   = openai.GPT3Dot5Turbo
	defaultTimeout = 30 * time.Second
	maxPromptRunes = 8000
	retryBackoff   = 500 * time.Millisecond
)

var ErrNoText = errors.New("pdf has no extractable text")

// Completer는 chat completion API 호출 부분입니다
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Extractor는 PDF 텍스트를 completion API에 보내 합계 금액을 얻습니다
type Extractor struct {
	client Completer
	opts   Options
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(client Completer, opts Options) *Extractor {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Extractor{client: client, opts: opts, sleep: sleepContext}
}

// NewFromConfig는 설정으로 OpenAI 클라이언트를 만듭니다. 비활성이거나 API 키가 없으면 nil을 반환합니다.
func NewFromConfig(cfg config.Extraction) *Extractor {
	if !cfg.Enabled {
		return nil
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set, invoice amount extraction is disabled")
		return nil
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout + 5*time.Second}

	return New(openai.NewClientWithConfig(clientConfig), Options{
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	})
}

// ExtractInvoice는 PDF에서 합계 금액을 추출합니다.
// 텍스트 추출에 실패하면 빈 InvoiceData, 금액 추출에 실패하면 0을 반환합니다.
func (e *Extractor) ExtractInvoice(ctx context.Context, content []byte) library.InvoiceData {
	text, err := PlainText(content)
	if err != nil {
		log.Warn().Err(err).Msg("failed to extract text from pdf")
		return library.InvoiceData{}
	}

	amount, err := e.Amount(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("failed to extract invoice total")
		amount = 0
	}
	return library.InvoiceData{TotalAmount: &amount}
}

// PlainText는 모든 페이지의 텍스트를 공백으로 이어 붙입니다
func PlainText(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		if s := strings.TrimSpace(pageText); s != "" {
			pages = append(pages, s)
		}
	}

	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, " "), nil
}

// Amount는 completion API로 합계 금액을 요청합니다. 재시도 가능한 에러만 재시도합니다.
func (e *Extractor) Amount(ctx context.Context, text string) (float64, error) {
	req := openai.ChatCompletionRequest{
		Model: e.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: truncate(text, maxPromptRunes)},
		},
		Temperature: 0.3,
		MaxTokens:   50,
	}

	var lastErr error
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, retryBackoff*time.Duration(attempt)); err != nil {
				return 0, err
			}
		}

		content, err := e.complete(ctx, req)
		if err == nil {
			return ParseAmount(content), nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		log.Debug().Err(err).Int("attempt", attempt+1).Msg("completion request failed, retrying")
	}
	return 0, lastErr
}

func (e *Extractor) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	return true
}

// ParseAmount는 숫자 이외의 문자를 제거하고 정수로 변환합니다. 숫자가 없으면 0입니다.
func ParseAmount(s string) float64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return float64(n)
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
