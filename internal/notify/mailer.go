package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cfgpkg "github.com/taoyao-code/deploy-sentinel/internal/config"
)

// Mailer 事务邮件协作方
type Mailer interface {
	Send(ctx context.Context, subject, html string) error
}

// ResendMailer 通过 Resend 风格的 HTTP API 发送邮件。
// 告警投递是一次性副作用，允许对 5xx/网络错误做有限重试。
type ResendMailer struct {
	client   *http.Client
	endpoint string
	apiKey   string
	from     string
	to       []string
	retries  int
	backoff  []time.Duration
}

// NewResendMailer 创建邮件发送器。
// cfg.APIKey 为空时表示未配置邮件协作方，返回 nil（调用方按未配置处理）。
func NewResendMailer(cfg cfgpkg.EmailConfig) *ResendMailer {
	if cfg.APIKey == "" {
		return nil
	}
	return &ResendMailer{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		to:       cfg.To,
		retries:  3,
		backoff:  []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, time.Second},
	}
}

// Send 发送一封 HTML 邮件
func (m *ResendMailer) Send(ctx context.Context, subject, html string) error {
	body, err := json.Marshal(map[string]any{
		"from":    m.from,
		"to":      m.to,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= m.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+m.apiKey)

		resp, err := m.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			code := resp.StatusCode
			respBody, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()

			if code >= 200 && code < 300 {
				return nil
			}
			// 非2xx：仅对5xx重试
			if code < 500 {
				return fmt.Errorf("send email: http %d: %s", code, respBody)
			}
			lastErr = fmt.Errorf("send email: http %d", code)
		}

		if attempt == m.retries {
			break
		}
		wait := m.backoff[min(attempt, len(m.backoff)-1)]
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
