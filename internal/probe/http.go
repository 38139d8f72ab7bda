package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Client HTTP 探测客户端。
// 不设置全局超时，完全依赖调用方 context 的 deadline 做取消；
// 取消时由 net/http 负责释放连接。探测不做重试。
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient 创建探测客户端
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{},
		logger: logger,
	}
}

// Do 发起一次请求并读取完整响应体
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// ExpectStatus 发起 GET 请求并断言状态码。
// 状态码不符时返回 "HTTP <code>" 形式的错误，消息原样进入检查结果。
func (c *Client) ExpectStatus(ctx context.Context, url string, headers map[string]string, want int) error {
	code, _, err := c.Do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return err
	}
	if code != want {
		return fmt.Errorf("HTTP %d", code)
	}
	return nil
}

// PostJSON 发送 JSON 请求体并读取响应
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers["Content-Type"] = "application/json"
	return c.Do(ctx, http.MethodPost, url, headers, body)
}

// Login 向后台登录接口提交凭据，返回会话令牌。
// 兼容 Supabase auth 与自建后台两种响应字段（access_token / token）。
func (c *Client) Login(ctx context.Context, url, email, password string) (string, error) {
	code, body, err := c.PostJSON(ctx, url, nil, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	if code != http.StatusOK {
		return "", fmt.Errorf("login rejected: HTTP %d", code)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		Token       string `json:"token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse login response: %w", err)
	}
	token := parsed.AccessToken
	if token == "" {
		token = parsed.Token
	}
	if token == "" {
		return "", fmt.Errorf("login response missing token")
	}
	return token, nil
}
