package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	cfgpkg "github.com/taoyao-code/deploy-sentinel/internal/config"
)

func mailerFor(t *testing.T, endpoint string) *ResendMailer {
	t.Helper()
	m := NewResendMailer(cfgpkg.EmailConfig{
		Endpoint: endpoint,
		APIKey:   "re_test_key",
		From:     "sentinel@example.com",
		To:       []string{"ops@example.com"},
	})
	if m == nil {
		t.Fatal("mailer不应为nil")
	}
	return m
}

func TestResendMailer_Send(t *testing.T) {
	t.Run("携带鉴权头与完整载荷", func(t *testing.T) {
		var gotAuth string
		var gotPayload map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &gotPayload)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		err := mailerFor(t, srv.URL).Send(context.Background(), "alert", "<p>body</p>")
		if err != nil {
			t.Fatalf("发送失败: %v", err)
		}
		if gotAuth != "Bearer re_test_key" {
			t.Errorf("鉴权头错误: %q", gotAuth)
		}
		if gotPayload["subject"] != "alert" || gotPayload["from"] != "sentinel@example.com" {
			t.Errorf("载荷错误: %v", gotPayload)
		}
	})

	t.Run("4xx不重试直接失败", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		err := mailerFor(t, srv.URL).Send(context.Background(), "s", "h")
		if err == nil || !strings.Contains(err.Error(), "http 422") {
			t.Errorf("期望http 422错误，实际: %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("4xx不应重试，实际请求: %d", hits.Load())
		}
	})

	t.Run("5xx重试后成功", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		if err := mailerFor(t, srv.URL).Send(context.Background(), "s", "h"); err != nil {
			t.Errorf("重试后应成功: %v", err)
		}
		if hits.Load() != 3 {
			t.Errorf("期望3次请求，实际: %d", hits.Load())
		}
	})
}

func TestNewResendMailer_Unconfigured(t *testing.T) {
	if m := NewResendMailer(cfgpkg.EmailConfig{}); m != nil {
		t.Error("无APIKey时应返回nil")
	}
}
