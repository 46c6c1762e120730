// Package mailout 封装 SMTP2GO 出站邮件 API。
package mailout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"maildash/backend/internal/config"
)

// ErrNotConfigured 未配置出站邮件 API Key
var ErrNotConfigured = errors.New("smtp2go api key not configured")

// SendRequest 一次出站发送的参数
type SendRequest struct {
	Sender   string
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// sendPayload SMTP2GO /email/send 的请求体
type sendPayload struct {
	APIKey   string   `json:"api_key"`
	To       []string `json:"to"`
	Sender   string   `json:"sender"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body"`
	HTMLBody string   `json:"html_body"`
}

// SendResponse SMTP2GO 的响应数据
type SendResponse struct {
	RequestID string `json:"request_id"`
	Data      struct {
		Succeeded int      `json:"succeeded"`
		Failed    int      `json:"failed"`
		EmailID   string   `json:"email_id"`
		Failures  []string `json:"failures"`
		Error     string   `json:"error"`
	} `json:"data"`
}

// Sender 出站邮件发送接口，便于测试时替换
type Sender interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
}

// Client SMTP2GO API 客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建 SMTP2GO 客户端
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.SMTP2GO.BaseURL,
		apiKey:  cfg.SMTP2GO.APIKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Send 调用出站邮件 API 发送一封邮件。
// HTMLBody 为空时用正文换行转 <br> 兜底。
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	htmlBody := req.HTMLBody
	if htmlBody == "" {
		htmlBody = strings.ReplaceAll(req.TextBody, "\n", "<br>")
	}

	payload := sendPayload{
		APIKey:   c.apiKey,
		To:       req.To,
		Sender:   req.Sender,
		Subject:  req.Subject,
		TextBody: req.TextBody,
		HTMLBody: htmlBody,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal send payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/email/send", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("smtp2go request failed: %w", err)
	}
	defer resp.Body.Close()

	var sendResp SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sendResp); err != nil {
		return nil, fmt.Errorf("failed to decode smtp2go response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := sendResp.Data.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("smtp2go api error: %s", msg)
	}

	if sendResp.Data.Failed > 0 {
		return nil, fmt.Errorf("smtp2go rejected %d recipient(s): %s",
			sendResp.Data.Failed, strings.Join(sendResp.Data.Failures, ", "))
	}

	return &sendResp, nil
}
