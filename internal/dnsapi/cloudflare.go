package dnsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"maildash/backend/internal/config"
)

var (
	// ErrNotConfigured 未配置 DNS 服务商凭据
	ErrNotConfigured = errors.New("cloudflare api not configured")
	// ErrRecordNotFound 没有匹配的 DNS 记录
	ErrRecordNotFound = errors.New("dns record not found")
)

// Record Cloudflare DNS 记录
type Record struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// apiResponse Cloudflare API 的统一响应外壳
type apiResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

// Client Cloudflare DNS API 客户端
type Client struct {
	baseURL    string
	apiKey     string
	zoneID     string
	apexDomain string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient 创建 Cloudflare 客户端
func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.Cloudflare.BaseURL,
		apiKey:     cfg.Cloudflare.APIKey,
		zoneID:     cfg.Cloudflare.ZoneID,
		apexDomain: cfg.Mail.ApexDomain,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Configured 判断凭据是否就绪。未配置时所有操作都应被跳过而不是报错。
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.zoneID != ""
}

// ListForwardRecords 列出域名下全部 forward-email TXT 记录
func (c *Client) ListForwardRecords(ctx context.Context) ([]Record, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/zones/%s/dns_records?type=TXT&name=%s",
		c.baseURL, c.zoneID, url.QueryEscape(c.apexDomain))

	var records []Record
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &records); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	for _, record := range records {
		if _, ok := ParseContent(record.Content); ok {
			out = append(out, record)
		}
	}
	return out, nil
}

// FindRecordByAlias 找到包含某别名规则的 TXT 记录
func (c *Client) FindRecordByAlias(ctx context.Context, alias string) (*Record, error) {
	records, err := c.ListForwardRecords(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if ContainsAlias(records[i].Content, alias) {
			return &records[i], nil
		}
	}
	return nil, ErrRecordNotFound
}

// CreateRecord 在根域名下创建一条 TXT 记录
func (c *Client) CreateRecord(ctx context.Context, content string) (*Record, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/zones/%s/dns_records", c.baseURL, c.zoneID)
	payload := Record{
		Type:    "TXT",
		Name:    "@", // 根域名
		Content: content,
		TTL:     3600,
		Proxied: false, // 仅 DNS，不经过代理
	}

	var created Record
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &created); err != nil {
		return nil, err
	}
	c.log.Info("dns record created", zap.String("record_id", created.ID))
	return &created, nil
}

// PatchRecordContent 更新指定记录的内容字符串
func (c *Client) PatchRecordContent(ctx context.Context, recordID, content string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/zones/%s/dns_records/%s", c.baseURL, c.zoneID, recordID)
	payload := map[string]string{"content": content}
	return c.do(ctx, http.MethodPatch, endpoint, payload, nil)
}

// DeleteRecord 删除指定记录
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/zones/%s/dns_records/%s", c.baseURL, c.zoneID, recordID)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// do 发送请求并解包 Cloudflare 的统一响应外壳
func (c *Client) do(ctx context.Context, method, endpoint string, payload, result interface{}) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudflare request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode cloudflare response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !apiResp.Success {
		if len(apiResp.Errors) > 0 {
			return fmt.Errorf("cloudflare api error: %s", apiResp.Errors[0].Message)
		}
		return fmt.Errorf("cloudflare api error: HTTP %d", resp.StatusCode)
	}

	if result != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("failed to decode cloudflare result: %w", err)
		}
	}
	return nil
}
