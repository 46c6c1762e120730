// Package mailin 负责把入站邮件中继的 webhook 负载规范化成统一结构。
// 中继商的负载形状不稳定，同一字段在不同版本里可能是字符串、对象或数组，
// 这里为每种已知形状定义显式变体并逐一匹配，而不是链式取可选字段。
package mailin

import (
	"encoding/json"
	"errors"
	"mime"
	"net/url"
	"strings"

	"maildash/backend/internal/domain"
)

var (
	// ErrUnparsableBody 负载既不是合法 JSON 也不是表单编码，整次投递拒绝
	ErrUnparsableBody = errors.New("unparsable webhook body")
	// ErrMissingSender 无法从任何已知形状中提取发件人
	ErrMissingSender = errors.New("missing sender address")
)

// DefaultSubject 负载缺失主题时的默认值
const DefaultSubject = "(No Subject)"

// InboundMail 规范化后的入站邮件记录
type InboundMail struct {
	From        string
	Recipients  []string // 小写、按序去重
	Subject     string
	Text        string
	HTML        string
	MessageID   *string
	Attachments domain.AttachmentList
	Raw         domain.Metadata // 原始负载，整体存入 metadata 供排查
}

// ========== 已知负载形状 ==========

// addressValue 结构化地址条目（from.value[0].address 形状）
type addressValue struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// addressObject 结构化地址字段（带 value 数组和 text 摘要）
type addressObject struct {
	Value []addressValue `json:"value"`
	Text  string         `json:"text"`
}

// sessionInfo SMTP 会话形状（session.sender / session.recipient）
type sessionInfo struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
}

// attachmentPayload 附件条目，字段名在不同版本间有别名
type attachmentPayload struct {
	Filename    string `json:"filename"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
}

// envelope 入站负载的外层信封。
// from/to 的类型不确定，先保留原始字节，再按变体逐一匹配。
type envelope struct {
	From         json.RawMessage     `json:"from"`
	To           json.RawMessage     `json:"to"`
	Recipients   []string            `json:"recipients"`
	Session      *sessionInfo        `json:"session"`
	Subject      string              `json:"subject"`
	Text         string              `json:"text"`
	TextAsHTML   string              `json:"textAsHtml"`
	HTML         string              `json:"html"`
	MessageID    string              `json:"messageId"`
	MessageIDAlt string              `json:"message_id"`
	Attachments  []attachmentPayload `json:"attachments"`
}

// Parser 入站负载解析器
type Parser struct {
	defaultRecipient string
}

// NewParser 创建解析器。defaultRecipient 是所有收件人形状都不匹配时的兜底地址。
func NewParser(defaultRecipient string) *Parser {
	return &Parser{defaultRecipient: strings.ToLower(strings.TrimSpace(defaultRecipient))}
}

// Parse 解析请求体并返回规范化记录。
// 无论 Content-Type 是什么都会先尝试 JSON（中继商的头并不可靠），
// 之后才按表单编码解析；两者都失败时返回 ErrUnparsableBody。
func (p *Parser) Parse(contentType string, body []byte) (*InboundMail, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, ErrUnparsableBody
	}

	if mail, err := p.parseJSON([]byte(trimmed)); err == nil {
		return mail, nil
	} else if !errors.Is(err, ErrUnparsableBody) {
		return nil, err
	}

	if isFormContentType(contentType) || strings.Contains(trimmed, "=") {
		if mail, err := p.parseForm(trimmed); err == nil {
			return mail, nil
		}
	}

	return nil, ErrUnparsableBody
}

// parseJSON 解析 JSON 形状的负载
func (p *Parser) parseJSON(body []byte) (*InboundMail, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrUnparsableBody
	}

	// 保留原始负载用于排查
	var raw domain.Metadata
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ErrUnparsableBody
	}

	from := extractFrom(env)
	if from == "" {
		return nil, ErrMissingSender
	}

	recipients := extractRecipients(env)
	if len(recipients) == 0 && p.defaultRecipient != "" {
		recipients = []string{p.defaultRecipient}
	}

	return p.build(from, recipients, env, raw), nil
}

// parseForm 解析表单编码的负载
func (p *Parser) parseForm(body string) (*InboundMail, error) {
	values, err := url.ParseQuery(body)
	if err != nil || len(values) == 0 {
		return nil, ErrUnparsableBody
	}

	from := strings.TrimSpace(values.Get("from"))
	if from == "" {
		from = strings.TrimSpace(values.Get("sender"))
	}
	if from == "" {
		return nil, ErrMissingSender
	}

	recipients := dedupeAddresses(splitAddressList(values.Get("to")))
	if len(recipients) == 0 {
		recipients = dedupeAddresses(values["recipients"])
	}
	if len(recipients) == 0 && p.defaultRecipient != "" {
		recipients = []string{p.defaultRecipient}
	}

	raw := domain.Metadata{}
	for key := range values {
		raw[key] = values.Get(key)
	}

	env := envelope{
		Subject:   values.Get("subject"),
		Text:      values.Get("text"),
		HTML:      values.Get("html"),
		MessageID: values.Get("message_id"),
	}
	return p.build(from, recipients, env, raw), nil
}

// build 组装规范化记录
func (p *Parser) build(from string, recipients []string, env envelope, raw domain.Metadata) *InboundMail {
	subject := env.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	text := env.Text
	if text == "" {
		text = env.TextAsHTML
	}
	html := env.HTML
	if html == "" {
		html = env.TextAsHTML
	}

	var messageID *string
	if id := firstNonEmpty(env.MessageID, env.MessageIDAlt); id != "" {
		messageID = &id
	}

	attachments := make(domain.AttachmentList, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		attachments = append(attachments, domain.Attachment{
			Filename:    firstNonEmpty(att.Filename, att.Name, "unknown"),
			ContentType: firstNonEmpty(att.ContentType, att.Type, "application/octet-stream"),
			Size:        att.Size,
		})
	}

	return &InboundMail{
		From:        from,
		Recipients:  recipients,
		Subject:     subject,
		Text:        text,
		HTML:        html,
		MessageID:   messageID,
		Attachments: attachments,
		Raw:         raw,
	}
}

// extractFrom 按变体匹配发件人：
// 结构化 from.value[0].address > from.text > 纯字符串 from > session.sender
func extractFrom(env envelope) string {
	if len(env.From) > 0 {
		if obj, ok := matchAddressObject(env.From); ok {
			if len(obj.Value) > 0 && obj.Value[0].Address != "" {
				return strings.TrimSpace(obj.Value[0].Address)
			}
			if obj.Text != "" {
				return strings.TrimSpace(obj.Text)
			}
		}
		if s, ok := matchString(env.From); ok && s != "" {
			return strings.TrimSpace(s)
		}
	}
	if env.Session != nil && env.Session.Sender != "" {
		return strings.TrimSpace(env.Session.Sender)
	}
	return ""
}

// extractRecipients 按变体收集收件人并做大小写不敏感去重：
// recipients[] > to.value[] / to.text / 纯字符串 to（可逗号分隔）> session.recipient
func extractRecipients(env envelope) []string {
	if len(env.Recipients) > 0 {
		return dedupeAddresses(env.Recipients)
	}

	if len(env.To) > 0 {
		if obj, ok := matchAddressObject(env.To); ok {
			if len(obj.Value) > 0 {
				addrs := make([]string, 0, len(obj.Value))
				for _, v := range obj.Value {
					addrs = append(addrs, v.Address)
				}
				if out := dedupeAddresses(addrs); len(out) > 0 {
					return out
				}
			}
			if obj.Text != "" {
				if out := dedupeAddresses(splitAddressList(obj.Text)); len(out) > 0 {
					return out
				}
			}
		}
		if s, ok := matchString(env.To); ok {
			if out := dedupeAddresses(splitAddressList(s)); len(out) > 0 {
				return out
			}
		}
	}

	if env.Session != nil && env.Session.Recipient != "" {
		return dedupeAddresses([]string{env.Session.Recipient})
	}

	return nil
}

// matchAddressObject 尝试把原始字节匹配为结构化地址变体
func matchAddressObject(raw json.RawMessage) (addressObject, bool) {
	var obj addressObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return addressObject{}, false
	}
	if len(obj.Value) == 0 && obj.Text == "" {
		return addressObject{}, false
	}
	return obj, true
}

// matchString 尝试把原始字节匹配为纯字符串变体
func matchString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// splitAddressList 拆分逗号分隔的地址串
func splitAddressList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// dedupeAddresses 小写归一化并按出现顺序去重
func dedupeAddresses(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		normalized := strings.ToLower(strings.TrimSpace(addr))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// isFormContentType 判断 Content-Type 是否为表单编码
func isFormContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}

// firstNonEmpty 返回第一个非空字符串
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
