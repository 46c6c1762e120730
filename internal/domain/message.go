package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MessageType 邮件方向
type MessageType string

const (
	MessageIncoming MessageType = "incoming"
	MessageOutgoing MessageType = "outgoing"
)

// Attachment 表示邮件附件的元信息（只存元数据，不存内容）。
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// AttachmentList 附件列表，整体以 JSON 存入单列
type AttachmentList []Attachment

// Value 实现 driver.Valuer
func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		l = AttachmentList{}
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner
func (l *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*l = AttachmentList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported attachment column type %T", value)
	}
}

// Metadata 原始 webhook 负载等调试信息，以 JSON 存入单列
type Metadata map[string]interface{}

// Value 实现 driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		m = Metadata{}
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
}

// Message 表示账户收件箱或发件箱中的一封邮件。
// 入站邮件由 webhook 摄取创建，出站邮件由发送流水线创建；
// 创建后只允许翻转 is_read，账户删除时级联删除。
type Message struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string         `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Account     *Account       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	FromEmail   string         `json:"from_email" gorm:"type:varchar(255)"`
	ToEmail     string         `json:"to_email" gorm:"type:varchar(500)"`
	Subject     string         `json:"subject" gorm:"type:varchar(500)"`
	Body        string         `json:"body" gorm:"type:text"`
	HTMLBody    string         `json:"html_body" gorm:"type:text"`
	Type        MessageType    `json:"type" gorm:"type:varchar(10);index"`
	IsRead      bool           `json:"is_read" gorm:"default:false;index"`
	MessageID   *string        `json:"message_id,omitempty" gorm:"type:varchar(255)"`
	ReceivedAt  *time.Time     `json:"received_at,omitempty"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	Attachments AttachmentList `json:"attachments" gorm:"type:jsonb"`
	Metadata    Metadata       `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at"`
}
