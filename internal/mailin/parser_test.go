package mailin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredPayload(t *testing.T) {
	parser := NewParser("fallback@example.com")

	body := `{
		"from": {"value": [{"address": "Sender@Other.org", "name": "Sender"}], "text": "Sender <sender@other.org>"},
		"to": {"value": [{"address": "Alice@Example.com"}, {"address": "bob@example.com"}], "text": "alice, bob"},
		"subject": "Hello",
		"text": "plain body",
		"html": "<p>plain body</p>",
		"messageId": "<abc123@other.org>",
		"attachments": [
			{"filename": "a.pdf", "contentType": "application/pdf", "size": 1024},
			{"name": "b.png", "type": "image/png", "size": 2048}
		]
	}`

	mail, err := parser.Parse("application/json", []byte(body))

	require.NoError(t, err)
	assert.Equal(t, "Sender@Other.org", mail.From)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, mail.Recipients)
	assert.Equal(t, "Hello", mail.Subject)
	assert.Equal(t, "plain body", mail.Text)
	assert.Equal(t, "<p>plain body</p>", mail.HTML)
	require.NotNil(t, mail.MessageID)
	assert.Equal(t, "<abc123@other.org>", *mail.MessageID)
	require.Len(t, mail.Attachments, 2)
	assert.Equal(t, "a.pdf", mail.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", mail.Attachments[0].ContentType)
	// 字段别名 name/type 也能匹配
	assert.Equal(t, "b.png", mail.Attachments[1].Filename)
	assert.Equal(t, "image/png", mail.Attachments[1].ContentType)
}

func TestParseStringVariants(t *testing.T) {
	parser := NewParser("fallback@example.com")

	t.Run("纯字符串from和to", func(t *testing.T) {
		body := `{"from": "sender@other.org", "to": "Alice@Example.com, alice@example.com , bob@example.com", "subject": "s", "text": "t"}`

		mail, err := parser.Parse("application/json", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, "sender@other.org", mail.From)
		// 大小写不敏感去重，保持出现顺序
		assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, mail.Recipients)
	})

	t.Run("顶层recipients数组优先", func(t *testing.T) {
		body := `{"from": "sender@other.org", "to": "ignored@example.com", "recipients": ["carol@example.com"], "text": "t"}`

		mail, err := parser.Parse("application/json", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, []string{"carol@example.com"}, mail.Recipients)
	})

	t.Run("session形状兜底", func(t *testing.T) {
		body := `{"session": {"sender": "sender@other.org", "recipient": "Dave@Example.com"}, "text": "t"}`

		mail, err := parser.Parse("application/json", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, "sender@other.org", mail.From)
		assert.Equal(t, []string{"dave@example.com"}, mail.Recipients)
	})

	t.Run("message_id下划线别名", func(t *testing.T) {
		body := `{"from": "sender@other.org", "to": "a@example.com", "message_id": "<id@x>", "text": "t"}`

		mail, err := parser.Parse("application/json", []byte(body))

		require.NoError(t, err)
		require.NotNil(t, mail.MessageID)
		assert.Equal(t, "<id@x>", *mail.MessageID)
	})
}

func TestParseDefaults(t *testing.T) {
	parser := NewParser("fallback@example.com")

	t.Run("缺失主题使用默认值", func(t *testing.T) {
		body := `{"from": "sender@other.org", "to": "a@example.com", "text": "t"}`

		mail, err := parser.Parse("application/json", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, DefaultSubject, mail.Subject)
		assert.Nil(t, mail.MessageID)
	})

	t.Run("无收件人时使用兜底地址", func(t *testing.T) {
		body := `{"from": "sender@other.org", "subject": "s", "text": "t"}`

		mail, err := parser.Parse("application/json", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, []string{"fallback@example.com"}, mail.Recipients)
	})

	t.Run("textAsHtml回填正文", func(t *testing.T) {
		body := `{"from": "sender@other.org", "to": "a@example.com", "textAsHtml": "<p>x</p>"}`

		mail, err := parser.Parse("application/json", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, "<p>x</p>", mail.Text)
		assert.Equal(t, "<p>x</p>", mail.HTML)
	})

	t.Run("未配置兜底地址且无收件人时返回空列表", func(t *testing.T) {
		bare := NewParser("")
		body := `{"from": "sender@other.org", "text": "t"}`

		mail, err := bare.Parse("application/json", []byte(body))

		require.NoError(t, err)
		assert.Empty(t, mail.Recipients)
	})
}

func TestParseFormPayload(t *testing.T) {
	parser := NewParser("fallback@example.com")

	t.Run("标准表单负载", func(t *testing.T) {
		body := "from=sender%40other.org&to=Alice%40Example.com%2Cbob%40example.com&subject=hello&text=body"

		mail, err := parser.Parse("application/x-www-form-urlencoded", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, "sender@other.org", mail.From)
		assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, mail.Recipients)
		assert.Equal(t, "hello", mail.Subject)
		assert.Equal(t, "body", mail.Text)
	})

	t.Run("缺少Content-Type头也能识别表单", func(t *testing.T) {
		body := "from=sender%40other.org&to=a%40example.com&text=t"

		mail, err := parser.Parse("", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, "sender@other.org", mail.From)
	})

	t.Run("sender字段别名", func(t *testing.T) {
		body := "sender=sender%40other.org&to=a%40example.com&text=t"

		mail, err := parser.Parse("application/x-www-form-urlencoded", []byte(body))

		require.NoError(t, err)
		assert.Equal(t, "sender@other.org", mail.From)
	})
}

func TestParseFailures(t *testing.T) {
	parser := NewParser("fallback@example.com")

	t.Run("空请求体", func(t *testing.T) {
		_, err := parser.Parse("application/json", []byte("   "))
		assert.ErrorIs(t, err, ErrUnparsableBody)
	})

	t.Run("完全无法解析的请求体", func(t *testing.T) {
		_, err := parser.Parse("text/plain", []byte("this is not json and has no pairs"))
		assert.ErrorIs(t, err, ErrUnparsableBody)
	})

	t.Run("JSON负载缺少发件人", func(t *testing.T) {
		_, err := parser.Parse("application/json", []byte(`{"to": "a@example.com", "text": "t"}`))
		assert.ErrorIs(t, err, ErrMissingSender)
	})

	t.Run("JSON数组不是合法信封", func(t *testing.T) {
		_, err := parser.Parse("application/json", []byte(`[1, 2, 3]`))
		assert.ErrorIs(t, err, ErrUnparsableBody)
	})
}
