package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/mailout"
	"maildash/backend/internal/monitoring"
	"maildash/backend/internal/service"
	"maildash/backend/internal/storage/memory"
)

// prometheus 默认注册表不允许重复注册，整个测试包共用一份指标
var testMetrics = monitoring.NewMetrics()

// fakeSender 记录发送请求的假出站客户端
type fakeSender struct {
	sent []mailout.SendRequest
}

func (f *fakeSender) Send(ctx context.Context, req mailout.SendRequest) (*mailout.SendResponse, error) {
	f.sent = append(f.sent, req)
	return &mailout.SendResponse{}, nil
}

// newSendRouter 组装一个只挂发送路由的测试引擎，账户直接注入上下文
func newSendRouter(t *testing.T) (*gin.Engine, *fakeSender, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	account := &domain.Account{
		ID:        "user-1",
		Alias:     "alice",
		Email:     "alice@example.com",
		Role:      domain.RoleUser,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateAccount(account))

	sender := &fakeSender{}
	handler := NewEmailHandler(
		service.NewMessageService(store),
		service.NewSendService(store, sender, zap.NewNop()),
		testMetrics,
		zap.NewNop(),
	)

	router := gin.New()
	router.POST("/api/send", func(c *gin.Context) {
		c.Set("account", account)
		handler.SendEmail(c)
	})
	return router, sender, store
}

func postSend(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendEmailHandler(t *testing.T) {
	t.Run("to 为字符串", func(t *testing.T) {
		router, sender, _ := newSendRouter(t)

		rec := postSend(t, router, `{"to": "a@x.com; b@y.com", "subject": "s", "body": "b"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, []string{"a@x.com", "b@y.com"}, sender.sent[0].To)
	})

	t.Run("to 为数组", func(t *testing.T) {
		router, sender, store := newSendRouter(t)

		rec := postSend(t, router, `{"to": ["a@x.com", "b@y.com"], "subject": "s", "body": "b"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, []string{"a@x.com", "b@y.com"}, sender.sent[0].To)

		var resp struct {
			Success bool           `json:"success"`
			Email   domain.Message `json:"email"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		// 数组形状合并后与字符串形状存同样的地址串
		assert.Equal(t, "a@x.com, b@y.com", resp.Email.ToEmail)

		stored, err := store.GetMessage(resp.Email.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MessageOutgoing, stored.Type)
	})

	t.Run("数组中的非法地址整体拒绝", func(t *testing.T) {
		router, sender, _ := newSendRouter(t)

		rec := postSend(t, router, `{"to": ["a@x.com", "not-an-email"], "subject": "s", "body": "b"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, sender.sent)
	})

	t.Run("缺少 to 字段", func(t *testing.T) {
		router, sender, _ := newSendRouter(t)

		rec := postSend(t, router, `{"subject": "s", "body": "b"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, sender.sent)
	})
}

func TestRecipientFieldUnmarshal(t *testing.T) {
	t.Run("字符串形状", func(t *testing.T) {
		var r recipientField
		require.NoError(t, json.Unmarshal([]byte(`"a@x.com, b@y.com"`), &r))
		assert.Equal(t, recipientField("a@x.com, b@y.com"), r)
	})

	t.Run("数组形状", func(t *testing.T) {
		var r recipientField
		require.NoError(t, json.Unmarshal([]byte(`["a@x.com", "b@y.com"]`), &r))
		assert.Equal(t, recipientField("a@x.com, b@y.com"), r)
	})

	t.Run("其他形状报错", func(t *testing.T) {
		var r recipientField
		assert.Error(t, json.Unmarshal([]byte(`42`), &r))
	})
}
