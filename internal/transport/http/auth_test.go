package httptransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maildash/backend/internal/auth"
	jwtpkg "maildash/backend/internal/auth/jwt"
	"maildash/backend/internal/config"
	"maildash/backend/internal/dnsapi"
	"maildash/backend/internal/service"
	"maildash/backend/internal/storage/memory"
)

// ctxCapturingDNS 记录每次调用收到的 context 的假 DNS 客户端
type ctxCapturingDNS struct {
	listCtx context.Context
}

func (d *ctxCapturingDNS) Configured() bool { return true }

func (d *ctxCapturingDNS) ListForwardRecords(ctx context.Context) ([]dnsapi.Record, error) {
	d.listCtx = ctx
	return nil, nil
}

func (d *ctxCapturingDNS) FindRecordByAlias(ctx context.Context, alias string) (*dnsapi.Record, error) {
	return nil, dnsapi.ErrRecordNotFound
}

func (d *ctxCapturingDNS) CreateRecord(ctx context.Context, content string) (*dnsapi.Record, error) {
	return &dnsapi.Record{ID: "rec-1", Content: content}, nil
}

func (d *ctxCapturingDNS) PatchRecordContent(ctx context.Context, recordID, content string) error {
	return nil
}

func (d *ctxCapturingDNS) DeleteRecord(ctx context.Context, recordID string) error {
	return nil
}

type requestIDKey struct{}

func TestSignupProvisionsDNSWithRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mail: config.MailConfig{
			ApexDomain: "example.com",
			SiteURL:    "https://dash.example.com",
		},
		Signup: config.SignupConfig{AllowRegister: true},
	}
	store := memory.NewStore()
	dns := &ctxCapturingDNS{}
	handler := NewAuthHandler(
		auth.NewService(store, cfg),
		service.NewForwardingService(store, dns, cfg, zap.NewNop()),
		jwtpkg.NewManager("test-secret-test-secret-test-key", "maildash-test", time.Hour),
		testMetrics,
		zap.NewNop(),
	)

	router := gin.New()
	router.POST("/api/auth/signup", handler.Signup)

	body := `{"alias": "alice", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	// 在请求上下文里埋一个标记，确认 DNS 登记用的是同一个上下文
	req = req.WithContext(context.WithValue(req.Context(), requestIDKey{}, "req-42"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, dns.listCtx)
	assert.Equal(t, "req-42", dns.listCtx.Value(requestIDKey{}))

	account, err := store.GetAccountByAlias("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", account.Email)
}
