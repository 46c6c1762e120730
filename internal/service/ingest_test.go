package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/mailin"
	"maildash/backend/internal/storage"
	"maildash/backend/internal/storage/memory"
)

func newTestAccount(t *testing.T, store *memory.Store, alias string) *domain.Account {
	t.Helper()

	account := &domain.Account{
		ID:        uuid.New().String(),
		Alias:     alias,
		Email:     alias + "@example.com",
		Role:      domain.RoleUser,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateAccount(account))
	return account
}

func inboundMail(recipients ...string) *mailin.InboundMail {
	return &mailin.InboundMail{
		From:       "sender@other.org",
		Recipients: recipients,
		Subject:    "hello",
		Text:       "body",
		HTML:       "<p>body</p>",
		Raw:        domain.Metadata{"subject": "hello"},
	}
}

// recordingNotifier 记录收到的通知
type recordingNotifier struct {
	notified []string
}

func (n *recordingNotifier) NotifyNewMail(userID string, message *domain.Message) {
	n.notified = append(n.notified, userID)
}

func TestIngest(t *testing.T) {
	t.Run("单收件人投递成功", func(t *testing.T) {
		store := memory.NewStore()
		alice := newTestAccount(t, store, "alice")
		svc := NewIngestService(store, zap.NewNop())

		result, err := svc.Ingest(inboundMail("alice@example.com"))

		require.NoError(t, err)
		require.Len(t, result.Created, 1)
		assert.Empty(t, result.Missed)

		msg := result.Created[0]
		assert.Equal(t, alice.ID, msg.UserID)
		assert.Equal(t, domain.MessageIncoming, msg.Type)
		assert.Equal(t, "sender@other.org", msg.FromEmail)
		assert.Equal(t, "alice@example.com", msg.ToEmail)
		assert.False(t, msg.IsRead)
		assert.NotNil(t, msg.ReceivedAt)
		// 原始负载保留在 metadata 里
		assert.Contains(t, msg.Metadata, "raw_webhook")
	})

	t.Run("部分收件人未匹配仍然部分成功", func(t *testing.T) {
		store := memory.NewStore()
		newTestAccount(t, store, "alice")
		newTestAccount(t, store, "bob")
		svc := NewIngestService(store, zap.NewNop())

		result, err := svc.Ingest(inboundMail(
			"alice@example.com",
			"ghost@example.com",
			"bob@example.com",
		))

		require.NoError(t, err)
		assert.Len(t, result.Created, 2)
		assert.Equal(t, []string{"ghost@example.com"}, result.Missed)
	})

	t.Run("零收件人匹配时不落库", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewIngestService(store, zap.NewNop())

		result, err := svc.Ingest(inboundMail("ghost@example.com"))

		assert.ErrorIs(t, err, ErrNoRecipientMatched)
		assert.Empty(t, result.Created)
		assert.Equal(t, []string{"ghost@example.com"}, result.Missed)

		recent, err := store.ListRecentMessages(domain.MessageIncoming, 10)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})

	t.Run("同一负载投递两次产生两行记录", func(t *testing.T) {
		store := memory.NewStore()
		alice := newTestAccount(t, store, "alice")
		svc := NewIngestService(store, zap.NewNop())

		mail := inboundMail("alice@example.com")
		id := "<same-id@other.org>"
		mail.MessageID = &id

		_, err := svc.Ingest(mail)
		require.NoError(t, err)
		_, err = svc.Ingest(mail)
		require.NoError(t, err)

		messages, total, err := store.ListMessages(storage.MessageFilter{UserID: alice.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, messages, 2)
	})

	t.Run("落库后触发通知", func(t *testing.T) {
		store := memory.NewStore()
		alice := newTestAccount(t, store, "alice")
		bob := newTestAccount(t, store, "bob")
		svc := NewIngestService(store, zap.NewNop())

		notifier := &recordingNotifier{}
		svc.SetNotifier(notifier)

		_, err := svc.Ingest(inboundMail("alice@example.com", "bob@example.com"))

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{alice.ID, bob.ID}, notifier.notified)
	})
}
