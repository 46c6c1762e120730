package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/storage"
	"maildash/backend/internal/storage/memory"
)

func newTestAdmin(t *testing.T, store *memory.Store, alias string) *domain.Account {
	t.Helper()

	account := &domain.Account{
		ID:        uuid.New().String(),
		Alias:     alias,
		Email:     alias + "@example.com",
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateAccount(account))
	return account
}

func newAdminService(store *memory.Store, dns *fakeDNS) *AdminService {
	forwarding := NewForwardingService(store, dns, testConfig(), zap.NewNop())
	return NewAdminService(store, forwarding, zap.NewNop())
}

func TestDeleteAccount(t *testing.T) {
	t.Run("管理员删除普通用户并清理DNS", func(t *testing.T) {
		store := memory.NewStore()
		dns := newFakeDNS()
		svc := newAdminService(store, dns)
		admin := newTestAdmin(t, store, "root")
		alice := newTestAccount(t, store, "alice")
		require.NoError(t, svc.forwarding.ProvisionAlias(context.Background(), alice.Alias))

		result, err := svc.DeleteAccount(context.Background(), admin, alice.ID)

		require.NoError(t, err)
		assert.Equal(t, "alice", result.Alias)
		assert.True(t, result.DNSDeleted)
		assert.Empty(t, result.DNSError)

		_, err = store.GetAccountByID(alice.ID)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	})

	t.Run("无DNS规则时dnsDeleted为假", func(t *testing.T) {
		store := memory.NewStore()
		svc := newAdminService(store, newFakeDNS())
		admin := newTestAdmin(t, store, "root")
		alice := newTestAccount(t, store, "alice")

		result, err := svc.DeleteAccount(context.Background(), admin, alice.ID)

		require.NoError(t, err)
		assert.False(t, result.DNSDeleted)
		assert.Empty(t, result.DNSError)
	})

	t.Run("DNS清理失败不阻塞删号", func(t *testing.T) {
		store := memory.NewStore()
		dns := newFakeDNS()
		svc := newAdminService(store, dns)
		admin := newTestAdmin(t, store, "root")
		alice := newTestAccount(t, store, "alice")
		bob := newTestAccount(t, store, "bob")
		require.NoError(t, svc.forwarding.ProvisionAlias(context.Background(), alice.Alias))
		require.NoError(t, svc.forwarding.ProvisionAlias(context.Background(), bob.Alias))
		dns.failPatch = true

		result, err := svc.DeleteAccount(context.Background(), admin, alice.ID)

		require.NoError(t, err)
		assert.False(t, result.DNSDeleted)
		assert.NotEmpty(t, result.DNSError)

		// 账户照常删除
		_, err = store.GetAccountByID(alice.ID)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	})

	t.Run("本人可删除自己的账户", func(t *testing.T) {
		store := memory.NewStore()
		svc := newAdminService(store, newFakeDNS())
		alice := newTestAccount(t, store, "alice")

		_, err := svc.DeleteAccount(context.Background(), alice, alice.ID)

		require.NoError(t, err)
		_, err = store.GetAccountByID(alice.ID)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	})

	t.Run("删号级联删除邮件", func(t *testing.T) {
		store := memory.NewStore()
		svc := newAdminService(store, newFakeDNS())
		admin := newTestAdmin(t, store, "root")
		alice := newTestAccount(t, store, "alice")
		require.NoError(t, store.CreateMessages([]*domain.Message{{
			ID:        uuid.New().String(),
			UserID:    alice.ID,
			FromEmail: "sender@other.org",
			ToEmail:   alice.Email,
			Subject:   "hello",
			Type:      domain.MessageIncoming,
			CreatedAt: time.Now(),
		}}))

		_, err := svc.DeleteAccount(context.Background(), admin, alice.ID)
		require.NoError(t, err)

		_, total, err := store.ListMessages(storage.MessageFilter{UserID: alice.ID})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("普通用户不能删除他人", func(t *testing.T) {
		store := memory.NewStore()
		svc := newAdminService(store, newFakeDNS())
		alice := newTestAccount(t, store, "alice")
		bob := newTestAccount(t, store, "bob")

		_, err := svc.DeleteAccount(context.Background(), alice, bob.ID)

		assert.ErrorIs(t, err, ErrAdminRequired)
	})

	t.Run("管理员不能删除自己", func(t *testing.T) {
		store := memory.NewStore()
		svc := newAdminService(store, newFakeDNS())
		admin := newTestAdmin(t, store, "root")

		_, err := svc.DeleteAccount(context.Background(), admin, admin.ID)

		assert.ErrorIs(t, err, ErrCannotDeleteSelf)
	})

	t.Run("管理员不能删除其他管理员", func(t *testing.T) {
		store := memory.NewStore()
		svc := newAdminService(store, newFakeDNS())
		admin := newTestAdmin(t, store, "root")
		other := newTestAdmin(t, store, "ops")

		_, err := svc.DeleteAccount(context.Background(), admin, other.ID)

		assert.ErrorIs(t, err, ErrCannotDeleteAdmin)
	})

	t.Run("目标用户不存在", func(t *testing.T) {
		store := memory.NewStore()
		svc := newAdminService(store, newFakeDNS())
		admin := newTestAdmin(t, store, "root")

		_, err := svc.DeleteAccount(context.Background(), admin, "no-such-id")

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestListAccounts(t *testing.T) {
	store := memory.NewStore()
	svc := newAdminService(store, newFakeDNS())
	admin := newTestAdmin(t, store, "root")
	alice := newTestAccount(t, store, "alice")

	t.Run("管理员可列出全部账户", func(t *testing.T) {
		accounts, err := svc.ListAccounts(admin)

		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})

	t.Run("普通用户被拒绝", func(t *testing.T) {
		_, err := svc.ListAccounts(alice)
		assert.ErrorIs(t, err, ErrAdminRequired)
	})
}
