package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-development-32-chars-long"

func withEnv(t *testing.T, envs map[string]string) {
	t.Helper()

	keys := []string{
		"MAILDASH_JWT_SECRET",
		"MAILDASH_SERVER_HOST",
		"MAILDASH_SERVER_PORT",
		"MAILDASH_MAIL_APEX_DOMAIN",
		"MAILDASH_MAIL_SITE_URL",
		"MAILDASH_MAIL_DEFAULT_RECIPIENT",
		"MAILDASH_SIGNUP_ALLOW_REGISTER",
		"MAILDASH_SIGNUP_ASK_PASSPHRASE",
		"MAILDASH_SIGNUP_PASSPHRASE",
		"MAILDASH_CORS_ALLOWED_ORIGINS",
		"MAILDASH_LOG_LEVEL",
	}
	for _, key := range keys {
		original, had := os.LookupEnv(key)
		os.Unsetenv(key)
		if had {
			t.Cleanup(func() { os.Setenv(key, original) })
		}
	}
	for key, value := range envs {
		os.Setenv(key, value)
		t.Cleanup(func() { os.Unsetenv(key) })
	}
}

func TestLoad(t *testing.T) {
	t.Run("加载默认配置成功", func(t *testing.T) {
		withEnv(t, map[string]string{
			"MAILDASH_JWT_SECRET": testSecret,
		})

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "example.com", cfg.Mail.ApexDomain)
		assert.Equal(t, "postmaster@example.com", cfg.Mail.DefaultRecipient)
		assert.True(t, cfg.Signup.AllowRegister)
		assert.False(t, cfg.Signup.AskPassphrase)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "maildash", cfg.JWT.Issuer)
		assert.Equal(t, 24*time.Hour, cfg.JWT.AccessExpiry)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		withEnv(t, map[string]string{
			"MAILDASH_JWT_SECRET":           testSecret,
			"MAILDASH_MAIL_APEX_DOMAIN":     "Mail.Example.ORG",
			"MAILDASH_MAIL_SITE_URL":        "https://dash.example.org",
			"MAILDASH_CORS_ALLOWED_ORIGINS": "https://a.example.org, https://b.example.org",
			"MAILDASH_SERVER_PORT":          "9090",
		})

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		// 域名归一化为小写
		assert.Equal(t, "mail.example.org", cfg.Mail.ApexDomain)
		assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("缺少JWT密钥时失败", func(t *testing.T) {
		withEnv(t, nil)

		_, err := Load()

		assert.Error(t, err)
	})

	t.Run("JWT密钥过短时失败", func(t *testing.T) {
		withEnv(t, map[string]string{
			"MAILDASH_JWT_SECRET": "short",
		})

		_, err := Load()

		assert.Error(t, err)
	})

	t.Run("启用口令门但未设置口令时失败", func(t *testing.T) {
		withEnv(t, map[string]string{
			"MAILDASH_JWT_SECRET":            testSecret,
			"MAILDASH_SIGNUP_ASK_PASSPHRASE": "true",
		})

		_, err := Load()

		assert.Error(t, err)
	})

	t.Run("口令门配置完整时成功", func(t *testing.T) {
		withEnv(t, map[string]string{
			"MAILDASH_JWT_SECRET":            testSecret,
			"MAILDASH_SIGNUP_ASK_PASSPHRASE": "true",
			"MAILDASH_SIGNUP_PASSPHRASE":     "open-sesame",
		})

		cfg, err := Load()

		require.NoError(t, err)
		assert.True(t, cfg.Signup.AskPassphrase)
		assert.Equal(t, "open-sesame", cfg.Signup.Passphrase)
	})
}

func TestWebhookURL(t *testing.T) {
	cfg := &Config{
		Mail: MailConfig{SiteURL: "https://dash.example.org/"},
	}

	assert.Equal(t, "https://dash.example.org/api/webhooks/incomingMail", cfg.WebhookURL())
}
