package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// MailConfig 定义邮件域的核心业务配置
type MailConfig struct {
	ApexDomain       string // 账户所在的邮件域，如 "example.com"
	SiteURL          string // 站点基础 URL，用于拼接入站 webhook 地址
	DefaultRecipient string // 负载中无法识别收件人时的兜底地址
}

// SignupConfig 定义注册相关配置
type SignupConfig struct {
	AllowRegister bool   // 是否开放注册
	AskPassphrase bool   // 是否启用注册口令门
	Passphrase    string // 注册口令（AskPassphrase 为 true 时必填）
}

// SMTP2GOConfig 定义出站邮件 API 配置
type SMTP2GOConfig struct {
	APIKey  string // SMTP2GO API Key
	BaseURL string // API 基础地址，测试时可指向本地 mock
}

// CloudflareConfig 定义 DNS 服务商 API 配置
type CloudflareConfig struct {
	APIKey  string // API Token
	ZoneID  string // 域名所在 Zone ID
	BaseURL string // API 基础地址
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空时只输出到标准输出
}

// DatabaseConfig 定义 PostgreSQL 连接配置
type DatabaseConfig struct {
	DSN             string        // 连接字符串，留空时使用内存存储
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，留空时不启用缓存
	Password string // Redis 认证密码
	DB       int    // Redis 数据库编号
}

// JWTConfig 定义 JWT 认证相关配置
type JWTConfig struct {
	Secret       string        // JWT 签名密钥，必须至少 32 字符
	Issuer       string        // JWT 签发者标识，默认 "maildash"
	AccessExpiry time.Duration // 访问令牌有效期，默认 24 小时
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server     ServerConfig
	Mail       MailConfig
	Signup     SignupConfig
	SMTP2GO    SMTP2GOConfig
	Cloudflare CloudflareConfig
	CORS       CORSConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
}

// WebhookURL 返回入站邮件 webhook 的完整地址，
// 该地址会被写进共享 TXT 记录里每个别名的路由规则。
func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.Mail.SiteURL, "/") + "/api/webhooks/incomingMail"
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: MAILDASH_
// 例如: MAILDASH_MAIL_APEX_DOMAIN, MAILDASH_JWT_SECRET
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("maildash")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("mail.apex_domain", "example.com")
	viper.SetDefault("mail.site_url", "http://localhost:8080")
	viper.SetDefault("mail.default_recipient", "")
	viper.SetDefault("signup.allow_register", true)
	viper.SetDefault("signup.ask_passphrase", false)
	viper.SetDefault("signup.passphrase", "")
	viper.SetDefault("smtp2go.api_key", "")
	viper.SetDefault("smtp2go.base_url", "https://api.smtp2go.com/v3")
	viper.SetDefault("cloudflare.api_key", "")
	viper.SetDefault("cloudflare.zone_id", "")
	viper.SetDefault("cloudflare.base_url", "https://api.cloudflare.com/client/v4")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.issuer", "maildash")
	viper.SetDefault("jwt.access_expiry", "24h")

	apexDomain := strings.ToLower(strings.TrimSpace(viper.GetString("mail.apex_domain")))
	if apexDomain == "" {
		return nil, fmt.Errorf("mail.apex_domain must not be empty")
	}

	defaultRecipient := viper.GetString("mail.default_recipient")
	if defaultRecipient == "" {
		defaultRecipient = "postmaster@" + apexDomain
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("jwt.access_expiry"))
	if err != nil {
		accessExpiry = 24 * time.Hour
	}

	jwtSecret := viper.GetString("jwt.secret")

	// 安全检查：禁止使用默认的 JWT secret
	if jwtSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set MAILDASH_JWT_SECRET environment variable")
	}

	// JWT secret 必须至少 32 字符
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	askPassphrase := viper.GetBool("signup.ask_passphrase")
	passphrase := viper.GetString("signup.passphrase")
	if askPassphrase && passphrase == "" {
		return nil, fmt.Errorf("signup.passphrase is required when signup.ask_passphrase is enabled")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mail: MailConfig{
			ApexDomain:       apexDomain,
			SiteURL:          strings.TrimSpace(viper.GetString("mail.site_url")),
			DefaultRecipient: defaultRecipient,
		},
		Signup: SignupConfig{
			AllowRegister: viper.GetBool("signup.allow_register"),
			AskPassphrase: askPassphrase,
			Passphrase:    passphrase,
		},
		SMTP2GO: SMTP2GOConfig{
			APIKey:  viper.GetString("smtp2go.api_key"),
			BaseURL: viper.GetString("smtp2go.base_url"),
		},
		Cloudflare: CloudflareConfig{
			APIKey:  viper.GetString("cloudflare.api_key"),
			ZoneID:  viper.GetString("cloudflare.zone_id"),
			BaseURL: viper.GetString("cloudflare.base_url"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:       jwtSecret,
			Issuer:       viper.GetString("jwt.issuer"),
			AccessExpiry: accessExpiry,
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从 backend/ 子目录运行的情况）
//
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
