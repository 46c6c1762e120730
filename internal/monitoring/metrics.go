package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 账户指标
	AccountsRegistered prometheus.Counter
	AccountsDeleted    prometheus.Counter

	// 邮件指标
	WebhooksReceived   prometheus.Counter
	WebhooksRejected   *prometheus.CounterVec
	MessagesDelivered  prometheus.Counter
	RecipientsMissed   prometheus.Counter
	MessagesSent       prometheus.Counter
	MessagesRead       prometheus.Counter
	IngestDuration     prometheus.Histogram

	// 转发 / DNS 指标
	ForwardingUpdates prometheus.Counter
	DNSSyncFailures   prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildash_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maildash_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		AccountsRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_accounts_registered_total",
				Help: "Total number of accounts registered",
			},
		),

		AccountsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_accounts_deleted_total",
				Help: "Total number of accounts deleted",
			},
		),

		WebhooksReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_webhooks_received_total",
				Help: "Total number of inbound mail webhooks received",
			},
		),

		WebhooksRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildash_webhooks_rejected_total",
				Help: "Total number of inbound mail webhooks rejected",
			},
			[]string{"reason"},
		),

		MessagesDelivered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_messages_delivered_total",
				Help: "Total number of inbound messages delivered to mailboxes",
			},
		),

		RecipientsMissed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_recipients_missed_total",
				Help: "Total number of webhook recipients with no matching account",
			},
		),

		MessagesSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_messages_sent_total",
				Help: "Total number of outbound messages sent",
			},
		),

		MessagesRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_messages_read_total",
				Help: "Total number of messages marked as read",
			},
		),

		IngestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "maildash_ingest_duration_seconds",
				Help:    "Inbound mail processing duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		ForwardingUpdates: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_forwarding_updates_total",
				Help: "Total number of forwarding configuration updates",
			},
		),

		DNSSyncFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildash_dns_sync_failures_total",
				Help: "Total number of failed DNS record synchronizations",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildash_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordWebhook 记录一次收到的入站 webhook
func (m *Metrics) RecordWebhook() {
	m.WebhooksReceived.Inc()
}

// RecordWebhookRejected 记录被拒绝的 webhook
func (m *Metrics) RecordWebhookRejected(reason string) {
	m.WebhooksRejected.WithLabelValues(reason).Inc()
}

// RecordIngest 记录一次入站投递的结果
func (m *Metrics) RecordIngest(delivered, missed int, duration time.Duration) {
	m.MessagesDelivered.Add(float64(delivered))
	m.RecipientsMissed.Add(float64(missed))
	m.IngestDuration.Observe(duration.Seconds())
}

// RecordMessageSent 记录邮件发送
func (m *Metrics) RecordMessageSent() {
	m.MessagesSent.Inc()
}

// RecordMessageRead 记录邮件已读
func (m *Metrics) RecordMessageRead() {
	m.MessagesRead.Inc()
}

// RecordAccountRegistered 记录账户注册
func (m *Metrics) RecordAccountRegistered() {
	m.AccountsRegistered.Inc()
}

// RecordAccountDeleted 记录账户删除
func (m *Metrics) RecordAccountDeleted() {
	m.AccountsDeleted.Inc()
}

// RecordForwardingUpdate 记录转发配置更新
func (m *Metrics) RecordForwardingUpdate() {
	m.ForwardingUpdates.Inc()
}

// RecordDNSSyncFailure 记录 DNS 同步失败
func (m *Metrics) RecordDNSSyncFailure() {
	m.DNSSyncFailures.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
