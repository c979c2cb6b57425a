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
	HTTPResponseSize    *prometheus.HistogramVec

	// API密钥指标
	APIKeysIssued      prometheus.Counter
	APIKeysRevoked     prometheus.Counter
	APIKeyValidations  *prometheus.CounterVec
	ScopeDenials       *prometheus.CounterVec

	// 业务指标
	ShoppingItemsCreated prometheus.Counter
	EventsCreated        prometheus.Counter
	ExpensesCreated      prometheus.Counter
	ChoresCompleted      prometheus.Counter
	ChoresRolled         prometheus.Counter

	// 用户指标
	UsersRegistered prometheus.Counter
	UsersActive     prometheus.Gauge

	// 系统指标
	SystemUptime        prometheus.Gauge
	DatabaseConnections prometheus.Gauge
	MemoryUsage         prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexo_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexo_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexo_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		APIKeysIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_api_keys_issued_total",
				Help: "Total number of API keys issued",
			},
		),

		APIKeysRevoked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_api_keys_revoked_total",
				Help: "Total number of API keys revoked",
			},
		),

		APIKeyValidations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexo_api_key_validations_total",
				Help: "API key validation attempts by result",
			},
			[]string{"result"},
		),

		ScopeDenials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexo_scope_denials_total",
				Help: "Requests rejected for missing scopes",
			},
			[]string{"scope"},
		),

		ShoppingItemsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_shopping_items_created_total",
				Help: "Total number of shopping items created",
			},
		),

		EventsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_events_created_total",
				Help: "Total number of calendar events created",
			},
		),

		ExpensesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_expenses_created_total",
				Help: "Total number of expenses recorded",
			},
		),

		ChoresCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_chores_completed_total",
				Help: "Total number of chores completed",
			},
		),

		ChoresRolled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_chores_rolled_total",
				Help: "Total number of recurring chores reset",
			},
		),

		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		UsersActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nexo_users_active",
				Help: "Number of active users",
			},
		),

		SystemUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nexo_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),

		DatabaseConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nexo_database_connections",
				Help: "Number of open database connections",
			},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nexo_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexo_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexo_panics_total",
				Help: "Total number of recovered panics",
			},
		),

		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexo_rate_limit_blocks_total",
				Help: "Requests blocked by rate limiting",
			},
			[]string{"limit_type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordAPIKeyIssued 记录密钥签发
func (m *Metrics) RecordAPIKeyIssued() {
	m.APIKeysIssued.Inc()
}

// RecordAPIKeyRevoked 记录密钥撤销
func (m *Metrics) RecordAPIKeyRevoked() {
	m.APIKeysRevoked.Inc()
}

// RecordAPIKeyValidation 记录密钥验证结果
//
// result 取值: success / invalid_format / not_found / disabled / expired / error
func (m *Metrics) RecordAPIKeyValidation(result string) {
	m.APIKeyValidations.WithLabelValues(result).Inc()
}

// RecordScopeDenial 记录权限不足的拒绝
func (m *Metrics) RecordScopeDenial(scope string) {
	m.ScopeDenials.WithLabelValues(scope).Inc()
}

// RecordShoppingItemCreated 记录购物项创建
func (m *Metrics) RecordShoppingItemCreated() {
	m.ShoppingItemsCreated.Inc()
}

// RecordEventCreated 记录日历事件创建
func (m *Metrics) RecordEventCreated() {
	m.EventsCreated.Inc()
}

// RecordExpenseCreated 记录开支创建
func (m *Metrics) RecordExpenseCreated() {
	m.ExpensesCreated.Inc()
}

// RecordChoreCompleted 记录家务完成
func (m *Metrics) RecordChoreCompleted() {
	m.ChoresCompleted.Inc()
}

// RecordChoresRolled 记录周期性家务重置数量
func (m *Metrics) RecordChoresRolled(count int) {
	m.ChoresRolled.Add(float64(count))
}

// RecordUserRegistered 记录用户注册
func (m *Metrics) RecordUserRegistered() {
	m.UsersRegistered.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// UpdateUsersActive 更新活跃用户数
func (m *Metrics) UpdateUsersActive(count int) {
	m.UsersActive.Set(float64(count))
}

// UpdateSystemUptime 更新系统运行时间
func (m *Metrics) UpdateSystemUptime(uptime time.Duration) {
	m.SystemUptime.Set(uptime.Seconds())
}

// UpdateDatabaseConnections 更新数据库连接数
func (m *Metrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// UpdateMemoryUsage 更新内存使用量
func (m *Metrics) UpdateMemoryUsage(bytes int64) {
	m.MemoryUsage.Set(float64(bytes))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
