// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、掃除ジョブから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
	RecordLogin(result string)
	RecordApplication(status string)
	RecordNotifications(count int)
	RecordSweep(jobsDeleted, sessionsDeleted int64)
}

// ログイン結果のラベル値
const (
	LoginSuccess = "success"
	LoginInvalid = "invalid"
	LoginPending = "pending"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   prometheus.Histogram
	logins        *prometheus.CounterVec
	applications  *prometheus.CounterVec
	notifications prometheus.Counter
	jobsSwept     prometheus.Counter
	sessionsSwept prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_http_requests_total",
			Help: "メソッドとステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobboard_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_applications_total",
			Help: "状態別の応募イベント数",
		}, []string{"status"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_notifications_created_total",
			Help: "作成された通知の合計数",
		}),
		jobsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_expired_jobs_deleted_total",
			Help: "期限切れで削除された求人の合計数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_expired_sessions_deleted_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.logins,
		c.applications,
		c.notifications,
		c.jobsSwept,
		c.sessionsSwept,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordApplication は応募の提出・審査を記録する。
func (c *Collector) RecordApplication(status string) {
	c.applications.WithLabelValues(status).Inc()
}

// RecordNotifications は作成された通知数を記録する。
func (c *Collector) RecordNotifications(count int) {
	c.notifications.Add(float64(count))
}

// RecordSweep は掃除ジョブで削除された件数を記録する。
func (c *Collector) RecordSweep(jobsDeleted, sessionsDeleted int64) {
	c.jobsSwept.Add(float64(jobsDeleted))
	c.sessionsSwept.Add(float64(sessionsDeleted))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
func (Nop) RecordLogin(string)                           {}
func (Nop) RecordApplication(string)                     {}
func (Nop) RecordNotifications(int)                      {}
func (Nop) RecordSweep(int64, int64)                     {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
