package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"sales-forecast-api/pkg/models"

	"github.com/gin-gonic/gin"
)

// 保持するリクエストログの上限
const maxLogEntries = 10000

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTime"`
}

// MonitoringService はAPIのリクエストと予測の生成元を記録します。
type MonitoringService struct {
	mu              sync.RWMutex
	logs            []LogEntry
	forecastSources map[models.ForecastSource]int
	backendFailures map[string]int
	location        *time.Location
	now             func() time.Time
}

var (
	_ ForecastRecorder       = (*MonitoringService)(nil)
	_ BackendFailureRecorder = (*MonitoringService)(nil)
)

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService() *MonitoringService {
	// JSTが取得できない場合はUTC
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		loc = time.UTC
	}
	return &MonitoringService{
		logs:            make([]LogEntry, 0),
		forecastSources: make(map[models.ForecastSource]int),
		backendFailures: make(map[string]int),
		location:        loc,
		now:             time.Now,
	}
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = append([]LogEntry(nil), s.logs[len(s.logs)-maxLogEntries:]...)
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
// 管理・モニタリングAPI自体は記録しません。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}
		s.LogRequest(LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: s.now().Sub(start),
		})
	}
}

// RecordForecast は予測値の生成元ごとの件数を加算します。
func (s *MonitoringService) RecordForecast(source models.ForecastSource, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecastSources[source] += count
}

// RecordBackendFailure は予測サービス呼び出しの失敗を記録します。
func (s *MonitoringService) RecordBackendFailure(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backendFailures[op]++
}

// ForecastStats 予測の生成元の内訳
type ForecastStats struct {
	Sources         map[models.ForecastSource]int `json:"sources"`
	BackendFailures map[string]int                `json:"backendFailures"`
	TotalDays       int                           `json:"totalDays"`
	FallbackRate    float64                       `json:"fallbackRate"`
}

// GetForecastStats は予測の生成元の内訳と、ヒューリスティックに落ちた割合を返します。
func (s *MonitoringService) GetForecastStats() ForecastStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ForecastStats{
		Sources:         make(map[models.ForecastSource]int, len(s.forecastSources)),
		BackendFailures: make(map[string]int, len(s.backendFailures)),
	}
	for source, n := range s.forecastSources {
		stats.Sources[source] = n
		stats.TotalDays += n
	}
	for op, n := range s.backendFailures {
		stats.BackendFailures[op] = n
	}
	if stats.TotalDays > 0 {
		stats.FallbackRate = float64(s.forecastSources[models.SourceHeuristic]) / float64(stats.TotalDays)
	}
	return stats
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []map[string]interface{} `json:"requestsOverTime"`
	Endpoints        map[string]int           `json:"endpoints"`
	StatusCodes      []map[string]interface{} `json:"statusCodes"`
	AvgResponseTimes []map[string]interface{} `json:"avgResponseTimes"`
	RecentErrors     []LogEntry               `json:"recentErrors"`
	Forecasts        ForecastStats            `json:"forecasts"`
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}
	now := s.now().In(s.location)
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	s.mu.RLock()
	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}
	s.mu.RUnlock()

	return DashboardData{
		RequestsOverTime: s.requestsOverTime(filtered, now, periodHours),
		Endpoints:        countByEndpoint(filtered),
		StatusCodes:      countByStatusClass(filtered),
		AvgResponseTimes: averageResponseTimes(filtered),
		RecentErrors:     recentServerErrors(filtered, 10),
		Forecasts:        s.GetForecastStats(),
	}
}

// requestsOverTime 1時間ごとのリクエスト数（古い順）
func (s *MonitoringService) requestsOverTime(entries []LogEntry, now time.Time, periodHours int) []map[string]interface{} {
	buckets := make(map[string]int)
	for _, entry := range entries {
		buckets[entry.Timestamp.In(s.location).Truncate(time.Hour).Format(time.RFC3339)]++
	}

	out := make([]map[string]interface{}, periodHours)
	for i := 0; i < periodHours; i++ {
		target := now.Add(-time.Duration(periodHours-1-i) * time.Hour)
		out[i] = map[string]interface{}{
			"time":     target.Format("15:00"),
			"requests": buckets[target.Truncate(time.Hour).Format(time.RFC3339)],
		}
	}
	return out
}

func countByEndpoint(entries []LogEntry) map[string]int {
	endpoints := make(map[string]int)
	for _, entry := range entries {
		endpoints[entry.Path]++
	}
	return endpoints
}

func countByStatusClass(entries []LogEntry) []map[string]interface{} {
	classes := []string{"2xx Success", "4xx Client Error", "5xx Server Error"}
	counts := make(map[string]int, len(classes))
	for _, entry := range entries {
		switch {
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			counts[classes[0]]++
		case entry.StatusCode >= 400 && entry.StatusCode < 500:
			counts[classes[1]]++
		case entry.StatusCode >= 500:
			counts[classes[2]]++
		}
	}
	out := make([]map[string]interface{}, 0, len(classes))
	for _, name := range classes {
		out = append(out, map[string]interface{}{"name": name, "value": counts[name]})
	}
	return out
}

func averageResponseTimes(entries []LogEntry) []map[string]interface{} {
	sums := make(map[string]time.Duration)
	counts := make(map[string]int)
	for _, entry := range entries {
		sums[entry.Path] += entry.ResponseTime
		counts[entry.Path]++
	}
	paths := make([]string, 0, len(sums))
	for path := range sums {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	out := make([]map[string]interface{}, 0, len(paths))
	for _, path := range paths {
		avg := sums[path].Milliseconds() / int64(counts[path])
		out = append(out, map[string]interface{}{"endpoint": path, "responseTime": avg})
	}
	return out
}

// recentServerErrors 新しい順に最大limit件の5xx
func recentServerErrors(entries []LogEntry, limit int) []LogEntry {
	out := make([]LogEntry, 0)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		if entries[i].StatusCode >= 500 {
			out = append(out, entries[i])
		}
	}
	return out
}
