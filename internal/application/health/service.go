package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"insurledger-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// PolicyCounter reports the policy book for the ledger section.
type PolicyCounter interface {
	CountActive(ctx context.Context) (int64, error)
	CountExpired(ctx context.Context, asOf time.Time) (int64, error)
}

// Deps is everything CollectHealth can look at. All fields are optional.
type Deps struct {
	Rdb      *redis.Client
	DB       DBPinger
	Policies PolicyCounter
	Now      func() time.Time
}

// CollectResult is the shape served by /health/json.
type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
	Ledger       *LedgerInfo          `json:"ledger,omitempty"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string      `json:"status"`
	PingMs interface{} `json:"pingMs"`
}

type LedgerInfo struct {
	ActivePolicies  int64 `json:"activePolicies"`
	ExpiredPolicies int64 `json:"expiredPolicies"`
}

// CollectHealth pings the database and Redis and reads the request counters
// the HealthMarker middleware keeps in Redis.
func CollectHealth(ctx context.Context, d Deps) CollectResult {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	result := CollectResult{
		Dependencies: make(map[string]DepStatus),
	}

	dbStatus, dbPing := ping(d.DB != nil, func() error { return d.DB.Ping() })
	result.Dependencies["database"] = DepStatus{Status: dbStatus, PingMs: dbPing}

	redisStatus, redisPing := ping(d.Rdb != nil, func() error { return d.Rdb.Ping(ctx).Err() })
	result.Dependencies["redis"] = DepStatus{Status: redisStatus, PingMs: redisPing}

	startMs := now().UnixMilli()
	result.Traffic = TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	if redisStatus == "connected" {
		startMs = readTraffic(ctx, d.Rdb, &result.Traffic, startMs)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if d.Policies != nil && dbStatus == "connected" {
		active, errA := d.Policies.CountActive(ctx)
		expired, errE := d.Policies.CountExpired(ctx, now())
		if errA == nil && errE == nil {
			result.Ledger = &LedgerInfo{ActivePolicies: active, ExpiredPolicies: expired}
		}
	}

	if dbStatus == "connected" && redisStatus == "connected" {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

func ping(present bool, fn func() error) (string, *int64) {
	if !present {
		return "disconnected", nil
	}
	start := time.Now()
	if err := fn(); err != nil {
		return "error", nil
	}
	ms := time.Since(start).Milliseconds()
	return "connected", &ms
}

func readTraffic(ctx context.Context, rdb *redis.Client, stats *TrafficInfo, startMs int64) int64 {
	totalReq, _ := rdb.Get(ctx, middleware.KeyReqTotal).Result()
	totalErr, _ := rdb.Get(ctx, middleware.KeyReqErrors).Result()
	totalTime, _ := rdb.Get(ctx, middleware.KeyResTime).Result()
	resCount, _ := rdb.Get(ctx, middleware.KeyResCount).Result()
	startStr, _ := rdb.Get(ctx, middleware.KeyStartTime).Result()
	lastReq, _ := rdb.Get(ctx, middleware.KeyLastReq).Result()

	if startStr != "" {
		if t, err := strconv.ParseInt(startStr, 10, 64); err == nil {
			startMs = t
		}
	} else {
		rdb.Set(ctx, middleware.KeyStartTime, startMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(totalReq)
	stats.FailedCount, _ = strconv.Atoi(totalErr)
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(totalTime, 64)
	countSum, _ := strconv.Atoi(resCount)
	if countSum > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
	}
	if lastReq != "" {
		var last map[string]interface{}
		_ = json.Unmarshal([]byte(lastReq), &last)
		stats.LastRequest = last
	}
	return startMs
}
