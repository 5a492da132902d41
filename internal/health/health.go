package health

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db    Pinger
	redis func(ctx context.Context) error
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
	Redis    ComponentHealth `json:"redis"`
	System   *SystemHealth   `json:"system,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
}

// SystemHealth is host resource usage, reported by the detailed probe only
type SystemHealth struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    string  `json:"memory_used"`
	MemoryTotal   string  `json:"memory_total"`
	DiskPercent   float64 `json:"disk_percent"`
}

// NewHealthChecker builds a checker. redis may be nil when caching is off.
func NewHealthChecker(db Pinger, redis func(ctx context.Context) error) *HealthChecker {
	return &HealthChecker{db: db, redis: redis}
}

// CheckBasic pings the database and Redis. Only the database decides the
// overall status; the service runs without its cache.
func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := check(h.db.Ping)

	redisHealth := ComponentHealth{Status: "disabled"}
	if h.redis != nil {
		redisHealth = check(h.redis)
	}

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	} else if redisHealth.Status == "unhealthy" {
		status = "degraded"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Redis:    redisHealth,
	}
}

// CheckDetailed adds host CPU, memory and disk usage to CheckBasic
func (h *HealthChecker) CheckDetailed() HealthStatus {
	status := h.CheckBasic()
	status.System = systemStats()
	return status
}

func check(ping func(ctx context.Context) error) ComponentHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

func systemStats() *SystemHealth {
	s := &SystemHealth{}

	if cpuPercents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercents) > 0 {
		s.CPUPercent = cpuPercents[0]
	}
	if memStats, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = memStats.UsedPercent
		s.MemoryUsed = formatBytes(memStats.Used)
		s.MemoryTotal = formatBytes(memStats.Total)
	}
	if diskStats, err := disk.Usage("/"); err == nil {
		s.DiskPercent = diskStats.UsedPercent
	}
	return s
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
