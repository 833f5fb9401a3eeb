package monitor

import (
	"CentroidTrack/logger"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

var (
	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})

	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "requests_total",
		Help: "Total number of API requests processed, by transport",
	}, []string{"transport"})
	UpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_updates_total",
		Help: "Total number of tracker updates (frames) processed",
	})
	DetectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_detections_total",
		Help: "Total number of detections annotated with a track id",
	})
	TracksCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_tracks_created_total",
		Help: "Total number of track ids minted",
	})
	TracksPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_tracks_pruned_total",
		Help: "Total number of tracks dropped because their object was not detected",
	})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_sessions_active",
		Help: "Number of live tracker sessions",
	})
)

// NewRegistry returns a registry holding every metric of this package.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(memUsage, cpuUsage, RequestsTotal, UpdatesTotal, DetectionsTotal,
		TracksCreated, TracksPruned, SessionsActive)
	return registry
}

// ObserveUpdate records one tracker update.
func ObserveUpdate(detections int) {
	UpdatesTotal.Inc()
	DetectionsTotal.Add(float64(detections))
}

func checkProcessInfo(p *process.Process) {
	memInfo, err := p.MemoryInfo()
	if err == nil {
		memUsage.Set(float64(memInfo.RSS / 1024 / 1024))
	}
	cpuPercent, err := p.CPUPercent()
	if err == nil {
		cpuUsage.Set(math.Round(cpuPercent*100) / 100)
	}
}

// StartMon serves /metrics on port and samples process usage until ctx is done.
func StartMon(ctx context.Context, port int) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("inspect own process: %w", err)
	}
	registry := NewRegistry()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log().Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Log().Info("metrics server listening", zap.Int("port", port))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
checkPcs:
	for {
		select {
		case <-ctx.Done():
			break checkPcs
		case <-ticker.C:
			checkProcessInfo(p)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
