package main

import (
	adhoc "CentroidTrack/Adhoc"
	"CentroidTrack/config"
	"CentroidTrack/engine"
	backend "CentroidTrack/gRPC"
	"CentroidTrack/logger"
	"CentroidTrack/monitor"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const defaultConfigPath = "config.yaml"

func GetOutboundIP() (string, error) {
	// UDP dial sends nothing; it only resolves the local address of the default route.
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP.String(), nil
}

func configPath() string {
	if p := os.Getenv("CENTROIDTRACK_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogMode); err != nil {
		fmt.Println("Failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ip, err := GetOutboundIP()
	if err != nil {
		logger.Log().Warn("Failed to get outbound IP, using loopback", zap.Error(err))
		ip = "127.0.0.1"
	}
	fmt.Println(strings.Repeat("#", 64))
	fmt.Println(" gRPC    Port:", cfg.RPCPort)
	fmt.Println(" HTTP    Port:", cfg.HTTPPort)
	fmt.Println(" Metrics Port:", cfg.MetricsPort)
	fmt.Println(" Workers Num :", cfg.WorkersNum)
	fmt.Println(" Match threshold:", cfg.Tracker.MatchThreshold, "mode:", cfg.Tracker.MatchMode)
	fmt.Println(strings.Repeat("#", 64))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	var wg sync.WaitGroup

	registry := engine.NewRegistry()
	rpc := backend.NewServer(registry, cfg.WorkersNum)
	grpcServer, err := backend.StartGRPCServer(rpc, cfg.RPCPort)
	if err != nil {
		logger.Log().Fatal("Failed to start gRPC server", zap.Error(err))
	}

	api := newAPIServer(registry, cfg)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: newRouter(api),
	}
	go func() {
		logger.Log().Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log().Error("HTTP server stopped", zap.Error(err))
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := monitor.StartMon(ctx, cfg.MetricsPort); err != nil {
			logger.Log().Error("monitor stopped", zap.Error(err))
		}
	}()

	if cfg.UseRegServer {
		reg := adhoc.RegServerConfig{}
		reg.SetAddress(cfg.RegServerHost, cfg.RegServerPort)
		wg.Add(1)
		go adhoc.SendAliveMessage(ctx, &wg, reg, adhoc.Instance{
			IP:       ip,
			Port:     cfg.RPCPort,
			HTTPPort: cfg.HTTPPort,
			Sessions: registry.Len,
		})
	} else {
		logger.Log().Info("UseRegServer is set to false, skipping registration")
	}

	select {
	case <-ctx.Done():
	case <-rpc.Done():
	}
	cancel()
	logger.Log().Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log().Warn("HTTP shutdown", zap.Error(err))
	}
	api.closeSessions()
	grpcServer.GracefulStop()
	rpc.Stop()
	registry.Close()
	wg.Wait()
	logger.Log().Info("Safely exited")
}
