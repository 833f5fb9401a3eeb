package Adhoc

import (
	"CentroidTrack/logger"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ServiceName    = "centroid-tracker"
	TimeOutSeconds = 5
)

type RegisterRequest struct {
	Id        string `json:"id"`
	Service   string `json:"service"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	HTTPPort  int    `json:"httpPort"`
	Sessions  int    `json:"sessions"`
	TimeStamp int64  `json:"timestamp"`
}

type RegisterResponse struct {
	Id      string `json:"id"`
	Success bool   `json:"success"`
}

type RegServerConfig struct {
	Port int
	Addr string
	// Interval between heartbeats; zero means TimeOutSeconds.
	Interval time.Duration
}

func (reg *RegServerConfig) SetAddress(addr string, port int) {
	reg.Addr = addr
	reg.Port = port
}

// Instance describes this process to the registry server.
type Instance struct {
	IP       string
	Port     int
	HTTPPort int
	// Sessions reports the current number of tracker sessions.
	Sessions func() int
}

// SendAliveMessage posts a heartbeat right away and then every interval until ctx is
// cancelled. Failures are logged and retried on the next tick.
func SendAliveMessage(ctx context.Context, wg *sync.WaitGroup, reg RegServerConfig, inst Instance) {
	defer wg.Done()
	interval := reg.Interval
	if interval <= 0 {
		interval = TimeOutSeconds * time.Second
	}
	url := fmt.Sprintf("http://%s:%d/api/register", reg.Addr, reg.Port)
	client := resty.New().SetTimeout(TimeOutSeconds * time.Second)
	id := uuid.NewString()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	sendAlive(ctx, client, url, id, inst)
	for {
		select {
		case <-ctx.Done():
			logger.Log().Info("SendAliveMessage context cancelled, exiting goroutine.")
			return
		case <-ticker.C:
			sendAlive(ctx, client, url, id, inst)
		}
	}
}

func sendAlive(ctx context.Context, client *resty.Client, url, id string, inst Instance) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log().Error("SendAliveMessage panic recovered", zap.Any("panic", r))
		}
	}()
	sessions := 0
	if inst.Sessions != nil {
		sessions = inst.Sessions()
	}
	var respBody RegisterResponse
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(RegisterRequest{
			Id:        id,
			Service:   ServiceName,
			IP:        inst.IP,
			Port:      inst.Port,
			HTTPPort:  inst.HTTPPort,
			Sessions:  sessions,
			TimeStamp: time.Now().Unix(),
		}).
		SetResult(&respBody).
		Post(url)
	if err != nil {
		if ctx.Err() == nil {
			logger.Log().Error("register request failed", zap.String("url", url), zap.Error(err))
		}
		return
	}
	if resp.IsError() {
		logger.Log().Error("register server returned error", zap.String("status", resp.Status()), zap.String("body", resp.String()))
		return
	}
	if !respBody.Success {
		logger.Log().Warn("register server refused heartbeat", zap.String("id", respBody.Id))
	}
}
