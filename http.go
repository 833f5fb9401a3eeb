package main

import (
	"CentroidTrack/config"
	"CentroidTrack/engine"
	iface "CentroidTrack/interface"
	"CentroidTrack/logger"
	"CentroidTrack/monitor"
	"CentroidTrack/tracker"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type createTrackerRequest struct {
	MatchThreshold *float64 `json:"matchThreshold"`
	MatchMode      string   `json:"matchMode"`
	Description    string   `json:"description"`
}

type trackerView struct {
	Id             string               `json:"id"`
	Description    string               `json:"description"`
	State          string               `json:"state"`
	MatchThreshold float64              `json:"matchThreshold"`
	MatchMode      string               `json:"matchMode"`
	Tracks         map[int]iface.Center `json:"tracks"`
	NextId         int                  `json:"nextId"`
	Updates        uint64               `json:"updates"`
}

type wsSession struct {
	id         string
	conn       *websocket.Conn
	mu         sync.Mutex
	lastActive time.Time
	closeOnce  sync.Once
	done       chan struct{}
}

type apiServer struct {
	registry    *engine.Registry
	defaults    iface.TrackConfig
	idleTimeout time.Duration
	upgrader    websocket.Upgrader

	sessionMu sync.Mutex
	sessions  map[*wsSession]struct{}
}

func newAPIServer(registry *engine.Registry, cfg config.Config) *apiServer {
	return &apiServer{
		registry: registry,
		defaults: iface.TrackConfig{
			MatchThreshold: cfg.Tracker.MatchThreshold,
			MatchMode:      cfg.Tracker.MatchMode,
		},
		idleTimeout: time.Duration(cfg.IdleTimeoutMs) * time.Millisecond,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessions: map[*wsSession]struct{}{},
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		monitor.RequestsTotal.WithLabelValues("http").Inc()
		logger.Log().Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func newRouter(api *apiServer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.POST("/api/trackers", api.createTracker)
	r.GET("/api/trackers", api.listTrackers)
	r.GET("/api/trackers/:id", api.checkTracker)
	r.POST("/api/trackers/:id/update", api.updateTracker)
	r.POST("/api/trackers/:id/reset", api.resetTracker)
	r.DELETE("/api/trackers/:id", api.destroyTracker)
	r.GET("/ws/:id", api.serveWS)
	return r
}

func statusFor(err error) int {
	var ve *iface.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, tracker.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrDestroyed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func view(id string, e *engine.Engine) trackerView {
	st := e.Status()
	return trackerView{
		Id:             id,
		Description:    st.Description,
		State:          engine.StateName(st.State),
		MatchThreshold: st.Config.MatchThreshold,
		MatchMode:      st.Config.MatchMode,
		Tracks:         st.Tracks,
		NextId:         st.NextID,
		Updates:        st.Updates,
	}
}

func (a *apiServer) createTracker(c *gin.Context) {
	var req createTrackerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	cfg := a.defaults
	if req.MatchThreshold != nil {
		cfg.MatchThreshold = *req.MatchThreshold
	}
	if req.MatchMode != "" {
		cfg.MatchMode = req.MatchMode
	}
	e, err := engine.New(cfg, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	id := a.registry.Add(e)
	c.JSON(http.StatusOK, gin.H{"data": id})
}

func (a *apiServer) listTrackers(c *gin.Context) {
	all := a.registry.All()
	views := make([]trackerView, 0, len(all))
	for id, e := range all {
		views = append(views, view(id, e))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Id < views[j].Id })
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (a *apiServer) checkTracker(c *gin.Context) {
	id := c.Param("id")
	e, err := a.registry.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view(id, e)})
}

func (a *apiServer) updateTracker(c *gin.Context) {
	e, err := a.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var boxes [][]float64
	if err := c.ShouldBindJSON(&boxes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dets, err := iface.BoxesToDetections(boxes)
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := e.Update(dets)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (a *apiServer) resetTracker(c *gin.Context) {
	e, err := a.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := e.Reset(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "Tracker reset"})
}

func (a *apiServer) destroyTracker(c *gin.Context) {
	if err := a.registry.Remove(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "Tracker destroyed"})
}

// serveWS streams frames over a websocket: each text message is a JSON list of
// [x, y, w, h] boxes and is answered with the tracked [x, y, w, h, id] list.
func (a *apiServer) serveWS(c *gin.Context) {
	id := c.Param("id")
	e, err := a.registry.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered the client
		return
	}
	conn.SetReadLimit(4 * 1024 * 1024)
	s := &wsSession{id: id, conn: conn, lastActive: time.Now(), done: make(chan struct{})}
	a.sessionMu.Lock()
	a.sessions[s] = struct{}{}
	a.sessionMu.Unlock()
	defer a.releaseSession(s, "session closed")

	a.startIdleMonitor(s)
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Log().Debug("websocket closed", zap.String("ID", id), zap.Error(err))
			return
		}
		s.touch()
		if mt != websocket.TextMessage {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unsupported message type"}`))
			continue
		}
		var boxes [][]float64
		var reply []byte
		if err := json.Unmarshal(msg, &boxes); err != nil {
			reply, _ = json.Marshal(gin.H{"error": err.Error()})
		} else if dets, err := iface.BoxesToDetections(boxes); err != nil {
			reply, _ = json.Marshal(gin.H{"error": err.Error()})
		} else if out, err := e.Update(dets); err != nil {
			reply, _ = json.Marshal(gin.H{"error": err.Error()})
		} else {
			reply, _ = json.Marshal(out)
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

func (s *wsSession) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *wsSession) idleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActive)
}

func (a *apiServer) releaseSession(s *wsSession, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = s.conn.Close()
		a.sessionMu.Lock()
		delete(a.sessions, s)
		a.sessionMu.Unlock()
	})
}

func (a *apiServer) startIdleMonitor(s *wsSession) {
	go func() {
		ticker := time.NewTicker(a.idleTimeout / 4)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if s.idleFor() > a.idleTimeout {
					logger.Log().Info("websocket idle, releasing", zap.String("ID", s.id))
					a.releaseSession(s, "idle timeout")
					return
				}
			}
		}
	}()
}

// closeSessions drops every live websocket; used on shutdown.
func (a *apiServer) closeSessions() {
	a.sessionMu.Lock()
	live := make([]*wsSession, 0, len(a.sessions))
	for s := range a.sessions {
		live = append(live, s)
	}
	a.sessionMu.Unlock()
	for _, s := range live {
		a.releaseSession(s, "server shutting down")
	}
}
