package engine

import (
	"CentroidTrack/logger"
	"CentroidTrack/monitor"
	"errors"
	"maps"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("tracker not found")

// Registry maps session ids to engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: map[string]*Engine{}}
}

func (r *Registry) Add(e *Engine) string {
	id := uuid.New().String()
	r.mu.Lock()
	r.engines[id] = e
	n := len(r.engines)
	r.mu.Unlock()
	monitor.SessionsActive.Inc()
	logger.Log().Info("tracker added", zap.String("ID", id), zap.String("description", e.Description), zap.Int("sessions", n))
	return id
}

func (r *Registry) Get(id string) (*Engine, error) {
	r.mu.RLock()
	e, ok := r.engines[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Remove destroys and forgets the engine.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.engines[id]
	if ok {
		delete(r.engines, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.Destroy()
	monitor.SessionsActive.Dec()
	logger.Log().Info("tracker destroyed", zap.String("ID", id))
	return nil
}

func (r *Registry) All() map[string]*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.engines)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

// Close destroys every engine.
func (r *Registry) Close() {
	for id := range r.All() {
		_ = r.Remove(id)
	}
}
