package proto

import (
	"CentroidTrack/engine"
	iface "CentroidTrack/interface"
	"CentroidTrack/logger"
	"CentroidTrack/monitor"
	"CentroidTrack/tracker"
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type JobPackage struct {
	engine     *engine.Engine
	detections []iface.Detection
	Result     chan jobResult
}

type jobResult struct {
	Data []iface.TrackedDetection
	Err  error
}

// Server implements TrackServiceServer. Updates are handed to a fixed pool of workers
// through JobQueue.
type Server struct {
	registry  *engine.Registry
	JobQueue  chan JobPackage
	closeOnce sync.Once
	closed    chan struct{}
	stopOnce  sync.Once
}

func NewServer(registry *engine.Registry, workersNum int) *Server {
	if workersNum <= 0 {
		workersNum = 1
	}
	s := &Server{
		registry: registry,
		JobQueue: make(chan JobPackage, workersNum),
		closed:   make(chan struct{}),
	}
	s.StartWorker(workersNum)
	return s
}

func (s *Server) StartWorker(workerNum int) {
	for i := 0; i < workerNum; i++ {
		go s.runWorker(i)
	}
}

func (s *Server) runWorker(workerID int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	logger.Log().Info("worker created", zap.Int("worker", workerID))
	for job := range s.JobQueue {
		job.Result <- s.runJob(workerID, job)
	}
	logger.Log().Info("worker stopped", zap.Int("worker", workerID))
}

func (s *Server) runJob(workerID int, job JobPackage) (res jobResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log().Error("worker panic recovered", zap.Int("worker", workerID), zap.Any("panic", r))
			res = jobResult{Err: fmt.Errorf("worker %d panic: %v", workerID, r)}
		}
	}()
	out, err := job.engine.Update(job.detections)
	return jobResult{Data: out, Err: err}
}

// Done is closed once a client asks for Shutdown.
func (s *Server) Done() <-chan struct{} {
	return s.closed
}

// Stop closes the job queue. Call it only after the gRPC server has stopped serving.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.JobQueue) })
}

func toStatus(err error) error {
	var ve *iface.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ve), errors.Is(err, tracker.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrDestroyed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (s *Server) InitTracker(ctx context.Context, req *InitTrackerRequest) (*InitTrackerResponse, error) {
	e, err := engine.New(iface.TrackConfig{MatchThreshold: req.MatchThreshold, MatchMode: req.MatchMode}, req.Description)
	if err != nil {
		return nil, toStatus(err)
	}
	id := s.registry.Add(e)
	logger.Log().Info("Initialized new tracker", zap.String("ID", id), zap.Float64("MatchThreshold", req.MatchThreshold), zap.String("MatchMode", e.CheckConfig().MatchMode))
	return &InitTrackerResponse{
		Success: true,
		Id:      id,
		Message: "Successfully initialized tracker",
	}, nil
}

func (s *Server) Update(ctx context.Context, req *UpdateRequest) (*UpdateResponse, error) {
	e, err := s.registry.Get(req.Id)
	if err != nil {
		return nil, toStatus(fmt.Errorf("tracker %s: %w", req.Id, err))
	}
	dets, err := iface.BoxesToDetections(req.Detections)
	if err != nil {
		return nil, toStatus(err)
	}
	job := JobPackage{
		engine:     e,
		detections: dets,
		Result:     make(chan jobResult, 1),
	}
	select {
	case s.JobQueue <- job:
	case <-ctx.Done():
		return nil, toStatus(ctx.Err())
	}
	var res jobResult
	select {
	case res = <-job.Result:
	case <-ctx.Done():
		return nil, toStatus(ctx.Err())
	}
	if res.Err != nil {
		logger.Log().Warn("tracker update failed", zap.String("ID", req.Id), zap.Error(res.Err))
		return nil, toStatus(res.Err)
	}
	return &UpdateResponse{Success: true, Results: res.Data}, nil
}

func (s *Server) ResetTracker(ctx context.Context, req *TrackerRequest) (*StatusResponse, error) {
	e, err := s.registry.Get(req.Id)
	if err != nil {
		return nil, toStatus(fmt.Errorf("tracker %s: %w", req.Id, err))
	}
	if err := e.Reset(); err != nil {
		return nil, toStatus(err)
	}
	return &StatusResponse{Success: true, Message: "Tracker reset"}, nil
}

func trackerInfo(id string, e *engine.Engine) *TrackerInfo {
	st := e.Status()
	return &TrackerInfo{
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

func (s *Server) CheckTracker(ctx context.Context, req *TrackerRequest) (*CheckTrackerResponse, error) {
	e, err := s.registry.Get(req.Id)
	if err != nil {
		return nil, toStatus(fmt.Errorf("tracker %s: %w", req.Id, err))
	}
	return &CheckTrackerResponse{
		Success: true,
		Tracker: trackerInfo(req.Id, e),
		Message: "Tracker status retrieved successfully",
	}, nil
}

func (s *Server) CheckAllTracker(ctx context.Context, req *Empty) (*CheckAllTrackerResponse, error) {
	all := s.registry.All()
	infos := make([]*TrackerInfo, 0, len(all))
	for id, e := range all {
		infos = append(infos, trackerInfo(id, e))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Id < infos[j].Id })
	return &CheckAllTrackerResponse{
		Success:  true,
		Trackers: infos,
		Message:  "All trackers status retrieved successfully",
	}, nil
}

func (s *Server) DestroyTracker(ctx context.Context, req *TrackerRequest) (*StatusResponse, error) {
	if err := s.registry.Remove(req.Id); err != nil {
		logger.Log().Error("tracker not found with ID", zap.String("ID", req.Id))
		return nil, toStatus(fmt.Errorf("tracker %s: %w", req.Id, err))
	}
	return &StatusResponse{Success: true, Message: "Tracker destroyed successfully"}, nil
}

func (s *Server) Shutdown(ctx context.Context, req *Empty) (*Empty, error) {
	s.closeOnce.Do(func() { close(s.closed) })
	logger.Log().Warn("Shutdown requested")
	return &Empty{}, nil
}

func countRequests(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	monitor.RequestsTotal.WithLabelValues("grpc").Inc()
	resp, err := handler(ctx, req)
	if err != nil {
		logger.Log().Debug("rpc failed", zap.String("method", info.FullMethod), zap.Error(err))
	}
	return resp, err
}

// NewGRPCServer builds a grpc.Server with the track service registered.
func NewGRPCServer(s *Server) *grpc.Server {
	g := grpc.NewServer(grpc.UnaryInterceptor(countRequests))
	RegisterTrackServiceServer(g, s)
	return g
}

func StartGRPCServer(s *Server, port int) (*grpc.Server, error) {
	addr := fmt.Sprintf(":%d", port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	g := NewGRPCServer(s)
	go func() {
		logger.Log().Info("gRPC server listening", zap.String("addr", addr))
		if err := g.Serve(lis); err != nil {
			logger.Log().Error("gRPC server stopped", zap.Error(err))
		}
	}()
	return g, nil
}
