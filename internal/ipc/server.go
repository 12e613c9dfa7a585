package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"clipshift/internal/daemon"
	"clipshift/internal/logging"
)

// Server accepts JSON-RPC connections on a unix socket and dispatches them to
// the daemon.
type Server struct {
	socketPath string
	logger     *slog.Logger
	rpcServer  *rpc.Server

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer builds a socket server for the daemon. The shutdown callback is
// invoked asynchronously when a client requests daemon termination.
func NewServer(socketPath string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	rpcServer := rpc.NewServer()
	// Registration only fails for receivers without exported methods.
	if err := rpcServer.RegisterName(ServiceName, &service{daemon: d, shutdown: shutdown}); err != nil {
		panic(fmt.Sprintf("register ipc service: %v", err))
	}
	return &Server{
		socketPath: socketPath,
		logger:     logging.NewComponentLogger(logger, "ipc"),
		rpcServer:  rpcServer,
	}
}

// Start begins listening. A stale socket file from a previous run is removed
// first; the instance lock already guarantees no live daemon owns it.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop(ctx, listener)

	s.logger.Info("ipc server listening", logging.String("socket", s.socketPath))
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", logging.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
		}()
	}
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener == nil {
		return nil
	}
	err := listener.Close()
	s.wg.Wait()
	if removeErr := os.Remove(s.socketPath); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}
	return err
}

// service is the RPC receiver. Method signatures follow net/rpc conventions.
type service struct {
	daemon   *daemon.Daemon
	shutdown func()
}

func (s *service) Status(_ Empty, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(context.Background())
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	items, err := s.daemon.ListItems(context.Background(), req.Statuses...)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) QueueGet(req QueueGetRequest, resp *QueueGetResponse) error {
	item, err := s.daemon.GetItem(context.Background(), req.ID)
	if err != nil {
		return err
	}
	resp.Item = item
	return nil
}

func (s *service) QueueAdd(req QueueAddRequest, resp *QueueAddResponse) error {
	item, err := s.daemon.Enqueue(context.Background(), daemon.EnqueueParams{
		SourceURL:    req.SourceURL,
		Metadata:     req.Metadata,
		Transform:    req.Transform,
		Transport:    req.Transport,
		Destinations: req.Destinations,
		Profile:      req.Profile,
		Prefill:      req.Prefill,
	})
	if err != nil {
		return err
	}
	resp.Item = item
	return nil
}

func (s *service) QueueImport(req QueueImportRequest, resp *QueueImportResponse) error {
	result, err := s.daemon.Import(context.Background(), req.URLs, daemon.EnqueueParams{
		Metadata:     req.Metadata,
		Transform:    req.Transform,
		Transport:    req.Transport,
		Destinations: req.Destinations,
		Profile:      req.Profile,
	})
	if err != nil {
		return err
	}
	resp.Enqueued = result.Enqueued
	resp.Skipped = result.Skipped
	resp.Errors = result.Errors
	return nil
}

func (s *service) QueueMove(req QueueMoveRequest, resp *QueueMoveResponse) error {
	moved, err := s.daemon.MoveItem(context.Background(), req.ID, req.Direction)
	if err != nil {
		return err
	}
	resp.Moved = moved
	return nil
}

func (s *service) QueueRemove(req QueueRemoveRequest, resp *QueueRemoveResponse) error {
	removed, err := s.daemon.RemoveItem(context.Background(), req.ID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) QueueClear(req QueueClearRequest, resp *QueueClearResponse) error {
	removed, err := s.daemon.ClearQueue(context.Background(), req.CompletedOnly)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueRetryResponse) error {
	retried, err := s.daemon.RetryFailed(context.Background(), req.IDs...)
	if err != nil {
		return err
	}
	resp.Retried = retried
	return nil
}

func (s *service) QueueReset(_ Empty, resp *QueueResetResponse) error {
	reset, err := s.daemon.ResetStuck(context.Background())
	if err != nil {
		return err
	}
	resp.Reset = reset
	return nil
}

func (s *service) QueueStats(_ Empty, resp *QueueStatsResponse) error {
	stats, err := s.daemon.QueueStats(context.Background())
	if err != nil {
		return err
	}
	resp.Stats = stats
	return nil
}

func (s *service) Pause(_ Empty, _ *Empty) error {
	s.daemon.Pause()
	return nil
}

func (s *service) Resume(_ Empty, _ *Empty) error {
	s.daemon.Resume()
	return nil
}

func (s *service) SetAutoPause(req AutoPauseRequest, _ *Empty) error {
	s.daemon.SetAutoPause(req.Enabled, req.After)
	return nil
}

func (s *service) WatchStart(_ Empty, _ *Empty) error {
	return s.daemon.WatchStart(context.Background())
}

func (s *service) WatchStop(_ Empty, _ *Empty) error {
	s.daemon.WatchStop()
	return nil
}

func (s *service) WatchStatus(_ Empty, resp *WatchStatusResponse) error {
	resp.Status = s.daemon.WatchStatus()
	return nil
}

func (s *service) WatchPoll(_ Empty, resp *WatchPollResponse) error {
	enqueued, err := s.daemon.WatchPoll(context.Background())
	if err != nil {
		return err
	}
	resp.Enqueued = enqueued
	return nil
}

func (s *service) ProfileList(_ Empty, resp *ProfileListResponse) error {
	resp.Profiles = s.daemon.Profiles()
	return nil
}

func (s *service) ProfileGet(req ProfileGetRequest, resp *ProfileGetResponse) error {
	profile, err := s.daemon.ProfileGet(req.Name)
	if err != nil {
		return err
	}
	resp.Profile = profile
	return nil
}

func (s *service) ProfileSave(req ProfileSaveRequest, _ *Empty) error {
	return s.daemon.ProfileSave(req.Profile)
}

func (s *service) ProfileDelete(req ProfileDeleteRequest, _ *Empty) error {
	return s.daemon.ProfileDelete(req.Name)
}

func (s *service) ProfileDuplicate(req ProfileDuplicateRequest, _ *Empty) error {
	return s.daemon.ProfileDuplicate(req.Source, req.Target)
}

func (s *service) ProfileExport(req ProfileExportRequest, _ *Empty) error {
	return s.daemon.ProfileExport(req.Name, req.Path)
}

func (s *service) ProfileImport(req ProfileImportRequest, resp *ProfileGetResponse) error {
	profile, err := s.daemon.ProfileImport(req.Path)
	if err != nil {
		return err
	}
	resp.Profile = profile
	return nil
}

func (s *service) Prefill(req PrefillRequest, resp *PrefillResponse) error {
	info, err := s.daemon.Prefill(context.Background(), req.SourceURL)
	if err != nil {
		return err
	}
	resp.Title = info.Title
	resp.Description = info.Description
	resp.Tags = info.Tags
	resp.DurationSeconds = info.DurationSeconds
	return nil
}

func (s *service) TestNotification(_ Empty, _ *Empty) error {
	return s.daemon.TestNotification(context.Background())
}

func (s *service) PurgeTemp(_ Empty, resp *PurgeTempResponse) error {
	removed, err := s.daemon.PurgeTemp()
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) Shutdown(_ Empty, _ *Empty) error {
	if s.shutdown != nil {
		go s.shutdown()
	}
	return nil
}
