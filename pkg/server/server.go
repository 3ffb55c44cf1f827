// Package server runs the TCP accept loop and owns the lifecycle of every
// client connection: connection limits, graceful shutdown, and forced
// closure when draining takes too long.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/zkauth/internal/logger"
	"github.com/marmos91/zkauth/pkg/protocol"
)

// Default listener endpoint.
const (
	DefaultBindAddress = "127.0.0.1"
	DefaultPort        = 65432
)

// Config holds the accept loop configuration.
type Config struct {
	// BindAddress is the IP address to bind to. Empty or "0.0.0.0" binds
	// all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. Port 0 asks the kernel for a free
	// one; Addr reports the bound address.
	Port int

	// MaxConnections limits concurrent client connections. 0 means
	// unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Serve waits for active connections
	// to drain before force-closing them.
	ShutdownTimeout time.Duration

	// StatsLogInterval is how often the server logs connection counts.
	// 0 disables periodic logging.
	StatsLogInterval time.Duration
}

// Server accepts client connections and hands each one to the protocol
// handler on its own goroutine.
//
// All exported methods are safe for concurrent use. Shutdown is idempotent:
// cancelling the Serve context any number of times triggers it once.
type Server struct {
	config  Config
	handler *protocol.Handler

	listener   net.Listener
	listenerMu sync.RWMutex

	// ListenerReady is closed once the listener is accepting. Tests use it
	// to synchronize with startup.
	ListenerReady chan struct{}

	// shutdown signals the accept loop that draining has begun.
	shutdown     chan struct{}
	shutdownOnce sync.Once

	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// conns maps remote address to net.Conn for deadline interruption and
	// forced closure during shutdown.
	conns sync.Map

	// connSemaphore bounds concurrent connections; nil when unlimited.
	connSemaphore chan struct{}

	// connCtx is cancelled at shutdown so connection workers drop out of
	// their select loops.
	connCtx     context.Context
	cancelConns context.CancelFunc
}

// New returns a stopped server. Call Serve to start accepting.
func New(config Config, handler *protocol.Handler) *Server {
	if config.BindAddress == "" {
		config.BindAddress = DefaultBindAddress
	}

	var semaphore chan struct{}
	if config.MaxConnections > 0 {
		semaphore = make(chan struct{}, config.MaxConnections)
	}

	connCtx, cancelConns := context.WithCancel(context.Background())
	return &Server{
		config:        config,
		handler:       handler,
		ListenerReady: make(chan struct{}),
		shutdown:      make(chan struct{}),
		connSemaphore: semaphore,
		connCtx:       connCtx,
		cancelConns:   cancelConns,
	}
}

// Addr returns the bound listener address, or nil before ListenerReady.
func (s *Server) Addr() net.Addr {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnCount returns the number of currently active connections.
func (s *Server) ConnCount() int32 {
	return s.connCount.Load()
}

// Serve runs the accept loop until ctx is cancelled, then drains active
// connections. It returns nil on a clean drain and an error when the
// drain timed out and connections had to be force-closed.
func (s *Server) Serve(ctx context.Context) error {
	listenAddr := fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.ListenerReady)

	logger.Info("server listening",
		"address", listener.Addr().String(),
		logger.KeyGroupID, s.handler.Group().ID)

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	if s.config.StatsLogInterval > 0 {
		go s.logStats(ctx)
	}

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.drain()
			}
		}

		nc, err := listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				return s.drain()
			default:
				logger.Debug("accept failed", logger.Err(err))
				continue
			}
		}

		if tcp, ok := nc.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)
		addr := nc.RemoteAddr().String()
		s.conns.Store(addr, nc)

		logger.Debug("connection accepted",
			"address", addr, logger.ActiveConns(int64(s.connCount.Load())))

		go func(addr string, nc net.Conn) {
			defer func() {
				s.conns.Delete(addr)
				s.connCount.Add(-1)
				s.activeConns.Done()
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
			}()
			s.handler.Handle(s.connCtx, nc)
		}(addr, nc)
	}
}

// initiateShutdown stops accepting, interrupts blocked reads and cancels
// all connection workers. Safe to call multiple times.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Info("server shutdown initiated")
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("failed to close listener", logger.Err(err))
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()
		s.cancelConns()
	})
}

// interruptBlockingReads sets a short deadline on every active connection
// so read pumps blocked on idle clients wake up during shutdown.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	s.conns.Range(func(key, value any) bool {
		if nc, ok := value.(net.Conn); ok {
			if err := nc.SetReadDeadline(deadline); err != nil {
				logger.Debug("failed to set shutdown deadline",
					"address", key, logger.Err(err))
			}
		}
		return true
	})
}

// drain waits for active connections to finish or forces them closed at
// the shutdown timeout.
func (s *Server) drain() error {
	active := s.connCount.Load()
	logger.Info("waiting for active connections",
		logger.ActiveConns(int64(active)), "timeout", s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case <-done:
		logger.Info("server shutdown complete")
		return nil

	case <-time.After(timeout):
		remaining := s.connCount.Load()
		logger.Warn("shutdown timeout exceeded, forcing closure",
			logger.ActiveConns(int64(remaining)))
		s.forceCloseConnections()
		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

func (s *Server) forceCloseConnections() {
	s.conns.Range(func(key, value any) bool {
		if nc, ok := value.(net.Conn); ok {
			if err := nc.Close(); err != nil {
				logger.Debug("failed to force-close connection",
					"address", key, logger.Err(err))
			}
		}
		return true
	})
}

// logStats periodically logs connection counts until ctx is cancelled.
func (s *Server) logStats(ctx context.Context) {
	ticker := time.NewTicker(s.config.StatsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("server stats",
				logger.ActiveConns(int64(s.connCount.Load())))
		}
	}
}
