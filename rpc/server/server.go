package server

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

// MetricsPath is the path of the prometheus metrics on the metrics endpoint
const MetricsPath = "/metrics"

// NewRPCServer creates a new RPC server
// It takes a config, transport and adapter as parameters
//
// Usage:
//
//	adapter := server.NewMethodServerAdapter()
//	adapter.Register("ping", func([]common.Value) (common.Value, error) {
//		return common.String("pong"), nil
//	})
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		adapter,
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	adapter IRPCServerAdapter,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:    config,
		transport: transport,
		adapter:   adapter,
	}
}

// RPCServer connects a transport to an adapter
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	adapter   IRPCServerAdapter

	mu            sync.Mutex
	metricsServer *http.Server
	closed        bool
}

// Serve starts the RPC server and blocks until it is closed
// This function will also initialize the loggers and start the metrics endpoint
func (s *RPCServer) Serve() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", s.config.String())

	s.transport.RegisterHandler(s.adapter.Handle)

	if s.config.MetricsEndpoint != "" {
		if err := s.serveMetrics(); err != nil {
			return err
		}
	}

	return s.transport.Listen(s.config)
}

// Close stops the transport and the metrics endpoint
func (s *RPCServer) Close() error {
	s.mu.Lock()
	s.closed = true
	metricsServer := s.metricsServer
	s.mu.Unlock()

	var errs []error
	if metricsServer != nil {
		errs = append(errs, metricsServer.Close())
	}
	errs = append(errs, s.transport.Close())
	return errors.Join(errs...)
}

// serveMetrics starts the http server for the metrics and the profiler.
// The listener is created synchronously so address errors are returned.
func (s *RPCServer) serveMetrics() error {
	listener, err := net.Listen("tcp", s.config.MetricsEndpoint)
	if err != nil {
		return fmt.Errorf("failed to listen on metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, s.transport.Metrics().Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return listener.Close()
	}
	s.metricsServer = srv
	s.mu.Unlock()

	Logger.Infof("Serving metrics on http://%s%s", listener.Addr(), MetricsPath)
	go func() {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
	return nil
}
