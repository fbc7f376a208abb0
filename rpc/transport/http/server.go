package http

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/metrics"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

const (
	// RPCPath is the path all frames are posted to
	RPCPath = "/rpc"
	// ContentType is the content type of request and response bodies
	ContentType = "application/msgpack"
)

// NewHttpServerTransport creates a new http server transport. Every POST to
// /rpc carries one or more frames, the replies are returned in the response body.
func NewHttpServerTransport() transport.IRPCServerTransport {
	return &httpServerTransport{metrics: metrics.New()}
}

type httpServerTransport struct {
	handler transport.ServerHandleFunc
	config  common.ServerConfig
	metrics *metrics.Metrics

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) Metrics() *metrics.Metrics {
	return t.metrics
}

func (t *httpServerTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}
	t.config = config

	// Create a new HTTP server
	mux := http.NewServeMux()

	// Register handler
	if t.config.LogLevel == "debug" {
		mux.HandleFunc("POST "+RPCPath, loggerMiddleware(t.handleRequest))
	} else {
		mux.HandleFunc("POST "+RPCPath, t.handleRequest)
	}

	listener, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	server := &http.Server{Handler: mux}
	if config.TimeoutSecond > 0 {
		timeout := time.Duration(config.TimeoutSecond) * time.Second
		server.ReadTimeout = timeout
		server.WriteTimeout = timeout
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	t.server = server
	t.mu.Unlock()

	Logger.Infof("Starting HTTP server on %s", listener.Addr())

	if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *httpServerTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.server == nil {
		return nil
	}
	return t.server.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleRequest decodes all frames of the body, handles them in order and
// writes the concatenated replies. Invalid frames are skipped, a fatal
// decode error rejects the whole request.
func (t *httpServerTransport) handleRequest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	t.metrics.ConnOpened()
	defer t.metrics.ConnClosed()

	decoder := codec.NewStreamDecoder(r.Body, t.config.Codec)
	if t.config.Transport.ReadChunkSize > 0 {
		decoder.SetChunkSize(t.config.Transport.ReadChunkSize)
	}
	decoder.SetObserver(t.metrics.ObserveResult)
	encoder := codec.NewEncoder(t.config.Codec)

	var out []byte
	for {
		msg, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.metrics.ObserveFatal()
			Logger.Warningf("Rejecting request from %s: %v", r.RemoteAddr, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		reply := t.handler(msg)
		t.metrics.ObserveHandle(start)
		if reply == nil {
			continue
		}

		if out, err = encoder.Append(out, reply); err != nil {
			Logger.Errorf("Failed to encode reply: %v", err)
			continue
		}
		t.metrics.ObserveReply()
	}

	w.Header().Set("Content-Type", ContentType)
	if _, err := w.Write(out); err != nil {
		Logger.Errorf("Failed to write response: %v", err)
	}
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// Log the request
		duration := time.Since(start)
		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, duration)
	}
}
