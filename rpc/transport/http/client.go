package http

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/ValentinKolb/mRPC/rpc/transport/base"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// NewHttpClientTransport creates a new http client transport. Every Send is
// a POST carrying one frame, the replies of the response body are queued
// for Receive.
func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	mu      sync.RWMutex
	client  *http.Client
	url     string
	config  common.ClientConfig
	replies *base.MPSCQueue[common.Message]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if config.Transport.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	_ = t.Close()

	endpoint := config.Transport.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	// Create client with default transport
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     time.Duration(config.TimeoutSecond) * time.Second,
		},
		Timeout: time.Duration(config.TimeoutSecond) * time.Second,
	}

	t.mu.Lock()
	t.client = client
	t.url = strings.TrimSuffix(endpoint, "/") + RPCPath
	t.config = config
	t.replies = base.NewMPSCQueue[common.Message]()
	t.mu.Unlock()

	return nil
}

func (t *httpClientTransport) Send(msg common.Message) error {
	t.mu.RLock()
	client, url, config, replies := t.client, t.url, t.config, t.replies
	t.mu.RUnlock()

	// Check if the transport is initialized
	if client == nil {
		return fmt.Errorf("http transport not initialized")
	}

	frame, err := codec.NewEncoder(config.Codec).Encode(msg)
	if err != nil {
		return err
	}

	// Send the request (with retries)
	attempts := config.Transport.RetryCount
	if attempts < 1 {
		attempts = 1
	}

	var httpResponse *http.Response
	for i := 0; i < attempts; i++ {
		httpResponse, err = client.Post(url, ContentType, bytes.NewReader(frame))
		if err == nil {
			break
		}
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, attempts, err)
		if i < attempts-1 {
			time.Sleep(base.Backoff(i))
		}
	}
	if err != nil {
		return err
	}
	defer httpResponse.Body.Close()

	// Check if the response status code is OK
	if httpResponse.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 512))
		return fmt.Errorf("http error: %s: %s", httpResponse.Status, strings.TrimSpace(string(body)))
	}

	// Queue all replies of the body
	decoder := codec.NewStreamDecoder(httpResponse.Body, config.Codec)
	for {
		reply, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		replies.Push(reply)
	}
}

func (t *httpClientTransport) Receive() (common.Message, error) {
	t.mu.RLock()
	replies, config := t.replies, t.config
	t.mu.RUnlock()

	if replies == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}

	var timeoutCh <-chan time.Time
	if config.TimeoutSecond > 0 {
		timer := time.NewTimer(time.Duration(config.TimeoutSecond) * time.Second)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case msg, ok := <-replies.Recv():
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	case <-timeoutCh:
		return nil, transport.ErrReceiveTimeout
	}
}

func (t *httpClientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Close the client
	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	if t.replies != nil {
		t.replies.Close()
	}

	// Reset the client
	t.client = nil
	t.url = ""

	return nil
}
