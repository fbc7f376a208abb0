package client

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/server"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/ValentinKolb/mRPC/rpc/transport/http"
	"github.com/ValentinKolb/mRPC/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func testAdapter() *server.MethodServerAdapter {
	adapter := server.NewMethodServerAdapter()
	adapter.Register("add", func(params []common.Value) (common.Value, error) {
		var sum int64
		for _, p := range params {
			i, ok := p.(common.Integer)
			if !ok {
				return nil, errors.New("add expects integers")
			}
			v, _ := i.Int64()
			sum += v
		}
		return common.Int(sum), nil
	})
	adapter.Register("sleep", func([]common.Value) (common.Value, error) {
		time.Sleep(1500 * time.Millisecond)
		return common.Nil{}, nil
	})
	return adapter
}

// startServer runs a server transport with the test adapter
func startServer(t *testing.T, srv transport.IRPCServerTransport) string {
	t.Helper()
	addr := freeAddr(t)
	srv.RegisterHandler(testAdapter().Handle)

	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{
			Transport:     common.ServerTransportConfig{Endpoint: addr},
			Codec:         common.DefaultCodecConfig(),
			TimeoutSecond: 5,
		})
	}()
	t.Cleanup(func() {
		_ = srv.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Listen did not return after Close")
		}
	})
	return addr
}

func clientConfig(addr string, timeout int) common.ClientConfig {
	return common.ClientConfig{
		Transport:     common.ClientTransportConfig{Endpoint: addr, RetryCount: 8},
		Codec:         common.DefaultCodecConfig(),
		TimeoutSecond: timeout,
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestCall(t *testing.T) {
	transports := map[string]struct {
		server func() transport.IRPCServerTransport
		client func() transport.IRPCClientTransport
	}{
		"tcp":  {tcp.NewTCPServerTransport, tcp.NewTCPClientTransport},
		"http": {http.NewHttpServerTransport, http.NewHttpClientTransport},
	}

	for name, tr := range transports {
		t.Run(name, func(t *testing.T) {
			addr := startServer(t, tr.server())

			c, err := NewRPCClient(clientConfig(addr, 5), tr.client())
			require.NoError(t, err)
			defer c.Close()

			sum, err := c.Call("add", common.Int(2), common.Int(2))
			require.NoError(t, err)
			assert.True(t, common.Equal(common.Int(4), sum))

			_, err = c.Call("add", common.String("x"))
			var callErr *CallError
			require.ErrorAs(t, err, &callErr)
			assert.Equal(t, "add", callErr.Method)
			assert.True(t, common.Equal(common.String("add expects integers"), callErr.Value))
			assert.Equal(t, "rpc add: add expects integers", err.Error())

			_, err = c.Call("missing")
			require.ErrorAs(t, err, &callErr)
			assert.True(t, common.Equal(common.String("method not found: missing"), callErr.Value))

			assert.NoError(t, c.Notify("log", common.String("ignored")))
		})
	}
}

func TestConcurrentCalls(t *testing.T) {
	addr := startServer(t, tcp.NewTCPServerTransport())

	c, err := NewRPCClient(clientConfig(addr, 5), tcp.NewTCPClientTransport())
	require.NoError(t, err)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int64) {
			defer wg.Done()
			sum, err := c.Call("add", common.Int(i), common.Int(i))
			if assert.NoError(t, err) {
				assert.True(t, common.Equal(common.Int(2*i), sum))
			}
		}(int64(i))
	}
	wg.Wait()
}

func TestCallTimeout(t *testing.T) {
	addr := startServer(t, tcp.NewTCPServerTransport())

	c, err := NewRPCClient(clientConfig(addr, 1), tcp.NewTCPClientTransport())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Call("sleep")
	assert.ErrorIs(t, err, ErrTimeout)

	// the late response is dropped and the client keeps working
	time.Sleep(700 * time.Millisecond)
	sum, err := c.Call("add", common.Int(1))
	require.NoError(t, err)
	assert.True(t, common.Equal(common.Int(1), sum))
}

func TestCallAfterClose(t *testing.T) {
	addr := startServer(t, tcp.NewTCPServerTransport())

	c, err := NewRPCClient(clientConfig(addr, 5), tcp.NewTCPClientTransport())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Call("add")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Notify("log"), ErrClosed)
}

func TestServerGoesAway(t *testing.T) {
	srv := tcp.NewTCPServerTransport()
	addr := startServer(t, srv)

	c, err := NewRPCClient(clientConfig(addr, 5), tcp.NewTCPClientTransport())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Call("add")
	require.NoError(t, err)

	require.NoError(t, srv.Close())

	require.Eventually(t, func() bool {
		_, err := c.Call("add")
		return errors.Is(err, ErrClosed)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestConnectFails(t *testing.T) {
	config := clientConfig(freeAddr(t), 1)
	config.Transport.RetryCount = 1
	_, err := NewRPCClient(config, tcp.NewTCPClientTransport())
	assert.Error(t, err)
}
