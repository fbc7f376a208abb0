package http

import (
	"bytes"
	"io"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer starts an http server transport on a free local port
func startServer(t *testing.T) (transport.IRPCServerTransport, string) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	server := NewHttpServerTransport()
	server.RegisterHandler(func(msg common.Message) common.Message {
		if req, ok := msg.(common.Request); ok {
			return common.NewResultResponse(req.ID, common.String(req.Method))
		}
		return nil
	})

	done := make(chan error, 1)
	go func() {
		done <- server.Listen(common.ServerConfig{
			Transport:     common.ServerTransportConfig{Endpoint: addr},
			Codec:         common.DefaultCodecConfig(),
			TimeoutSecond: 5,
		})
	}()

	t.Cleanup(func() {
		_ = server.Close()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Listen did not return after Close")
		}
	})

	// wait until the server accepts connections
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return server, addr
}

func TestHttpRoundTrip(t *testing.T) {
	_, addr := startServer(t)

	client := NewHttpClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{
		Transport:     common.ClientTransportConfig{Endpoint: addr, RetryCount: 3},
		Codec:         common.DefaultCodecConfig(),
		TimeoutSecond: 1,
	}))
	defer client.Close()

	require.NoError(t, client.Send(common.NewRequest(1, "ping")))
	reply, err := client.Receive()
	require.NoError(t, err)
	assert.True(t, common.MessagesEqual(common.NewResultResponse(1, common.String("ping")), reply))

	// notifications produce an empty body
	require.NoError(t, client.Send(common.NewNotification("log")))
	_, err = client.Receive()
	assert.ErrorIs(t, err, transport.ErrReceiveTimeout)
}

func TestHttpBodyWithSeveralFrames(t *testing.T) {
	server, addr := startServer(t)

	var body []byte
	var err error
	body, err = codec.Append(body, common.NewRequest(1, "a"))
	require.NoError(t, err)
	body = append(body, 0xc1) // never used byte
	body, err = codec.Append(body, common.NewNotification("n"))
	require.NoError(t, err)
	body, err = codec.Append(body, common.NewRequest(2, "b"))
	require.NoError(t, err)

	resp, err := nethttp.Post("http://"+addr+RPCPath, ContentType, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	first, err := codec.Decode(data)
	require.NoError(t, err)
	assert.True(t, common.MessagesEqual(common.NewResultResponse(1, common.String("a")), first.Message))

	second, err := codec.Unmarshal(data[first.Consumed:])
	require.NoError(t, err)
	assert.True(t, common.MessagesEqual(common.NewResultResponse(2, common.String("b")), second))

	snapshot := server.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snapshot.InvalidFrames)
	assert.Equal(t, uint64(2), snapshot.RepliesSent)
}

func TestHttpFatalBody(t *testing.T) {
	server, addr := startServer(t)

	// a frame cut off in the middle of the body
	resp, err := nethttp.Post("http://"+addr+RPCPath, ContentType, bytes.NewReader([]byte{0x94, 0x00, 0x01}))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, uint64(1), server.Metrics().Snapshot().FatalErrors)
}

func TestHttpClientNotConnected(t *testing.T) {
	client := NewHttpClientTransport()
	assert.Error(t, client.Send(common.NewRequest(1, "m")))
	_, err := client.Receive()
	assert.Error(t, err)
	assert.Error(t, client.Connect(common.ClientConfig{}))
}
