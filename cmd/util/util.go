package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/serializer"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/ValentinKolb/mRPC/rpc/transport/http"
	"github.com/ValentinKolb/mRPC/rpc/transport/tcp"
	"github.com/ValentinKolb/mRPC/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"math"
	"strings"
	"testing"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. MRPC_TIMEOUT)
	EnvPrefix = "mrpc"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads the .env files and makes viper read MRPC_ environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupCodecFlags adds the decoder limits to a command
func SetupCodecFlags(cmd *cobra.Command) {
	defaults := common.DefaultCodecConfig()

	key := "max-message-size"
	cmd.PersistentFlags().Int(key, defaults.MaxMessageSize, WrapString("Largest frame in bytes the decoder buffers, larger frames close the connection (0 = unlimited)"))

	key = "max-invalid-frames"
	cmd.PersistentFlags().Int(key, defaults.MaxInvalidFrames, WrapString("Consecutive invalid frames that are skipped before the stream is given up (0 = unbounded)"))

	key = "max-depth"
	cmd.PersistentFlags().Int(key, defaults.MaxDepth, WrapString("Deepest nesting of arrays and maps accepted inside a frame"))
}

// GetCodecConfig reads the decoder limits from viper
func GetCodecConfig() common.CodecConfig {
	return common.CodecConfig{
		MaxMessageSize:   viper.GetInt("max-message-size"),
		MaxInvalidFrames: viper.GetInt("max-invalid-frames"),
		MaxDepth:         viper.GetInt("max-depth"),
	}
}

// SetupSocketFlags adds the socket options shared by client and server
func SetupSocketFlags(cmd *cobra.Command) {
	key := "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time for the transport (in seconds, only for tcp, 0 keeps the OS default)"))
}

// getSocketConfig reads the socket options from viper
func getSocketConfig() (common.SocketConf, common.TCPConf) {
	return common.SocketConf{
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		}, common.TCPConf{
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		}
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of the mRPC server (e.g. localhost:8080, http://localhost:8080, /tmp/mrpc.sock)"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to try connecting (or sending, for http)"))

	SetupSocketFlags(cmd)
	SetupCodecFlags(cmd)
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	socket, tcpConf := getSocketConfig()
	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Codec:         GetCodecConfig(),
		Transport: common.ClientTransportConfig{
			Endpoint:   viper.GetString("endpoint"),
			RetryCount: viper.GetInt("transport-retries"),
			SocketConf: socket,
			TCPConf:    tcpConf,
		},
	}
}

// SetupRPCServerFlags adds the server flags to a command
func SetupRPCServerFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int64(key, 30, WrapString("Idle read and write timeout of a connection in seconds (0 = none)"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "0.0.0.0:8080", WrapString("The address on which the server will listen (e.g. 0.0.0.0:8080, /tmp/mrpc.sock, ...)"))

	key = "metrics-endpoint"
	cmd.PersistentFlags().String(key, "", WrapString("Optional address for prometheus metrics (/metrics) and pprof (e.g. 127.0.0.1:9090)"))

	key = "workers"
	cmd.PersistentFlags().Int(key, 16, WrapString("How many messages of one connection are handled concurrently"))

	key = "read-chunk"
	cmd.PersistentFlags().Int(key, 4096, WrapString("Bytes read from a connection at once"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	SetupSocketFlags(cmd)
	SetupCodecFlags(cmd)
}

// GetServerConfig reads server configuration from viper
func GetServerConfig() *common.ServerConfig {
	socket, tcpConf := getSocketConfig()
	return &common.ServerConfig{
		TimeoutSecond:   viper.GetInt64("timeout"),
		MetricsEndpoint: viper.GetString("metrics-endpoint"),
		LogLevel:        viper.GetString("log-level"),
		Codec:           GetCodecConfig(),
		Transport: common.ServerTransportConfig{
			Endpoint:          viper.GetString("endpoint"),
			MaxWorkersPerConn: viper.GetInt("workers"),
			ReadChunkSize:     viper.GetInt("read-chunk"),
			SocketConf:        socket,
			TCPConf:           tcpConf,
		},
	}
}

// --------------------------------------------------------------------------
// Transports
// --------------------------------------------------------------------------

// GetTransport creates the client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// --------------------------------------------------------------------------
// Parameters and Output
// --------------------------------------------------------------------------

// ParseParams converts every argument, a json document, into a Value.
// Integers stay integers, arguments that are no valid json are taken as strings.
func ParseParams(args []string) ([]common.Value, error) {
	params := make([]common.Value, len(args))
	for i, arg := range args {
		dec := json.NewDecoder(strings.NewReader(arg))
		dec.UseNumber()

		var x any
		if err := dec.Decode(&x); err != nil || dec.More() {
			params[i] = common.String(arg)
			continue
		}

		v, err := common.ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		params[i] = v
	}
	return params, nil
}

// PrintMessage writes a message as one line of tagged json
func PrintMessage(w io.Writer, msg common.Message) error {
	data, err := serializer.NewJSONSerializer().Serialize(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadMessages reads messages written by PrintMessage, one per line. Empty lines are ignored.
func ReadMessages(r io.Reader) ([]common.Message, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	s := serializer.NewJSONSerializer()
	var msgs []common.Message
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var msg common.Message
		if err := s.Deserialize(line, &msg); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// PrintResult prints the result of a benchmark test in a formatted way
func PrintResult(w io.Writer, test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Fprintf(w, "%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Fprintf(w, "%-20s%.0fns/op (%s/op)\t%.0f ops/sec\t%d allocs/op\t%d B/op\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, result.AllocsPerOp(), result.AllocedBytesPerOp())
}
