package codec

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/cmd/util"
	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"strings"
)

var (
	// CodecCommands represents the codec command group
	CodecCommands = &cobra.Command{
		Use:               "codec",
		Short:             "Encode, decode and benchmark msgpack-rpc frames offline",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return util.BindCommandFlags(cmd)
		},
	}

	encodeCmd = &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode messages given as tagged json lines (as printed by decode)",
		Long: `Reads one tagged json message per line from the file (or stdin) and writes the frames to stdout.

Example:
  echo '{"type":"request","id":1,"method":"add","params":[{"t":"int","v":2},{"t":"int","v":2}]}' | mrpc codec encode --hex`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEncode,
	}

	decodeCmd = &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a stream of frames and print every message as tagged json",
		Long:  `Decodes the file (or stdin) with the same skip-and-resync loop as the servers. Invalid frames are skipped and reported on stderr, a fatal error stops decoding.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDecode,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	util.SetupCodecFlags(CodecCommands)
	CodecCommands.PersistentFlags().Bool("hex", false, util.WrapString("Frames are hex encoded (whitespace is ignored when decoding)"))

	CodecCommands.AddCommand(encodeCmd)
	CodecCommands.AddCommand(decodeCmd)
	CodecCommands.AddCommand(perfCmd)
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

func runEncode(cmd *cobra.Command, args []string) error {
	in, closeIn, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer closeIn()

	msgs, err := util.ReadMessages(in)
	if err != nil {
		return err
	}

	var frames []byte
	for _, msg := range msgs {
		if frames, err = codec.Append(frames, msg); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if viper.GetBool("hex") {
		_, err = fmt.Fprintln(out, hex.EncodeToString(frames))
		return err
	}
	_, err = out.Write(frames)
	return err
}

func runDecode(cmd *cobra.Command, args []string) error {
	in, closeIn, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer closeIn()

	if viper.GetBool("hex") {
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		raw, err := hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
		if err != nil {
			return fmt.Errorf("invalid hex input: %w", err)
		}
		in = bytes.NewReader(raw)
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	decoder := codec.NewStreamDecoder(in, util.GetCodecConfig())
	decoder.SetObserver(func(res codec.Result) {
		if res.InvalidFrames > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d invalid frames (%d bytes)\n", res.InvalidFrames, res.Skipped)
		}
	})

	for {
		msg, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = out.Flush()
			printStats(cmd, decoder.Stats())
			return err
		}
		if err := util.PrintMessage(out, msg); err != nil {
			return err
		}
	}

	_ = out.Flush()
	printStats(cmd, decoder.Stats())
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// openInput opens the file named by the first argument or returns stdin
func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func printStats(cmd *cobra.Command, stats codec.StreamStats) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%d messages, %d bytes read, %d bytes skipped in %d invalid frames\n",
		stats.Messages, stats.BytesRead, stats.Skipped, stats.InvalidFrames)
}
