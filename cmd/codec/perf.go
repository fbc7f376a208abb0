package codec

import (
	"fmt"
	"github.com/ValentinKolb/mRPC/cmd/util"
	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"testing"
)

var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Benchmark encoding and decoding",
	Long:  "Runs encode and decode benchmarks in process for a small request, a request with a large binary and a nested response.",
	RunE:  runPerf,
}

func init() {
	perfCmd.Flags().Int("large-value-size", 64, util.WrapString("Size of the binary in the large request (in KB)"))
	perfCmd.Flags().Int("garbage", 16, util.WrapString("Invalid bytes in front of the frame for the resync benchmark"))
}

func runPerf(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	config := util.GetCodecConfig()
	decoder := codec.NewDecoder(config)

	nested := common.Map{
		{Key: common.String("ids"), Value: common.Array{common.Int(1), common.Int(-2), common.Uint(1 << 40)}},
		{Key: common.String("ok"), Value: common.Bool(true)},
		{Key: common.String("score"), Value: common.Float(0.25)},
		{Key: common.String("tags"), Value: common.Array{common.String("a"), common.String("b")}},
	}
	messages := []struct {
		name string
		msg  common.Message
	}{
		{"small", common.NewRequest(1, "add", common.Int(2), common.Int(2))},
		{"large", common.NewRequest(2, "echo", common.Binary(make([]byte, viper.GetInt("large-value-size")*1024)))},
		{"nested", common.NewResultResponse(3, common.Array{nested, nested, nested})},
	}

	fmt.Fprintln(out, "Performance of the msgpack-rpc codec")
	fmt.Fprintln(out)

	for _, m := range messages {
		frame, err := codec.Encode(m.msg)
		if err != nil {
			return err
		}

		var buf []byte
		util.PrintResult(out, "encode-"+m.name, testing.Benchmark(func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				buf, _ = codec.Append(buf[:0], m.msg)
			}
		}))

		util.PrintResult(out, "decode-"+m.name, testing.Benchmark(func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := decoder.Decode(frame); err != nil {
					b.Fatal(err)
				}
			}
		}))
	}

	// invalid bytes in front of a frame exercise the skip loop
	garbage := make([]byte, viper.GetInt("garbage"))
	for i := range garbage {
		garbage[i] = 0xc1
	}
	frame, err := codec.Append(garbage, messages[0].msg)
	if err != nil {
		return err
	}
	util.PrintResult(out, "decode-resync", testing.Benchmark(func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := decoder.Decode(frame); err != nil {
				b.Fatal(err)
			}
		}
	}))

	return nil
}
