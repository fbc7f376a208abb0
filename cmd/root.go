package cmd

import (
	"fmt"
	"github.com/ValentinKolb/mRPC/cmd/call"
	"github.com/ValentinKolb/mRPC/cmd/codec"
	"github.com/ValentinKolb/mRPC/cmd/perf"
	"github.com/ValentinKolb/mRPC/cmd/serve"
	"github.com/ValentinKolb/mRPC/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "mrpc",
		Short: "msgpack-rpc server, client and codec tools",
		Long: fmt.Sprintf(`mRPC (v%s)

A msgpack-rpc codec with an incremental decoder that skips malformed
frames and resyncs, plus servers and clients for tcp, unix sockets and http.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mRPC",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mRPC v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(call.CallCmd)
	RootCmd.AddCommand(call.NotifyCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(codec.CodecCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
