package serve

import (
	cmdUtil "github.com/ValentinKolb/mRPC/cmd/util"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/server"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the mRPC server",
		Long:    `Start the mRPC server with the builtin methods (ping, echo, add) and the log notification. The configuration can be set via command line flags or environment variables. The format of the environment variables is MRPC_<flag> (e.g. MRPC_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupRPCServerFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig = cmdUtil.GetServerConfig()
	return nil
}

// run starts the mRPC server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		NewBuiltinAdapter(),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			server.Logger.Infof("Shutting down")
			_ = serv.Close()
		}
	}()

	return serv.Serve()
}
