package call

import (
	"fmt"
	"github.com/ValentinKolb/mRPC/cmd/util"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/spf13/cobra"
)

var (
	rpcTransport transport.IRPCClientTransport

	// CallCmd sends a request and prints the response
	CallCmd = &cobra.Command{
		Use:   "call [method] [params...]",
		Short: "Call a method and print the response",
		Long: `Call a method and print the response as tagged json.
Every param is parsed as json (1, -2.5, true, null, "text", [1,2], {"a":1}),
params that are no valid json are sent as strings.`,
		Args:              cobra.MinimumNArgs(1),
		PersistentPreRunE: setupTransport,
		PersistentPostRun: closeTransport,
		RunE:              runCall,
	}

	// NotifyCmd sends a notification
	NotifyCmd = &cobra.Command{
		Use:               "notify [method] [params...]",
		Short:             "Send a notification (no response)",
		Args:              cobra.MinimumNArgs(1),
		PersistentPreRunE: setupTransport,
		PersistentPostRun: closeTransport,
		RunE:              runNotify,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags
	util.SetupRPCClientFlags(CallCmd)
	util.SetupRPCClientFlags(NotifyCmd)

	CallCmd.Flags().Uint32("id", 1, util.WrapString("The id of the request"))
}

// setupTransport connects the configured transport
func setupTransport(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}
	if err := t.Connect(*util.GetClientConfig()); err != nil {
		return err
	}

	rpcTransport = t
	return nil
}

func closeTransport(*cobra.Command, []string) {
	if rpcTransport != nil {
		_ = rpcTransport.Close()
	}
}

func runCall(cmd *cobra.Command, args []string) error {
	params, err := util.ParseParams(args[1:])
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetUint32("id")
	if err != nil {
		return err
	}

	if err := rpcTransport.Send(common.NewRequest(id, args[0], params...)); err != nil {
		return err
	}

	// skip everything that is not the answer
	for {
		msg, err := rpcTransport.Receive()
		if err != nil {
			return fmt.Errorf("no response: %w", err)
		}
		if resp, ok := msg.(common.Response); ok && resp.ID == id {
			return util.PrintMessage(cmd.OutOrStdout(), msg)
		}
	}
}

func runNotify(cmd *cobra.Command, args []string) error {
	params, err := util.ParseParams(args[1:])
	if err != nil {
		return err
	}
	return rpcTransport.Send(common.NewNotification(args[0], params...))
}
