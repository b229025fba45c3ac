package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/absmach/fedavg/cli"
	"github.com/absmach/fedavg/fedavgd"
	"github.com/absmach/fedavg/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fedavg",
		Short: "Federated averaging coordinator",
		Long:  `fedavg runs and inspects a coordinator that averages the model updates of federated learning clients.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			url, tlsVerification := fedavgd.CoordinatorURL()
			cli.SetSDK(sdk.NewSDK(sdk.Config{
				CoordinatorURL:  url,
				TLSVerification: tlsVerification,
			}))
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		fedavgd.NewCoordinatorCmd(),
		cli.NewStatusCmd(),
		cli.NewModelCmd(),
		cli.NewRoundsCmd(),
		cli.NewSubmitCmd(),
		cli.NewInspectCmd(),
		cli.NewConfigCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
