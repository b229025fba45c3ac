package cli

import (
	"errors"
	"os"

	"github.com/absmach/fedavg"
	"github.com/absmach/fedavg/pkg/params"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	configFile string
	overwrite  bool
)

var errConfigExists = errors.New("config file already exists, use --force to overwrite it")

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [init]",
		Short: "Coordinator configuration",
		Long:  `Create the TOML file holding the coordinator's broker credentials and model.`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file interactively",
		Long: `Create a config file interactively. The file is read by the coordinator
when FEDAVG_CONFIG_FILE points at it.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			if _, err := os.Stat(configFile); err == nil && !overwrite {
				logErrorCmd(*cmd, errConfigExists)

				return
			}

			cfg, err := promptConfig()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if err := fedavg.SaveConfig(configFile, cfg); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Successfully created "+configFile)
		},
	}

	initCmd.Flags().StringVarP(&configFile, "file", "f", "config.toml", "config file to write")
	initCmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing config file")

	cmd.AddCommand(initCmd)

	return cmd
}

func promptConfig() (fedavg.Config, error) {
	var (
		cfg          fedavg.Config
		defaultModel = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("MQTT client ID").
				Description("Leave empty to generate one on startup.").
				Value(&cfg.Coordinator.ClientID),
			huh.NewInput().
				Title("MQTT username").
				Value(&cfg.Coordinator.Username),
			huh.NewInput().
				Title("MQTT password").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Coordinator.Password),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use the default CNN model?").
				Description("conv1 20x3x7x7, conv2 40x20x7x7, linear 10x4000").
				Value(&defaultModel),
		),
	)
	if err := form.Run(); err != nil {
		return fedavg.Config{}, err
	}

	if defaultModel {
		cfg.Model.Layers = params.DefaultArchitecture()
	}

	return cfg, nil
}
