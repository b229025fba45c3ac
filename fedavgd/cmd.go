package fedavgd

import (
	"context"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const pathEnv = ".env"

const (
	DefCoordinatorURL  = "http://localhost:" + defHTTPPort
	envCoordinatorURL  = "FEDAVG_COORDINATOR_URL"
	envTLSVerification = "FEDAVG_TLS_VERIFICATION"
)

// LoadConfig reads the coordinator configuration from the environment,
// loading .env first when it exists.
func LoadConfig() (Config, error) {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// CoordinatorURL returns the API address the CLI talks to.
func CoordinatorURL() (string, bool) {
	url := DefCoordinatorURL
	if v := os.Getenv(envCoordinatorURL); v != "" {
		url = v
	}

	return url, os.Getenv(envTLSVerification) == "true"
}

var coordinatorCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start coordinator",
		Long: `Start the coordinator. It is configured through FEDAVG_* environment
variables and an optional .env file in the working directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())

			return StartCoordinator(ctx, cancel, cfg)
		},
	},
}

func NewCoordinatorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "coordinator [start]",
		Short: "Coordinator management",
		Long:  `Run the federated averaging coordinator.`,
	}

	for i := range coordinatorCmd {
		cmd.AddCommand(&coordinatorCmd[i])
	}

	return &cmd
}
