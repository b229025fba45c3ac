package cli

import (
	"errors"
	"os"
	"strconv"

	"github.com/absmach/fedavg/pkg/sdk"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const filePermission = 0o644

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
	outFile   string
)

var fsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	fsdk = s
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show round status",
		Long:  `Show the round the coordinator is collecting and which clients have submitted.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := fsdk.Status()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			phase := color.YellowString(s.Phase)
			if len(s.Submitted) == s.Expected {
				phase = color.GreenString(s.Phase)
			}
			cmd.Printf("\nround %d %s (%d/%d updates)\n", s.Round, phase, len(s.Submitted), s.Expected)
			logJSONCmd(*cmd, s)
		},
	}
}

func NewModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model [round]",
		Short: "Download a global model",
		Long: `Download the current global model, or the archived model of a round.

Examples:
  # Save the current global model
  fedavg model --out global_parameters.cbor

  # Inspect the model produced by round 3
  fedavg model 3 --out round3.cbor && fedavg inspect round3.cbor`,
		Run: func(cmd *cobra.Command, args []string) {
			var (
				m   sdk.Model
				err error
			)
			switch len(args) {
			case 0:
				m, err = fsdk.GlobalModel()
			case 1:
				var round uint64
				round, err = strconv.ParseUint(args[0], 10, 64)
				if err == nil {
					m, err = fsdk.GetRound(round)
				}
			default:
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			if outFile == "" {
				logJSONCmd(*cmd, map[string]any{"round": m.Round, "bytes": len(m.Data)})

				return
			}
			if err := os.WriteFile(outFile, m.Data, filePermission); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Saved global model of round "+strconv.FormatUint(m.Round, 10)+" to "+outFile)
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "file to write the encoded model to")

	return cmd
}

func NewRoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds",
		Short: "List archived rounds",
		Long:  `List the global models archived after every completed round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := fsdk.ListRounds(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	cmd.Flags().Uint64VarP(&defOffset, "offset", "O", defOffset, "Offset")
	cmd.Flags().Uint64VarP(&defLimit, "limit", "l", defLimit, "Limit")

	return cmd
}

func NewSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <client_id> <file>",
		Short: "Submit a client update",
		Long: `Submit an encoded parameter set on behalf of a client.

Examples:
  fedavg submit 0 client_0_parameters.cbor`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			id, err := strconv.Atoi(args[0])
			if err != nil {
				logErrorCmd(*cmd, errors.New("client id must be an integer"))

				return
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			sub, err := fsdk.SubmitUpdate(id, data)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if sub.Completed {
				logSuccessCmd(*cmd, "Update completed the round")
			} else {
				logOKCmd(*cmd)
			}
			logJSONCmd(*cmd, sub)
		},
	}
}
