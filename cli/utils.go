package cli

import (
	"encoding/json"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

func logJSONCmd(cmd cobra.Command, iList ...any) {
	for _, i := range iList {
		m, err := json.Marshal(i)
		if err != nil {
			logErrorCmd(cmd, err)

			return
		}

		pj, err := prettyjson.Format(m)
		if err != nil {
			logErrorCmd(cmd, err)

			return
		}

		cmd.Printf("\n%s\n\n", string(pj))
	}
}

func logUsageCmd(cmd cobra.Command, u string) {
	cmd.Printf(color.YellowString("\nusage: %s\n\n"), u)
}

func logErrorCmd(cmd cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	boldRed.Fprintf(cmd.ErrOrStderr(), "\nerror: ")

	cmd.PrintErrf("%s\n\n", color.RedString(err.Error()))
}

func logOKCmd(cmd cobra.Command) {
	cmd.Print(color.BlueString("\nok\n\n"))
}

func logSuccessCmd(cmd cobra.Command, msg string) {
	cmd.Print(color.GreenString("\n%s\n\n", msg))
}
