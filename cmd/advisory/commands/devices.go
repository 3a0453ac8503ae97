package commands

import (
	"github.com/spf13/cobra"

	"github.com/horesheladil/drlamiaiassistent/pkg/cli"
	"github.com/horesheladil/drlamiaiassistent/pkg/device/host"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices and displays",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer host.Terminate()
		inv, err := host.List()
		if err != nil {
			cli.PrintWarning("%v", err)
		}
		return output(cmd, inv)
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
