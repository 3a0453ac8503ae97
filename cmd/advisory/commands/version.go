package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/horesheladil/drlamiaiassistent/cmd/advisory/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := build.Get()
		if cmd.Flags().Changed("format") {
			return output(cmd, info)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, info)
		if verbose {
			fmt.Fprintf(out, "  go:     %s\n", info.Go)
			if cfg, err := GetConfig(); err == nil {
				fmt.Fprintf(out, "  config: %s\n", cfg.Dir)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
