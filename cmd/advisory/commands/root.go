package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/horesheladil/drlamiaiassistent/cmd/advisory/internal/config"
	"github.com/horesheladil/drlamiaiassistent/pkg/cli"
)

var (
	verbose     bool
	contextName string
	outputFile  string
	outputFmt   string
	queryExpr   string
)

// globalConfig is loaded before every command runs. Commands that need it
// call GetConfig, which reports a failed load.
var (
	globalConfig  *config.Config
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "advisory",
	Short: "Live voice advisory sessions with Dr. Ronit Lami",
	Long: `advisory - a realtime voice session with a wealth psychologist persona.

The microphone (and optionally the screen) is streamed to a Gemini Live
model; its spoken replies are played back as they arrive. Speaking over the
advisor interrupts her.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/advisory/
  Linux:   ~/.config/advisory/
  Windows: %AppData%/advisory/

The API key may also come from GEMINI_API_KEY (or API_KEY), directly or
through a .env file.

Examples:
  advisory config add-context office
  advisory config set office gemini api_key YOUR_KEY
  advisory config use-context office

  advisory session --screen
  advisory transcripts list -o json --query '.[].id'`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		globalConfig, configLoadErr = config.Load()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVarP(&contextName, "context", "c", "", "context name (default: current context)")
	pf.StringVarP(&outputFile, "output", "o", "", "write output to file")
	pf.StringVar(&outputFmt, "format", "yaml", "output format (yaml, json, raw; table for lists, text for transcripts)")
	pf.StringVar(&queryExpr, "query", "", "jq expression applied to the output")
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() (*config.Config, error) {
	if configLoadErr != nil {
		return nil, fmt.Errorf("config not available: %w", configLoadErr)
	}
	if globalConfig == nil {
		return nil, errors.New("config not loaded")
	}
	return globalConfig, nil
}

// output writes a result honoring the global output flags.
func output(cmd *cobra.Command, result any) error {
	format, err := cli.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	opts := cli.OutputOptions{Format: format, File: outputFile, Query: queryExpr}
	if outputFile == "" {
		opts.Writer = cmd.OutOrStdout()
	}
	return cli.Output(result, opts)
}
