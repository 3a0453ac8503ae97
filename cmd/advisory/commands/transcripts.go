package commands

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/horesheladil/drlamiaiassistent/cmd/advisory/internal/config"
	"github.com/horesheladil/drlamiaiassistent/pkg/cli"
	"github.com/horesheladil/drlamiaiassistent/pkg/transcript"
)

var transcriptsCmd = &cobra.Command{
	Use:     "transcripts",
	Aliases: []string{"tx"},
	Short:   "List, show, export and delete session transcripts",
	Long: `Manage the transcripts stored in a context.

Examples:
  advisory transcripts list
  advisory transcripts show 6f1c... --format json
  advisory transcripts export 6f1c... -o session.jsonl
  advisory transcripts export 6f1c... --archive
  advisory transcripts delete 6f1c...`,
}

// withStore opens the transcript store of the selected context.
func withStore(fn func(cfg *config.Config, ctxName string, st transcript.Store) error) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	ctxName, err := cfg.ResolveContext(contextName)
	if err != nil {
		return err
	}
	st, err := transcript.NewBadger(transcript.BadgerOptions{Dir: cfg.TranscriptsDir(ctxName)})
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, ctxName, st)
}

var transcriptsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(_ *config.Config, _ string, st transcript.Store) error {
			var sessions []transcript.Session
			for s, err := range st.Sessions(cmd.Context()) {
				if err != nil {
					return err
				}
				sessions = append(sessions, s)
			}
			if outputFmt != "table" {
				return output(cmd, sessions)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tENTRIES\tREASON")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.StartedAt.Format("2006-01-02 15:04"),
					cli.FormatDuration(s.EndedAt.Sub(s.StartedAt)), s.Entries, s.Reason)
			}
			return w.Flush()
		})
	},
}

var transcriptsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(_ *config.Config, _ string, st transcript.Store) error {
			rec, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outputFmt != "text" {
				return output(cmd, rec)
			}
			styles := cli.NewStyles(cli.DefaultTheme)
			for _, e := range rec.Entries {
				fmt.Fprintln(cmd.OutOrStdout(), styles.TranscriptLine(string(e.Role), e.Text, e.Timestamp, 100))
			}
			return nil
		})
	},
}

var exportToArchive bool

var transcriptsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a session transcript as JSONL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(cfg *config.Config, ctxName string, st transcript.Store) error {
			rec, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !exportToArchive {
				w := cmd.OutOrStdout()
				if outputFile != "" {
					f, err := os.Create(outputFile)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer f.Close()
					w = f
				}
				return transcript.WriteJSONL(w, rec)
			}

			arch, err := openArchive(cmd.Context(), cfg.ContextDir(ctxName))
			if err != nil {
				return err
			}
			if arch == nil {
				return errors.New("no archive service configured; use 'advisory config edit <context> archive'")
			}
			if err := transcript.Export(cmd.Context(), arch, rec); err != nil {
				return err
			}
			cli.PrintSuccess("Exported %s", transcript.ArchiveName(rec.Session.ID))
			return nil
		})
	},
}

var transcriptsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(_ *config.Config, _ string, st transcript.Store) error {
			if _, err := st.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cli.PrintSuccess("Deleted %s", args[0])
			return nil
		})
	},
}

func init() {
	transcriptsExportCmd.Flags().BoolVar(&exportToArchive, "archive", false, "export to the context's archive service")

	transcriptsCmd.AddCommand(transcriptsListCmd)
	transcriptsCmd.AddCommand(transcriptsShowCmd)
	transcriptsCmd.AddCommand(transcriptsExportCmd)
	transcriptsCmd.AddCommand(transcriptsDeleteCmd)

	rootCmd.AddCommand(transcriptsCmd)
}
