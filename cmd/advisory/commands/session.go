package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/horesheladil/drlamiaiassistent/cmd/advisory/internal/config"
	"github.com/horesheladil/drlamiaiassistent/pkg/advisory"
	"github.com/horesheladil/drlamiaiassistent/pkg/archive"
	"github.com/horesheladil/drlamiaiassistent/pkg/cli"
	"github.com/horesheladil/drlamiaiassistent/pkg/device/host"
	"github.com/horesheladil/drlamiaiassistent/pkg/metrics"
	"github.com/horesheladil/drlamiaiassistent/pkg/transcript"
)

var sessionFlags struct {
	screen      bool
	display     int
	persona     string
	envFile     string
	metricsAddr string
	noStore     bool
	gain        float32
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start a live advisory session",
	Long: `Start a live advisory session on the default microphone and speaker.

The session runs until Ctrl-C or until the connection ends. With --screen the
selected display is shared every two seconds; if it cannot be captured the
session continues voice-only.

Transcripts are stored in the context and, when an archive service is
configured, exported there as JSONL.

Examples:
  advisory session
  advisory session --screen --display 1
  advisory session --persona night-desk.yaml --metrics-addr :9464`,
	RunE: runSession,
}

func init() {
	f := sessionCmd.Flags()
	f.BoolVar(&sessionFlags.screen, "screen", false, "share the screen with the advisor")
	f.IntVar(&sessionFlags.display, "display", 0, "index of the display to share")
	f.StringVar(&sessionFlags.persona, "persona", "", "persona file (YAML or JSON)")
	f.StringVar(&sessionFlags.envFile, "env-file", "", "dotenv file to load (default .env)")
	f.StringVar(&sessionFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&sessionFlags.noStore, "no-store", false, "do not store the transcript")
	f.Float32Var(&sessionFlags.gain, "gain", 0, "playback gain (default 1)")

	rootCmd.AddCommand(sessionCmd)
}

// resolveContext returns the selected context name, or "" when no context
// is configured and none was requested.
func resolveContext(cfg *config.Config) (string, error) {
	if contextName == "" && cfg.CurrentContext == "" {
		return "", nil
	}
	return cfg.ResolveContext(contextName)
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	ctxName, err := resolveContext(cfg)
	if err != nil {
		return err
	}
	contextDir := ""
	if ctxName != "" {
		contextDir = cfg.ContextDir(ctxName)
	}

	var envFiles []string
	if sessionFlags.envFile != "" {
		envFiles = append(envFiles, sessionFlags.envFile)
	}
	env, err := config.LoadEnv(envFiles...)
	if err != nil {
		return err
	}
	gemini, err := config.ResolveGemini(contextDir, env)
	if err != nil {
		return err
	}
	if sessionFlags.persona != "" {
		gemini.Persona = sessionFlags.persona
	}
	p, err := gemini.LoadPersona()
	if err != nil {
		return err
	}
	transport, err := gemini.NewTransport()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := advisory.Options{
		Devices: &host.Devices{
			Display: sessionFlags.display,
			Gain:    sessionFlags.gain,
		},
		Transport: transport,
		Live:      gemini.LiveConfig(p),
		Screen:    sessionFlags.screen,
	}
	defer host.Terminate()

	if ctxName != "" && !sessionFlags.noStore {
		store, err := transcript.NewBadger(transcript.BadgerOptions{Dir: cfg.TranscriptsDir(ctxName)})
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store

		if opts.Archive, err = openArchive(ctx, contextDir); err != nil {
			return err
		}
	}

	if sessionFlags.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Metrics = metrics.New(reg)
		srv := serveMetrics(sessionFlags.metricsAddr, reg)
		defer srv.Close()
	}

	styles := cli.NewStyles(cli.DefaultTheme)
	ended := make(chan struct{}, 1)
	opts.OnModeChange = func(from, to advisory.Mode) {
		fmt.Fprintf(os.Stderr, "%s\n", styles.ModeBadge(to.String()))
		if to == advisory.ModeIdle {
			select {
			case ended <- struct{}{}:
			default:
			}
		}
	}
	opts.OnTranscript = func(e transcript.Entry) {
		fmt.Fprintln(cmd.OutOrStdout(), styles.TranscriptLine(string(e.Role), e.Text, e.Timestamp, 0))
	}

	ctrl, err := advisory.New(opts)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	slog.Info("starting session", "context", ctxName, "model", opts.Live.Model, "voice", opts.Live.Voice, "screen", opts.Screen)
	started := time.Now()
	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		ctrl.Stop()
	case <-ended:
	}
	slog.Info("session over", "duration", cli.FormatDuration(time.Since(started)))

	if err := ctrl.LastError(); err != nil {
		return err
	}
	return nil
}

// openArchive opens the archive service of a context. A context without
// one returns nil.
func openArchive(ctx context.Context, contextDir string) (archive.Store, error) {
	a, err := config.LoadService[config.Archive](contextDir, config.ServiceArchive)
	if err != nil {
		if errors.Is(err, config.ErrServiceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return a.Open(ctx)
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
	return srv
}
