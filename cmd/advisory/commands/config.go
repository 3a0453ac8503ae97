package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/horesheladil/drlamiaiassistent/cmd/advisory/internal/config"
	"github.com/horesheladil/drlamiaiassistent/pkg/cli"
)

// serviceName is the form of service names; they become file names.
var serviceName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func validateServiceName(service string) error {
	if !serviceName.MatchString(service) {
		return fmt.Errorf("invalid service name %q: want lowercase letters, digits, '-' or '_'", service)
	}
	return nil
}

// isSecretKey reports whether a service key holds a credential.
func isSecretKey(key string) bool {
	return key == "api_key" || strings.HasSuffix(key, "secret_access_key")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts and service configurations.

A context is a named directory holding per-service YAML config files and
the transcripts of the sessions run in it. Services:

  gemini   api_key, model, voice, transport (genai|websocket), endpoint,
           persona, disable_transcription
  archive  kind (local|s3), dir, s3 (bucket, prefix, region, endpoint, ...)

Examples:
  advisory config list-contexts
  advisory config add-context office
  advisory config use-context office
  advisory config set office gemini api_key AIza...
  advisory config get office gemini model
  advisory config edit office archive`,
}

// contextInfo is one row of list-contexts.
type contextInfo struct {
	Name     string   `json:"name" yaml:"name"`
	Current  bool     `json:"current" yaml:"current"`
	Services []string `json:"services" yaml:"services"`
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}
		infos := make([]contextInfo, 0, len(names))
		for _, name := range names {
			services, err := config.ListServices(cfg.ContextDir(name))
			if err != nil {
				return err
			}
			infos = append(infos, contextInfo{Name: name, Current: name == cfg.CurrentContext, Services: services})
		}
		if cmd.Flags().Changed("format") {
			return output(cmd, infos)
		}

		out := cmd.OutOrStdout()
		if len(infos) == 0 {
			fmt.Fprintln(out, "No contexts configured.")
			fmt.Fprintln(out, "Create one with: advisory config add-context <name>")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tSERVICES")
		for _, info := range infos {
			mark := ""
			if info.Current {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", mark, info.Name, strings.Join(info.Services, ", "))
		}
		return w.Flush()
	},
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q created.", args[0])
		fmt.Printf("Configure it with: advisory config set %s gemini api_key <key>\n", args[0])
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context with its service configs and transcripts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted.", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q.", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current context set.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

// contextService validates the service name and returns the directory of
// an existing context.
func contextService(cfg *config.Config, ctxName, service string) (string, error) {
	if err := validateServiceName(service); err != nil {
		return "", err
	}
	name, err := cfg.ResolveContext(ctxName)
	if err != nil {
		return "", err
	}
	return cfg.ContextDir(name), nil
}

// parseValue types a value given on the command line so booleans survive
// strict service decoding. Secrets stay strings.
func parseValue(key, raw string) any {
	if isSecretKey(key) {
		return raw
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

var configSetCmd = &cobra.Command{
	Use:   "set <context> <service> <key> <value>",
	Short: "Set a service config value",
	Long: `Set one key of a service config. Values that read as booleans are stored
typed; nested keys such as s3.bucket use dotted paths.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service, key, value := args[0], args[1], args[2], args[3]
		contextDir, err := contextService(cfg, ctxName, service)
		if err != nil {
			return err
		}

		m := map[string]any{}
		existing, err := config.LoadService[map[string]any](contextDir, service)
		switch {
		case err == nil && *existing != nil:
			m = *existing
		case err != nil && !errors.Is(err, config.ErrServiceNotFound):
			return err
		}
		setPath(m, strings.Split(key, "."), parseValue(key, value))

		if err := config.SaveService(contextDir, service, &m); err != nil {
			return err
		}
		shown := value
		if isSecretKey(key) {
			shown = cli.MaskAPIKey(value)
		}
		cli.PrintSuccess("Set %s.%s = %s (context: %s)", service, key, shown, ctxName)
		return nil
	},
}

// setPath stores v under the nested keys of path, replacing non-map
// intermediate values.
func setPath(m map[string]any, path []string, v any) {
	for _, k := range path[:len(path)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}

// maskSecrets masks credential values at any depth of a service config.
func maskSecrets(m map[string]any) {
	for k, v := range m {
		switch v := v.(type) {
		case string:
			if isSecretKey(k) {
				m[k] = cli.MaskAPIKey(v)
			}
		case map[string]any:
			maskSecrets(v)
		}
	}
}

// lookupPath returns the value at the nested keys of path.
func lookupPath(m map[string]any, path []string) (any, bool) {
	var v any = m
	for _, k := range path {
		mm, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = mm[k]; !ok {
			return nil, false
		}
	}
	return v, true
}

var configGetCmd = &cobra.Command{
	Use:   "get <context> <service> [key]",
	Short: "Get a service config value, or the whole service config",
	Long: `Print one key of a service config, or the whole config in the output
format. Credentials are masked.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		contextDir, err := contextService(cfg, args[0], args[1])
		if err != nil {
			return err
		}
		m, err := config.LoadService[map[string]any](contextDir, args[1])
		if err != nil {
			return err
		}
		if *m == nil {
			*m = map[string]any{}
		}
		maskSecrets(*m)
		if len(args) == 2 {
			return output(cmd, *m)
		}
		v, ok := lookupPath(*m, strings.Split(args[2], "."))
		if !ok {
			return fmt.Errorf("key %q not set in %s", args[2], args[1])
		}
		if _, nested := v.(map[string]any); nested {
			return output(cmd, v)
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

// serviceTemplates seed new service files opened by edit.
var serviceTemplates = map[string]string{
	config.ServiceGemini: `# gemini service
# api_key: AIza...
# model: gemini-2.5-flash-native-audio-preview-12-2025
# voice: Kore
# transport: genai        # or websocket
# endpoint: ""
# persona: ""             # persona file, YAML or JSON
# disable_transcription: false
`,
	config.ServiceArchive: `# archive service
# kind: local             # or s3
# dir: /path/to/transcripts
# s3:
#   bucket: ""
#   prefix: transcripts/
#   region: ""
#   endpoint: ""
`,
}

var configEditCmd = &cobra.Command{
	Use:   "edit <context> <service>",
	Short: "Edit a service config in $EDITOR",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service := args[0], args[1]
		if _, err := contextService(cfg, ctxName, service); err != nil {
			return err
		}

		path := cfg.ServicePath(ctxName, service)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			tmpl, ok := serviceTemplates[service]
			if !ok {
				tmpl = "# " + service + " service\n"
			}
			if err := os.WriteFile(path, []byte(tmpl), 0o600); err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
		}

		editor := strings.Fields(os.Getenv("EDITOR"))
		if len(editor) == 0 {
			editor = []string{"vi"}
		}
		c := exec.CommandContext(cmd.Context(), editor[0], append(editor[1:], path)...)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

func init() {
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configEditCmd)

	rootCmd.AddCommand(configCmd)
}
