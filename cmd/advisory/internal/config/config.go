// Package config provides the configuration of the advisory CLI.
//
// Configuration is stored under os.UserConfigDir()/advisory/:
//
//	advisory/
//	├── current-context          # plain text: name of current context
//	└── contexts/
//	    └── office/
//	        ├── gemini.yaml      # API key, model, voice, transport, persona
//	        ├── archive.yaml     # optional transcript export target
//	        └── transcripts/     # badger store of past sessions
//
// ADVISORY_CONFIG_DIR replaces the root directory. Environment variables,
// optionally read from a .env file, override the gemini service settings of
// the selected context.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "advisory"

	// currentContextFile stores the name of the current context.
	currentContextFile = "current-context"

	// contextsDir is the subdirectory holding all context directories.
	contextsDir = "contexts"

	// transcriptsDir is the per-context transcript store directory.
	transcriptsDir = "transcripts"

	// dirEnv overrides the root directory.
	dirEnv = "ADVISORY_CONFIG_DIR"
)

// Config holds the root configuration state.
type Config struct {
	// Dir is the root configuration directory.
	Dir string

	// CurrentContext is the name of the active context.
	CurrentContext string
}

// Load loads the configuration from ADVISORY_CONFIG_DIR or the default
// location.
func Load() (*Config, error) {
	if dir := os.Getenv(dirEnv); dir != "" {
		return LoadFrom(dir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, appDir))
}

// LoadFrom loads the configuration from a specific root directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{Dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, currentContextFile))
	switch {
	case err == nil:
		cfg.CurrentContext = strings.TrimSpace(string(data))
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read current context: %w", err)
	}
	return cfg, nil
}

// ValidateContextName checks that a context name is usable as a directory
// name.
func ValidateContextName(name string) error {
	if name == "" {
		return errors.New("context name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid context name %q", name)
	}
	return nil
}

// ContextsDir returns the path to the contexts directory.
func (c *Config) ContextsDir() string {
	return filepath.Join(c.Dir, contextsDir)
}

// ContextDir returns the directory path for a named context.
func (c *Config) ContextDir(name string) string {
	return filepath.Join(c.Dir, contextsDir, name)
}

// TranscriptsDir returns the transcript store directory of a context.
func (c *Config) TranscriptsDir(name string) string {
	return filepath.Join(c.ContextDir(name), transcriptsDir)
}

// ErrContextNotFound is returned for a context without a directory.
var ErrContextNotFound = errors.New("context not found")

// requireContext validates name and checks that its directory exists.
func (c *Config) requireContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	info, err := os.Stat(c.ContextDir(name))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	return err
}

// ResolveContext returns name, or the current context when name is empty.
// The context must exist.
func (c *Config) ResolveContext(name string) (string, error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		return "", errors.New("no current context set; use 'advisory config use-context <name>'")
	}
	if err := c.requireContext(name); err != nil {
		return "", err
	}
	return name, nil
}

// ListContexts returns the context names in lexical order.
func (c *Config) ListContexts() ([]string, error) {
	entries, err := os.ReadDir(c.ContextsDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && ValidateContextName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// AddContext creates an empty context.
func (c *Config) AddContext(name string) error {
	err := c.requireContext(name)
	switch {
	case err == nil:
		return fmt.Errorf("context %q already exists", name)
	case !errors.Is(err, ErrContextNotFound):
		return err
	}
	if err := os.MkdirAll(c.ContextDir(name), 0o700); err != nil {
		return fmt.Errorf("create context %q: %w", name, err)
	}
	return nil
}

// DeleteContext removes a context together with its services and
// transcripts. Deleting the current context unsets it.
func (c *Config) DeleteContext(name string) error {
	if err := c.requireContext(name); err != nil {
		return err
	}
	if err := os.RemoveAll(c.ContextDir(name)); err != nil {
		return fmt.Errorf("delete context %q: %w", name, err)
	}
	if c.CurrentContext != name {
		return nil
	}
	c.CurrentContext = ""
	return c.saveCurrentContext()
}

// UseContext makes name the current context.
func (c *Config) UseContext(name string) error {
	if err := c.requireContext(name); err != nil {
		return err
	}
	c.CurrentContext = name
	return c.saveCurrentContext()
}

func (c *Config) saveCurrentContext() error {
	path := filepath.Join(c.Dir, currentContextFile)
	if c.CurrentContext == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return writeFile(path, []byte(c.CurrentContext+"\n"), 0o644)
}

// writeFile replaces path through a temporary file in the same directory
// so readers never observe a partial write.
func writeFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, perm)
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
