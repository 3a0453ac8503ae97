package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/horesheladil/drlamiaiassistent/pkg/archive"
	"github.com/horesheladil/drlamiaiassistent/pkg/live"
	"github.com/horesheladil/drlamiaiassistent/pkg/persona"
)

// Service names.
const (
	ServiceGemini  = "gemini"
	ServiceArchive = "archive"
)

// Transport names.
const (
	TransportGenAI     = "genai"
	TransportWebSocket = "websocket"
)

// Gemini is the gemini service config.
type Gemini struct {
	APIKey    string `yaml:"api_key,omitempty"`
	Model     string `yaml:"model,omitempty"`
	Voice     string `yaml:"voice,omitempty"`
	Transport string `yaml:"transport,omitempty"`

	// Endpoint is the API base URL for the genai transport or the
	// websocket URL for the websocket transport.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Persona is the path of a persona file. Empty selects the built-in
	// advisor.
	Persona string `yaml:"persona,omitempty"`

	// DisableTranscription turns off input and output transcription.
	DisableTranscription bool `yaml:"disable_transcription,omitempty"`
}

// Archive is the archive service config.
type Archive struct {
	// Kind is "local" or "s3".
	Kind string           `yaml:"kind"`
	Dir  string           `yaml:"dir,omitempty"`
	S3   archive.S3Config `yaml:"s3,omitempty"`
}

// Env is the environment overlay.
type Env struct {
	APIKey       string `env:"GEMINI_API_KEY"`
	LegacyAPIKey string `env:"API_KEY"`
	Model        string `env:"ADVISORY_MODEL"`
	Voice        string `env:"ADVISORY_VOICE"`
	Transport    string `env:"ADVISORY_TRANSPORT"`
	Endpoint     string `env:"ADVISORY_ENDPOINT"`
	Persona      string `env:"ADVISORY_PERSONA"`
}

// LoadEnv reads the given dotenv files, ".env" if none, without overriding
// variables already set, then parses the environment. Missing files are
// ignored.
func LoadEnv(files ...string) (*Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return &e, nil
}

// Apply overrides g with the non-empty environment values.
func (e *Env) Apply(g *Gemini) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&g.APIKey, e.LegacyAPIKey)
	set(&g.APIKey, e.APIKey)
	set(&g.Model, e.Model)
	set(&g.Voice, e.Voice)
	set(&g.Transport, e.Transport)
	set(&g.Endpoint, e.Endpoint)
	set(&g.Persona, e.Persona)
}

// ResolveGemini loads the gemini service of contextDir and applies the
// environment. An empty contextDir or a missing service file yields a
// config from the environment alone.
func ResolveGemini(contextDir string, e *Env) (*Gemini, error) {
	g := &Gemini{}
	if contextDir != "" {
		loaded, err := LoadService[Gemini](contextDir, ServiceGemini)
		switch {
		case err == nil:
			g = loaded
		case !errors.Is(err, ErrServiceNotFound):
			return nil, err
		}
	}
	if e != nil {
		e.Apply(g)
	}
	return g, nil
}

// LoadPersona loads the configured persona, or the built-in advisor.
func (g *Gemini) LoadPersona() (*persona.Persona, error) {
	if g.Persona == "" {
		return persona.Default(), nil
	}
	return persona.Load(g.Persona)
}

// LiveConfig builds the session configuration. Persona values override the
// service's voice and model only where the service leaves them empty.
func (g *Gemini) LiveConfig(p *persona.Persona) live.Config {
	cfg := live.Config{Transcription: !g.DisableTranscription}
	if p != nil {
		p.Apply(&cfg)
	}
	cfg.APIKey = g.APIKey
	if g.Model != "" {
		cfg.Model = g.Model
	}
	if g.Voice != "" {
		cfg.Voice = g.Voice
	}
	return cfg
}

// NewTransport returns the configured transport.
func (g *Gemini) NewTransport() (live.Transport, error) {
	switch strings.ToLower(g.Transport) {
	case "", TransportGenAI:
		return live.GenAI{HTTPOptions: genai.HTTPOptions{BaseURL: g.Endpoint}}, nil
	case TransportWebSocket:
		return live.WebSocket{URL: g.Endpoint}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want %s or %s)", g.Transport, TransportGenAI, TransportWebSocket)
	}
}

// Open opens the configured archive.
func (a *Archive) Open(ctx context.Context) (archive.Store, error) {
	switch strings.ToLower(a.Kind) {
	case "local":
		if a.Dir == "" {
			return nil, errors.New("archive: dir is required for kind local")
		}
		st, err := archive.NewLocal(a.Dir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "s3":
		st, err := archive.DialS3(ctx, a.S3)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("archive: unknown kind %q (want local or s3)", a.Kind)
	}
}
