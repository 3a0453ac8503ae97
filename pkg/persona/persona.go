// Package persona describes the advisor voiced by the live model: its name,
// voice and system instruction.
package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/horesheladil/drlamiaiassistent/pkg/live"
)

// DefaultInstruction is the system instruction of the built-in advisor.
const DefaultInstruction = "You are Dr. Ronit Lami, a premier wealth psychologist. " +
	"You are speaking with a high-net-worth client during a virtual advisory session. " +
	"Provide high-status, clinically insightful, and sophisticated psychological guidance " +
	"on wealth dynamics and the Legacy ReCode™. Use the client's screen context if available. " +
	"Be authoritative, calm, and concise. Do not use conversational filler."

// Persona is an advisor definition.
//
// In YAML a persona may be written as a bare string, which is taken as the
// instruction:
//
//	instruction only, default name and voice
//
// or as a mapping:
//
//	name: Dr. Ronit Lami
//	voice: Kore
//	instruction: |
//	  You are ...
type Persona struct {
	Name        string `json:"name,omitzero" yaml:"name,omitempty"`
	Voice       string `json:"voice,omitzero" yaml:"voice,omitempty"`
	Model       string `json:"model,omitzero" yaml:"model,omitempty"`
	Instruction string `json:"instruction" yaml:"instruction"`
}

// Default returns the built-in advisor.
func Default() *Persona {
	return &Persona{
		Name:        "Dr. Ronit Lami",
		Voice:       live.DefaultVoice,
		Instruction: DefaultInstruction,
	}
}

func (p *Persona) validate() error {
	if strings.TrimSpace(p.Instruction) == "" {
		return errors.New("persona: instruction is required")
	}
	return nil
}

// UnmarshalYAML supports both string and mapping forms.
func (p *Persona) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*p = Persona{Instruction: value.Value}
		return p.validate()
	}
	type personaAlias Persona
	var alias personaAlias
	if err := value.Decode(&alias); err != nil {
		return err
	}
	*p = Persona(alias)
	return p.validate()
}

// Load reads a persona from a YAML or JSON file. Unknown fields are
// rejected. Fields left empty fall back to the built-in advisor's.
func Load(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var p Persona
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
	default:
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	def := Default()
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.Voice == "" {
		p.Voice = def.Voice
	}
	return &p, nil
}

// Apply copies the persona's voice, model and instruction into cfg. Empty
// persona fields leave cfg unchanged.
func (p *Persona) Apply(cfg *live.Config) {
	if p.Voice != "" {
		cfg.Voice = p.Voice
	}
	if p.Model != "" {
		cfg.Model = p.Model
	}
	cfg.SystemInstruction = p.Instruction
}
