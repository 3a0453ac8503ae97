package live

const (
	// DefaultModel is the native-audio live model.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-12-2025"

	// DefaultVoice is the prebuilt voice used for synthesized speech.
	DefaultVoice = "Kore"
)

// Config configures a live session.
//
// The response modality is always audio.
type Config struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string `json:"-" yaml:"-"`

	// Model is the live model name. Defaults to DefaultModel.
	Model string `json:"model,omitzero" yaml:"model,omitempty"`

	// Voice is the prebuilt voice name. Defaults to DefaultVoice.
	Voice string `json:"voice,omitzero" yaml:"voice,omitempty"`

	// SystemInstruction is the persona text sent at session setup.
	SystemInstruction string `json:"system_instruction,omitzero" yaml:"system_instruction,omitempty"`

	// Transcription enables transcription of both the client's input audio
	// and the model's output audio.
	Transcription bool `json:"transcription,omitzero" yaml:"transcription,omitempty"`
}

func (c *Config) model() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

func (c *Config) voice() string {
	if c.Voice == "" {
		return DefaultVoice
	}
	return c.Voice
}
