package live

import (
	"testing"

	"google.golang.org/genai"
)

func TestGenAIConnectConfig(t *testing.T) {
	lc := genaiConnectConfig(&Config{SystemInstruction: "persona", Transcription: true})
	if len(lc.ResponseModalities) != 1 || lc.ResponseModalities[0] != genai.ModalityAudio {
		t.Fatalf("modalities = %v", lc.ResponseModalities)
	}
	if got := lc.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != DefaultVoice {
		t.Fatalf("voice = %q", got)
	}
	if lc.SystemInstruction == nil || lc.SystemInstruction.Parts[0].Text != "persona" {
		t.Fatal("system instruction missing")
	}
	if lc.InputAudioTranscription == nil || lc.OutputAudioTranscription == nil {
		t.Fatal("transcription not enabled")
	}

	bare := genaiConnectConfig(&Config{Voice: "Puck"})
	if bare.SystemInstruction != nil || bare.InputAudioTranscription != nil {
		t.Fatal("unexpected optional settings")
	}
	if got := bare.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != "Puck" {
		t.Fatalf("voice = %q", got)
	}
}

func TestConvertServerContent(t *testing.T) {
	sc := &genai.LiveServerContent{
		ModelTurn: &genai.Content{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{1, 2}}},
			{Text: "ignored"},
			{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{3, 4}}},
		}},
		InputTranscription: &genai.Transcription{Text: "How do I talk to my heirs?"},
		Interrupted:        true,
		TurnComplete:       true,
	}
	events := convertServerContent(sc)
	want := []EventType{EventAudio, EventAudio, EventInputTranscript, EventInterrupted, EventTurnComplete}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, w := range want {
		if events[i].Type != w {
			t.Errorf("event %d = %s, want %s", i, events[i].Type, w)
		}
	}
	if events[1].Audio.Data[0] != 3 {
		t.Error("audio parts out of order")
	}
	if convertServerContent(nil) != nil {
		t.Error("nil content should yield no events")
	}
}
