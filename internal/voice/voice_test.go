package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

func newVoiceConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.ElevenLabs.APIKey = "el-test"
	cfg.ElevenLabs.VoiceID = "voice-1"
	cfg.ElevenLabs.BaseURL = baseURL
	cfg.ElevenLabs.ModelID = "eleven_multilingual_v2"
	cfg.ElevenLabs.Stability = 0.5
	cfg.ElevenLabs.SimilarityBoost = 0.75
	cfg.ElevenLabs.Timeout = 5
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAudioFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		department string
		want       string
	}{
		{"ICU", "emergency_ICU.mp3"},
		{"Emergency Room", "emergency_Emergency_Room.mp3"},
		{"Labor/Delivery Ward", "emergency_Labor-Delivery_Ward.mp3"},
		{`Ob\Gyn`, "emergency_Ob_Gyn.mp3"},
		{"Ward B..C", "emergency_Ward_B__C.mp3"},
		{"Pédiatrie", "emergency_P_diatrie.mp3"},
	}

	for _, tt := range tests {
		if got := AudioFilename(tt.department); got != tt.want {
			t.Errorf("AudioFilename(%q) = %q, want %q", tt.department, got, tt.want)
		}
		if err := ValidateFilename(AudioFilename(tt.department)); err != nil {
			t.Errorf("generated filename %q should be valid: %v", AudioFilename(tt.department), err)
		}
	}
}

func TestValidateFilename(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "  ", "../etc/passwd", "a/b.mp3", `a\b.mp3`, "..", "x..mp3"} {
		if err := ValidateFilename(name); !errors.Is(err, ErrInvalidAudioFilename) {
			t.Errorf("ValidateFilename(%q) = %v, want ErrInvalidAudioFilename", name, err)
		}
	}
	if err := ValidateFilename("emergency_ICU.mp3"); err != nil {
		t.Errorf("expected valid filename, got %v", err)
	}
}

func TestAudioStore_SaveAndRead(t *testing.T) {
	t.Parallel()

	store, err := NewAudioStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewAudioStore returned error: %v", err)
	}

	if err := store.Save("emergency_ICU.mp3", []byte("mp3-bytes")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := store.Read("emergency_ICU.mp3")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("unexpected audio %q", data)
	}

	if _, err := store.Read("emergency_ER.mp3"); !errors.Is(err, ErrAudioNotFound) {
		t.Fatalf("expected ErrAudioNotFound, got %v", err)
	}
	if _, err := store.Read("../secret"); !errors.Is(err, ErrInvalidAudioFilename) {
		t.Fatalf("expected ErrInvalidAudioFilename, got %v", err)
	}
}

func TestElevenLabsClient_Synthesize(t *testing.T) {
	t.Parallel()

	var got synthesisPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1" || r.Header.Get("xi-api-key") != "el-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	client := NewElevenLabsClient(newVoiceConfig(srv.URL))
	stability := 0.4

	audio, err := client.Synthesize(context.Background(), SynthesisRequest{Text: "  Attention staff.  ", Stability: &stability})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio.Data) != "ID3-audio" || audio.ContentType != "audio/mpeg" {
		t.Fatalf("unexpected audio %+v", audio)
	}
	if got.Text != "Attention staff." || got.VoiceSettings.Stability != 0.4 || got.VoiceSettings.SimilarityBoost != 0.75 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestElevenLabsClient_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer srv.Close()

	_, err := NewElevenLabsClient(newVoiceConfig(srv.URL)).Synthesize(context.Background(), SynthesisRequest{Text: "hello"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Body["detail"] == nil {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestElevenLabsClient_NotConfigured(t *testing.T) {
	t.Parallel()

	cfg := newVoiceConfig("http://127.0.0.1:0")
	cfg.ElevenLabs.APIKey = "your_elevenlabs_key_here"

	if _, err := NewElevenLabsClient(cfg).Synthesize(context.Background(), SynthesisRequest{Text: "hello"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

type fakeSynth struct {
	configured bool
	err        error
	text       string
}

func (f *fakeSynth) Configured() bool { return f.configured }

func (f *fakeSynth) Synthesize(_ context.Context, req SynthesisRequest) (*Audio, error) {
	f.text = req.Text
	if f.err != nil {
		return nil, f.err
	}
	return &Audio{Data: []byte("mp3"), ContentType: "audio/mpeg"}, nil
}

type memoryAudio struct {
	saved map[string][]byte
}

func (m *memoryAudio) Save(name string, data []byte) error {
	if err := ValidateFilename(name); err != nil {
		return err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[name] = data
	return nil
}

func TestBroadcaster(t *testing.T) {
	t.Parallel()

	t.Run("voice sent", func(t *testing.T) {
		t.Parallel()

		store := &memoryAudio{}
		b := NewBroadcaster(&fakeSynth{configured: true}, store, discardLogger())

		res := b.Broadcast(context.Background(), BroadcastInput{EmergencyType: "Fire", Department: "Emergency Room", Announcement: "Attention staff."})

		if res.Status != domain.BroadcastVoiceSent {
			t.Fatalf("expected voice_sent, got %s", res.Status)
		}
		if res.AudioFilename == nil || *res.AudioFilename != "emergency_Emergency_Room.mp3" {
			t.Fatalf("unexpected audio filename %v", res.AudioFilename)
		}
		if _, ok := store.saved["emergency_Emergency_Room.mp3"]; !ok {
			t.Fatalf("expected audio to be stored")
		}
	})

	t.Run("unsafe department name", func(t *testing.T) {
		t.Parallel()

		store, err := NewAudioStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewAudioStore returned error: %v", err)
		}
		b := NewBroadcaster(&fakeSynth{configured: true}, store, discardLogger())

		for dept, want := range map[string]string{
			`Ob\Gyn`:   "emergency_Ob_Gyn.mp3",
			"Ward B..C": "emergency_Ward_B__C.mp3",
		} {
			res := b.Broadcast(context.Background(), BroadcastInput{EmergencyType: "Fire", Department: dept})

			if res.Status != domain.BroadcastVoiceSent {
				t.Fatalf("department %q: expected voice_sent, got %s (%v)", dept, res.Status, res.Error)
			}
			if res.AudioFilename == nil || *res.AudioFilename != want {
				t.Fatalf("department %q: unexpected audio filename %v", dept, res.AudioFilename)
			}
			if _, err := store.Read(want); err != nil {
				t.Fatalf("department %q: stored audio not readable: %v", dept, err)
			}
		}
	})

	t.Run("credential missing", func(t *testing.T) {
		t.Parallel()

		b := NewBroadcaster(&fakeSynth{configured: false}, &memoryAudio{}, discardLogger())

		res := b.Broadcast(context.Background(), BroadcastInput{EmergencyType: "Fire", Department: "ICU"})

		if res.Status != domain.BroadcastTextOnly || res.AudioFilename != nil {
			t.Fatalf("expected text_only without audio, got %+v", res)
		}
		if !strings.Contains(res.Transcript, "ICU") || !strings.Contains(res.Transcript, "Fire") {
			t.Fatalf("expected default transcript naming department and type, got %q", res.Transcript)
		}
	})

	t.Run("synthesis failure", func(t *testing.T) {
		t.Parallel()

		synth := &fakeSynth{configured: true, err: &APIError{StatusCode: 500, Body: map[string]any{"message": "boom"}}}
		b := NewBroadcaster(synth, &memoryAudio{}, discardLogger())

		res := b.Broadcast(context.Background(), BroadcastInput{EmergencyType: "Fire", Department: "ICU", Announcement: "Go now."})

		if res.Status != domain.BroadcastTextOnly || res.Transcript != "Go now." || res.Error == "" {
			t.Fatalf("unexpected result %+v", res)
		}
	})
}
